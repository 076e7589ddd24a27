package browser

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/example/linkedreach/internal/config"
	"github.com/example/linkedreach/internal/logging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type Browser struct {
	Rod *rod.Browser
	Cfg *config.Config
	log *logging.Logger
}

func New(ctx context.Context, cfg *config.Config) (*Browser, error) {
	log := logging.Module(cfg.Logging.Level, "browser")
	// Leakless disabled to avoid AV false positives on Windows
	l := launcher.New().Leakless(false).Headless(cfg.Stealth.Headless)
	url, err := l.Launch()
	if err != nil {
		return nil, err
	}
	rb := rod.New().Context(ctx).ControlURL(url)
	if err := rb.Connect(); err != nil {
		return nil, err
	}
	br := &Browser{Rod: rb, Cfg: cfg, log: log}
	if err := br.init(); err != nil {
		return nil, err
	}
	return br, nil
}

func (b *Browser) init() error {
	b.Rod = b.Rod.MustIgnoreCertErrors(true)

	p := b.Rod.MustPage("about:blank")

	ua := b.Cfg.Stealth.UserAgent
	if ua == "" {
		uas := []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		}
		ua = uas[rand.Intn(len(uas))]
	}

	platform := "Win32"
	if strings.Contains(ua, "Macintosh") {
		platform = "MacIntel"
	} else if strings.Contains(ua, "Linux") {
		platform = "Linux x86_64"
	}

	_ = proto.EmulationSetUserAgentOverride{
		UserAgent: ua,
		Platform:  platform,
	}.Call(p)

	w := randRange(b.Cfg.Stealth.ViewportWidthMin, b.Cfg.Stealth.ViewportWidthMax)
	h := randRange(b.Cfg.Stealth.ViewportHeightMin, b.Cfg.Stealth.ViewportHeightMax)
	_ = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})

	_, _ = p.Eval(fingerprintScript(w, h, platform))

	p.MustClose()
	b.log.Info("browser fingerprint initialized", "ua", ua, "viewport", fmt.Sprintf("%dx%d", w, h))
	return nil
}

// fingerprintScript masks the most common automation tells.
func fingerprintScript(width, height int, platform string) string {
	return fmt.Sprintf(`() => {
		Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
		window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {}, app: {} };
		Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en', 'es'] });
		Object.defineProperty(navigator, 'platform', { get: () => '%s' });
		Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
		Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
		Object.defineProperty(window.screen, 'width', { get: () => %d + 100 });
		Object.defineProperty(window.screen, 'height', { get: () => %d + 100 });
		const originalQuery = window.navigator.permissions.query;
		window.navigator.permissions.query = (parameters) => (
			parameters.name === 'notifications'
				? Promise.resolve({ state: Notification.permission })
				: originalQuery(parameters)
		);
	}`, platform, width, height)
}

func (b *Browser) NewPage(ctx context.Context) (*rod.Page, error) {
	p, err := b.Rod.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, err
	}
	// No page-wide deadline: long waits (manual login) set their own
	// per-operation timeouts.
	p = p.Context(ctx)

	w := randRange(b.Cfg.Stealth.ViewportWidthMin, b.Cfg.Stealth.ViewportWidthMax)
	h := randRange(b.Cfg.Stealth.ViewportHeightMin, b.Cfg.Stealth.ViewportHeightMax)
	_, _ = p.EvalOnNewDocument(fingerprintScript(w, h, "Win32"))

	return p, nil
}

func (b *Browser) Close() {
	if b.Rod != nil {
		_ = b.Rod.Close()
	}
}

func randRange(min, max int) int {
	if min >= max {
		return min
	}
	return min + rand.Intn(max-min+1)
}

// Matcher is one rule in a prioritized control-discovery list: a CSS
// selector, an optional text pattern (regexp, matched against the element
// text), and whether the element must be visible. The first rule that
// yields a usable element wins.
type Matcher struct {
	Selector    string
	TextPattern string
	Visible     bool
}

// FindFirst tries each matcher in order within root and returns the first
// element that satisfies it, or nil when no rule matches. Individual rule
// failures are expected and never returned as errors.
func FindFirst(root *rod.Page, timeout time.Duration, rules []Matcher) *rod.Element {
	for _, r := range rules {
		el := tryMatch(root.Timeout(timeout), r)
		if el != nil {
			return el
		}
	}
	return nil
}

// FindFirstIn is FindFirst scoped to an element subtree.
func FindFirstIn(root *rod.Element, rules []Matcher) *rod.Element {
	for _, r := range rules {
		var el *rod.Element
		var err error
		if r.TextPattern != "" {
			el, err = root.ElementR(r.Selector, r.TextPattern)
		} else {
			el, err = root.Element(r.Selector)
		}
		if err != nil || el == nil {
			continue
		}
		if r.Visible {
			if vis, verr := el.Visible(); verr != nil || !vis {
				continue
			}
		}
		return el
	}
	return nil
}

func tryMatch(p *rod.Page, r Matcher) *rod.Element {
	var el *rod.Element
	var err error
	if r.TextPattern != "" {
		el, err = p.ElementR(r.Selector, r.TextPattern)
	} else {
		el, err = p.Element(r.Selector)
	}
	if err != nil || el == nil {
		return nil
	}
	if r.Visible {
		if vis, verr := el.Visible(); verr != nil || !vis {
			return nil
		}
	}
	return el
}

// Has reports whether sel resolves within a short window.
func Has(p *rod.Page, sel string, timeout time.Duration) bool {
	_, err := p.Timeout(timeout).Element(sel)
	return err == nil
}

// WaitVisible waits for sel to render and become visible.
func WaitVisible(p *rod.Page, sel string, d time.Duration) error {
	el, err := p.Timeout(d).Element(sel)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

// ScreenshotOnError captures the page next to a failure for later
// inspection and returns err unchanged.
func ScreenshotOnError(p *rod.Page, prefix string, err error) error {
	if p == nil || err == nil {
		return err
	}
	path := fmt.Sprintf("%s-%d.png", prefix, time.Now().Unix())
	bts, serr := p.Screenshot(true, &proto.PageCaptureScreenshot{})
	if serr == nil {
		_ = os.WriteFile(path, bts, 0o644)
	}
	return err
}
