package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/linkedreach/internal/browser"
	"github.com/example/linkedreach/internal/config"
	"github.com/example/linkedreach/internal/logging"
	"github.com/example/linkedreach/internal/progress"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ErrLoginFailed marks an authentication failure, distinct from any later
// per-candidate failure. Callers check it with errors.Is.
var ErrLoginFailed = errors.New("login_failed")

// ErrNotAuthenticated is returned by operations handed a nil Session.
var ErrNotAuthenticated = errors.New("not authenticated: login first")

// navPhotoSel is the post-login landmark: the account photo in the global
// navigation bar.
const navPhotoSel = "img.global-nav__me-photo"

// Session is a proof of successful login. Search, connect, and checker
// operations require one, which makes the "must log in first" precondition
// a type-level fact instead of a runtime flag.
type Session struct {
	page *rod.Page
	br   *browser.Browser
	cfg  *config.Config
}

// Page returns the primary page the session owns. The whole run drives
// this one page; callers must not navigate it concurrently.
func (s *Session) Page() *rod.Page { return s.page }

// BaseURL returns the remote base address for building navigation targets.
func (s *Session) BaseURL() string { return strings.TrimSuffix(s.cfg.LinkedIn.BaseURL, "/") }

// NewAuxPage opens a second, temporary page for side lookups. The caller
// must close it before returning control.
func (s *Session) NewAuxPage(ctx context.Context) (*rod.Page, error) {
	return s.br.NewPage(ctx)
}

// Close releases the session's primary page.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
	}
}

type Manager struct {
	br  *browser.Browser
	cfg *config.Config
	log *logging.Logger
}

func New(br *browser.Browser, cfg *config.Config) *Manager {
	return &Manager{br: br, cfg: cfg, log: logging.Module(cfg.Logging.Level, "auth")}
}

// Login establishes an authenticated session. An existing cookie session
// is reused when still valid; otherwise it fills stored credentials, or
// waits up to five minutes for a manual login when none are configured.
// All failures come back as errors wrapping ErrLoginFailed, never a panic.
func (m *Manager) Login(ctx context.Context, report progress.Func) (*Session, error) {
	p, err := m.br.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open page: %v", ErrLoginFailed, err)
	}

	sess := &Session{page: p, br: m.br, cfg: m.cfg}
	base := sess.BaseURL()

	progress.Notify(report, "Checking session...")
	if err := m.loadCookies(p); err == nil {
		m.log.Debug("cookies loaded")
	}

	if err := p.Navigate(base + "/feed"); err != nil {
		sess.Close()
		return nil, fmt.Errorf("%w: navigate feed: %v", ErrLoginFailed, err)
	}
	_ = p.WaitLoad()
	time.Sleep(2 * time.Second) // allow the login redirect to land

	if !onLoginPage(pageURL(p)) {
		progress.Notify(report, "Session already active!")
		m.saveCookiesQuietly(p)
		return sess, nil
	}

	progress.Notify(report, "Not logged in, proceeding with login...")
	if !strings.Contains(pageURL(p), "/login") {
		if err := p.Navigate(base + "/login"); err != nil {
			sess.Close()
			return nil, fmt.Errorf("%w: navigate login: %v", ErrLoginFailed, err)
		}
		_ = p.WaitLoad()
	}

	if m.cfg.HasCredentials() {
		if err := m.credentialLogin(p, report); err != nil {
			sess.Close()
			return nil, err
		}
	} else {
		progress.Notify(report, "No credentials configured. Complete the login manually in the browser window.")
		if err := waitForLandmark(p, 5*time.Minute); err != nil {
			progress.Notify(report, "Manual login timed out before confirmation.")
			sess.Close()
			return nil, fmt.Errorf("%w: manual login timed out", ErrLoginFailed)
		}
	}

	progress.Notify(report, "Login completed successfully!")
	m.saveCookiesQuietly(p)
	return sess, nil
}

func (m *Manager) credentialLogin(p *rod.Page, report progress.Func) error {
	progress.Notify(report, "Entering credentials...")

	userEl, err := p.Timeout(10 * time.Second).Element("input#username")
	if err != nil {
		// Some flows land on the alternate login path.
		if nerr := p.Navigate(m.cfg.LinkedIn.BaseURL + "/uas/login"); nerr != nil {
			return fmt.Errorf("%w: username input not found: %v", ErrLoginFailed, err)
		}
		_ = p.WaitLoad()
		userEl, err = p.Timeout(10 * time.Second).Element("input#username")
		if err != nil {
			_ = browser.ScreenshotOnError(p, "login_page_fail", err)
			return fmt.Errorf("%w: username input not found: %v", ErrLoginFailed, err)
		}
	}
	if err := userEl.Input(m.cfg.Credentials.Email); err != nil {
		return fmt.Errorf("%w: fill email: %v", ErrLoginFailed, err)
	}

	passEl, err := p.Timeout(10 * time.Second).Element("input#password")
	if err != nil {
		return fmt.Errorf("%w: password input not found: %v", ErrLoginFailed, err)
	}
	if err := passEl.Input(m.cfg.Credentials.Password); err != nil {
		return fmt.Errorf("%w: fill password: %v", ErrLoginFailed, err)
	}

	submit, err := p.Timeout(10 * time.Second).Element("button[type='submit']")
	if err != nil {
		return fmt.Errorf("%w: submit button not found: %v", ErrLoginFailed, err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: click submit: %v", ErrLoginFailed, err)
	}

	progress.Notify(report, "Waiting for login confirmation...")
	if err := waitForLandmark(p, 30*time.Second); err != nil {
		if browser.Has(p, "[data-test-id='checkpoint'], .challenge-dialog", 2*time.Second) {
			_ = browser.ScreenshotOnError(p, "login_checkpoint", err)
			return fmt.Errorf("%w: blocked by checkpoint/verification, log in manually once", ErrLoginFailed)
		}
		_ = browser.ScreenshotOnError(p, "login_fail", err)
		return fmt.Errorf("%w: no post-login landmark: %v", ErrLoginFailed, err)
	}
	return nil
}

func waitForLandmark(p *rod.Page, d time.Duration) error {
	el, err := p.Timeout(d).Element(navPhotoSel)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func onLoginPage(url string) bool {
	return strings.Contains(url, "/login") || strings.Contains(url, "/uas/login")
}

func pageURL(p *rod.Page) string {
	info, err := p.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Cookie persistence. The cookie file is the durable session state reused
// across runs.

func (m *Manager) cookiePath() string { return m.cfg.Session.CookiePath }

func (m *Manager) loadCookies(p *rod.Page) error {
	b, err := os.ReadFile(m.cookiePath())
	if err != nil {
		return err
	}
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(b, &cookies); err != nil {
		return err
	}
	for _, c := range cookies {
		_, _ = proto.NetworkSetCookie{
			Domain: c.Domain, Name: c.Name, Value: c.Value, Path: c.Path,
			Expires: c.Expires, HTTPOnly: c.HTTPOnly, Secure: c.Secure,
		}.Call(p)
	}
	return nil
}

func (m *Manager) saveCookiesQuietly(p *rod.Page) {
	pp := p.Timeout(20 * time.Second)
	cookies, err := proto.StorageGetCookies{}.Call(pp)
	if err != nil {
		time.Sleep(500 * time.Millisecond)
		cookies, err = proto.StorageGetCookies{}.Call(pp)
		if err != nil {
			m.log.Warn("save cookies failed", "err", err)
			return
		}
	}
	b, _ := json.MarshalIndent(cookies.Cookies, "", "  ")
	_ = os.MkdirAll(filepath.Dir(m.cookiePath()), 0o755)
	if err := os.WriteFile(m.cookiePath(), b, 0o644); err != nil {
		m.log.Warn("save cookies failed", "err", err)
	}
}
