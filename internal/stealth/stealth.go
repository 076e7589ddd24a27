// Package stealth paces and humanizes browser interaction. All delays in
// the workflow go through a Pacer so tests can substitute a zero-delay
// policy.
package stealth

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"
)

// Pacer is the injectable delay policy: randomized sleeps bounded by
// min/max, an occasional long pause, and a hard ceiling on actions per
// minute.
type Pacer interface {
	// Sleep blocks for a random duration within [minMs, maxMs].
	Sleep(minMs, maxMs int)
	// Action blocks until the rate limiter permits the next remote
	// interaction.
	Action(ctx context.Context) error
}

type humanPacer struct {
	limiter *rate.Limiter
	// longPauseChance is the probability a sleep is stretched into a
	// longer "reading" pause.
	longPauseChance float64
}

// NewPacer builds the production pacer. actionsPerMin caps navigations and
// clicks regardless of how short the randomized delays come out.
func NewPacer(actionsPerMin int) Pacer {
	if actionsPerMin <= 0 {
		actionsPerMin = 12
	}
	return &humanPacer{
		limiter:         rate.NewLimiter(rate.Every(time.Minute/time.Duration(actionsPerMin)), actionsPerMin),
		longPauseChance: 0.10,
	}
}

func (p *humanPacer) Sleep(minMs, maxMs int) {
	if maxMs < minMs {
		maxMs = minMs
	}
	d := time.Duration(minMs+rand.Intn(maxMs-minMs+1)) * time.Millisecond
	if rand.Float64() < p.longPauseChance {
		d += time.Duration(1500+rand.Intn(1500)) * time.Millisecond
	}
	time.Sleep(d)
}

func (p *humanPacer) Action(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoDelay returns a pacer that never waits, for tests.
func NoDelay() Pacer { return zeroPacer{} }

type zeroPacer struct{}

func (zeroPacer) Sleep(int, int)                {}
func (zeroPacer) Action(context.Context) error { return nil }

// SleepGaussian sleeps for a duration following a Gaussian distribution.
// Most delays cluster around the mean, which reads more human than a
// uniform spread.
func SleepGaussian(meanMs, stdDevMs int) {
	u1 := rand.Float64()
	u2 := rand.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	delay := int(float64(meanMs) + z*float64(stdDevMs))

	minDelay := meanMs - 3*stdDevMs
	maxDelay := meanMs + 3*stdDevMs
	if delay < minDelay {
		delay = minDelay
	} else if delay > maxDelay {
		delay = maxDelay
	}

	if delay > 0 {
		time.Sleep(time.Duration(delay) * time.Millisecond)
	}
}

func ThinkTime() { SleepGaussian(1400, 600) }

// ScrollHumanLike scrolls down the page with eased steps, jitter, and the
// occasional long reading pause.
func ScrollHumanLike(p *rod.Page) {
	const (
		meanStep        = 120
		minPause        = 200
		maxPause        = 900
		longPauseChance = 0.10
	)

	current := evalInt(p, `() => window.scrollY`)
	viewport := evalInt(p, `() => window.innerHeight`)
	total := evalInt(p, `() => document.body.scrollHeight`)

	for current+viewport < total {
		progress := float64(current) / float64(total)
		easing := 0.5 * (1 - math.Cos(math.Pi*progress))
		base := meanStep * (1.5 - easing)

		step := int(base + rand.NormFloat64()*13)
		if step < 40 {
			step = 40
		}

		_ = p.Mouse.Scroll(0, float64(step+rand.Intn(21)-10), 1)
		current += step

		pause := minPause + rand.Intn(maxPause-minPause+1)
		if rand.Float64() < longPauseChance {
			pause = 1500 + rand.Intn(1500)
		}
		time.Sleep(time.Duration(pause) * time.Millisecond)

		viewport = evalInt(p, `() => window.innerHeight`)
		total = evalInt(p, `() => document.body.scrollHeight`)
		current = evalInt(p, `() => window.scrollY`)
	}
}

// ScrollBurst presses ArrowDown repeatedly to advance an infinite-scroll
// listing, the way a human skims a long list.
func ScrollBurst(p *rod.Page) {
	presses := 18 + rand.Intn(7)
	for i := 0; i < presses; i++ {
		_ = p.Keyboard.Press(input.ArrowDown)
		time.Sleep(time.Duration(20+rand.Intn(21)) * time.Millisecond)
	}
	time.Sleep(time.Duration(2000+rand.Intn(2001)) * time.Millisecond)
}

// TypeHumanLike types text with variable rhythm and occasional corrected
// typos.
func TypeHumanLike(el *rod.Element, text string) error {
	for i, r := range text {
		ch := string(r)

		if rand.Float64() < 0.02 && i > 3 {
			wrongChar := randomNearbyRune(r)
			_ = el.Input(wrongChar)
			sleepRange(80, 180)
			_ = el.Input("\b")
			sleepRange(100, 250)
		}

		if err := el.Input(ch); err != nil {
			return err
		}

		baseDelay := 25
		if i < 10 {
			baseDelay = 40
		} else if r == ' ' || r == ',' || r == '.' {
			baseDelay = 60
		} else if i > 0 && text[i-1] == ' ' {
			baseDelay = 35
		}
		SleepGaussian(baseDelay, 20)

		if rand.Float64() < 0.05 {
			SleepGaussian(300, 150)
		}
	}
	return nil
}

func randomNearbyRune(r rune) string {
	nearby := map[rune][]rune{
		'a': {'s', 'q', 'w', 'z'},
		'e': {'w', 'r', 'd'},
		'i': {'u', 'o', 'k', 'j'},
		'o': {'i', 'p', 'l', 'k'},
		's': {'a', 'd', 'w', 'x'},
		't': {'r', 'y', 'g', 'f'},
	}
	if opts, ok := nearby[r]; ok && len(opts) > 0 {
		return string(opts[rand.Intn(len(opts))])
	}
	opts := []rune{'a', 'e', 'i', 'o', 'u', 's', 'n', 't', 'r', 'l'}
	return string(opts[rand.Intn(len(opts))])
}

// ClickHumanLike scrolls an element into view and clicks a random point
// inside it after a short settle.
func ClickHumanLike(p *rod.Page, el *rod.Element) error {
	_ = el.ScrollIntoView()
	SleepGaussian(300, 150)

	shape, err := el.Shape()
	if err != nil || len(shape.Quads) == 0 {
		return el.Click(proto.InputMouseButtonLeft, 1)
	}

	quad := shape.Quads[0]
	minX, maxX := quad[0], quad[0]
	minY, maxY := quad[1], quad[1]
	for i := 0; i < len(quad); i += 2 {
		minX = math.Min(minX, quad[i])
		maxX = math.Max(maxX, quad[i])
		minY = math.Min(minY, quad[i+1])
		maxY = math.Max(maxY, quad[i+1])
	}

	targetX := minX + (maxX-minX)*(0.3+rand.Float64()*0.4)
	targetY := minY + (maxY-minY)*(0.3+rand.Float64()*0.4)

	_ = p.Mouse.MoveTo(proto.Point{X: targetX, Y: targetY})
	sleepRange(50, 150)
	if err := p.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	sleepRange(30, 90)
	return p.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

// InActiveWindow reports whether the current time falls inside the
// configured active hours.
func InActiveWindow(start, end string) bool {
	now := time.Now()
	s, err := time.Parse("15:04", start)
	if err != nil {
		return true
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return true
	}
	startToday := time.Date(now.Year(), now.Month(), now.Day(), s.Hour(), s.Minute(), 0, 0, now.Location())
	endToday := time.Date(now.Year(), now.Month(), now.Day(), e.Hour(), e.Minute(), 0, 0, now.Location())
	return now.After(startToday) && now.Before(endToday)
}

func sleepRange(minMs, maxMs int) {
	time.Sleep(time.Duration(minMs+rand.Intn(maxMs-minMs+1)) * time.Millisecond)
}

func evalInt(p *rod.Page, js string) int {
	v, err := p.Eval(js)
	if err != nil {
		return 0
	}
	return v.Value.Int()
}
