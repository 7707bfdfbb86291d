package combo

import "time"

const (
	minWindow = 500 * time.Millisecond
	maxWindow = 10 * time.Second
	unknown   = "unknown"
)

// Config holds the detector limits.
type Config struct {
	// Window is both the history eviction age and the maximum combo span.
	// It is used as given; zero means the default. Only SetWindow clamps.
	Window time.Duration
	// Cooldown is the minimum time between two matches.
	Cooldown time.Duration
	// DuplicateWindow drops a repeat of the latest gesture added sooner than this.
	DuplicateWindow time.Duration
	// Capacity bounds the history length.
	Capacity int
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		Window:          2 * time.Second,
		Cooldown:        time.Second,
		DuplicateWindow: 300 * time.Millisecond,
		Capacity:        10,
	}
}

// Detector tracks one connection's recent gestures. It is not safe for
// concurrent use.
type Detector struct {
	cfg     Config
	catalog *Catalog
	now     func() time.Time

	history   []Event
	lastMatch time.Time
	matched   bool
}

// New creates a detector over catalog using the wall clock.
func New(cfg Config, catalog *Catalog) *Detector {
	return NewWithClock(cfg, catalog, time.Now)
}

// NewWithClock creates a detector reading time from now.
func NewWithClock(cfg Config, catalog *Catalog, now func() time.Time) *Detector {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	return &Detector{
		cfg:     cfg,
		catalog: catalog,
		now:     now,
		history: make([]Event, 0, cfg.Capacity),
	}
}

// Add records a gesture. Unknown and empty names are ignored, as is a
// repeat of the latest gesture within the duplicate window.
func (d *Detector) Add(name string, confidence float64, hand string) {
	if name == "" || name == unknown {
		return
	}

	now := d.now()
	if n := len(d.history); n > 0 {
		last := d.history[n-1]
		if last.Gesture == name && now.Sub(last.Timestamp) < d.cfg.DuplicateWindow {
			return
		}
	}

	if len(d.history) == d.cfg.Capacity {
		copy(d.history, d.history[1:])
		d.history = d.history[:len(d.history)-1]
	}
	d.history = append(d.history, Event{
		Gesture:    name,
		Confidence: confidence,
		Timestamp:  now,
		Hand:       hand,
	})
	d.evict(now)
}

// Check returns the first combo, in definition order, whose sequence
// appears contiguously in the history, or nil.
func (d *Detector) Check() *Match {
	now := d.now()
	d.evict(now)

	if len(d.history) < 2 {
		return nil
	}
	if d.matched && now.Sub(d.lastMatch) < d.cfg.Cooldown {
		return nil
	}

	for _, def := range d.catalog.Definitions() {
		if len(def.Sequence) < 2 {
			continue
		}
		events, conf, ok := d.matchSequence(def.Sequence)
		if !ok {
			continue
		}

		d.lastMatch = now
		d.matched = true
		return &Match{
			Definition:      def,
			MatchedGestures: events,
			Confidence:      conf,
			Timestamp:       now,
		}
	}
	return nil
}

// matchSequence tries start positions from most recent to oldest.
func (d *Detector) matchSequence(seq []string) ([]Event, float64, bool) {
	n := len(seq)
	for start := len(d.history) - n; start >= 0; start-- {
		window := d.history[start : start+n]

		matched := true
		for i, name := range seq {
			if window[i].Gesture != name {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		if window[n-1].Timestamp.Sub(window[0].Timestamp) > d.cfg.Window {
			continue
		}

		total := 0.0
		for _, e := range window {
			total += e.Confidence
		}
		return append([]Event(nil), window...), total / float64(n), true
	}
	return nil, 0, false
}

func (d *Detector) evict(now time.Time) {
	cutoff := now.Add(-d.cfg.Window)
	drop := 0
	for drop < len(d.history) && d.history[drop].Timestamp.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		d.history = append(d.history[:0], d.history[drop:]...)
	}
}

// Reset clears the history and the cooldown.
func (d *Detector) Reset() {
	d.history = d.history[:0]
	d.matched = false
	d.lastMatch = time.Time{}
}

// History returns a copy of the current history, oldest first.
func (d *Detector) History() []Event {
	return append([]Event(nil), d.history...)
}

// SetWindow changes the window, clamped to [0.5s, 10s], and returns the
// value applied.
func (d *Detector) SetWindow(w time.Duration) time.Duration {
	d.cfg.Window = clampWindow(w)
	return d.cfg.Window
}

// Window returns the current window.
func (d *Detector) Window() time.Duration {
	return d.cfg.Window
}

func clampWindow(w time.Duration) time.Duration {
	if w < minWindow {
		return minWindow
	}
	if w > maxWindow {
		return maxWindow
	}
	return w
}
