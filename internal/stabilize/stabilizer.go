// Package stabilize turns noisy per-frame classifications into a
// rate-limited stream of gesture change and clear events.
package stabilize

import (
	"math"
	"time"

	"github.com/ayusman/visionctl/internal/gesture"
)

// Config holds the stabilizer thresholds.
type Config struct {
	// MinConfidence is the lowest classification confidence that may be emitted.
	MinConfidence float64
	// MinInterval caps the emit rate.
	MinInterval time.Duration
	// RefreshInterval re-emits an unchanged gesture after this long.
	RefreshInterval time.Duration
	// ClearAfter is the number of consecutive hand-less frames before a clear.
	ClearAfter int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.70,
		MinInterval:     120 * time.Millisecond,
		RefreshInterval: 400 * time.Millisecond,
		ClearAfter:      5,
	}
}

// Event is a proposed emission. A cleared event carries no gesture.
type Event struct {
	Gesture    string
	Confidence float64
	Hand       string
	Kind       gesture.Kind
	// Changed is false for a refresh of the gesture already reported.
	Changed bool
	Cleared bool
	At      time.Time
}

// Stabilizer holds one connection's emission state. It is not safe for
// concurrent use; each connection owns its own.
type Stabilizer struct {
	cfg Config
	now func() time.Time

	lastGesture    string
	lastConfidence float64
	lastEmit       time.Time
	emitted        bool
	noHandCount    int
}

// New creates a Stabilizer using the wall clock.
func New(cfg Config) *Stabilizer {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock creates a Stabilizer reading time from now.
func NewWithClock(cfg Config, now func() time.Time) *Stabilizer {
	return &Stabilizer{cfg: cfg, now: now}
}

// Observe handles a frame in which a hand was classified. It returns an
// event to send, or false when nothing should be emitted. State does not
// advance until Commit.
func (s *Stabilizer) Observe(r gesture.Result) (Event, bool) {
	s.noHandCount = 0

	if r.IsUnknown() || r.Confidence < s.cfg.MinConfidence {
		return Event{}, false
	}

	now := s.now()
	changed := r.Gesture != s.lastGesture
	sinceEmit := time.Duration(math.MaxInt64)
	if s.emitted {
		sinceEmit = now.Sub(s.lastEmit)
	}

	if sinceEmit < s.cfg.MinInterval {
		return Event{}, false
	}
	if !changed && sinceEmit < s.cfg.RefreshInterval {
		return Event{}, false
	}

	return Event{
		Gesture:    r.Gesture,
		Confidence: r.Confidence,
		Hand:       r.Hand,
		Kind:       r.Kind,
		Changed:    changed,
		At:         now,
	}, true
}

// NoHand handles a frame without a hand. After ClearAfter consecutive
// hand-less frames it proposes a single clear, if a gesture is active.
func (s *Stabilizer) NoHand() (Event, bool) {
	s.noHandCount++
	if s.noHandCount < s.cfg.ClearAfter || s.lastGesture == "" {
		return Event{}, false
	}
	return Event{Cleared: true, Changed: true, At: s.now()}, true
}

// Commit records that e was delivered.
func (s *Stabilizer) Commit(e Event) {
	if e.Cleared {
		s.lastGesture = ""
		s.lastConfidence = 0
		s.noHandCount = 0
		return
	}
	s.lastGesture = e.Gesture
	s.lastConfidence = e.Confidence
	s.lastEmit = e.At
	s.emitted = true
}

// Current returns the last delivered gesture and its confidence.
func (s *Stabilizer) Current() (string, float64) {
	return s.lastGesture, s.lastConfidence
}
