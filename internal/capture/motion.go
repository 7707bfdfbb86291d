package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	blurKernel    = 21
	diffThreshold = 25
)

// MotionDetector compares each frame with the previous one and reports
// the share of pixels that changed.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector returns a detector that reports motion when more than
// threshold percent of the pixels change.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect returns whether the frame differs from the previous one and the
// changed pixel percentage. The first frame only primes the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	current := smoothGray(frame)
	defer current.Close()

	if !m.primed {
		current.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(current, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	current.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// smoothGray converts to grayscale and blurs away sensor noise.
func smoothGray(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	out := gocv.NewMat()
	gocv.GaussianBlur(gray, &out, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)
	return out
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.primed = false
}

// SetThreshold ignores non-positive values.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Frame rates for the streaming client.
const (
	IdleFPS   = 5
	ActiveFPS = 15
	IdleAfter = 2 * time.Second
)

// Activity switches between an idle and an active frame rate. Motion moves
// it to active at once; it drops back to idle after IdleAfter without motion.
type Activity struct {
	IdleFPS   int
	ActiveFPS int
	IdleAfter time.Duration

	active     bool
	lastMotion time.Time
}

// NewActivity starts idle.
func NewActivity() *Activity {
	return &Activity{IdleFPS: IdleFPS, ActiveFPS: ActiveFPS, IdleAfter: IdleAfter}
}

// Update records one motion sample and returns the frame rate to use and
// whether it changed.
func (a *Activity) Update(motion bool, now time.Time) (int, bool) {
	switch {
	case motion:
		a.lastMotion = now
		if !a.active {
			a.active = true
			return a.ActiveFPS, true
		}
	case a.active && now.Sub(a.lastMotion) > a.IdleAfter:
		a.active = false
		return a.IdleFPS, true
	}
	return a.FPS(), false
}

// Active reports whether motion was seen within IdleAfter.
func (a *Activity) Active() bool { return a.active }

// FPS is the current frame rate.
func (a *Activity) FPS() int {
	if a.active {
		return a.ActiveFPS
	}
	return a.IdleFPS
}
