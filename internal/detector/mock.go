package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands ...HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many frames Detect has seen.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FingerPose builds an upright right hand with each finger either extended
// or curled, in thumb, index, middle, ring, pinky order.
func FingerPose(fingers [5]bool) HandLandmarks {
	pts := make([]Point3D, NumLandmarks)

	pts[Wrist] = Point3D{X: 0.5, Y: 0.9}
	pts[ThumbCMC] = Point3D{X: 0.45, Y: 0.85}
	pts[ThumbMCP] = Point3D{X: 0.40, Y: 0.80}
	if fingers[0] {
		pts[ThumbIP] = Point3D{X: 0.34, Y: 0.74}
		pts[ThumbTip] = Point3D{X: 0.28, Y: 0.68}
	} else {
		pts[ThumbIP] = Point3D{X: 0.43, Y: 0.78}
		pts[ThumbTip] = Point3D{X: 0.46, Y: 0.80}
	}

	bases := [4]int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	for i, base := range bases {
		x := 0.45 + 0.05*float64(i)
		pts[base] = Point3D{X: x, Y: 0.70}
		if fingers[i+1] {
			pts[base+1] = Point3D{X: x, Y: 0.60}
			pts[base+2] = Point3D{X: x, Y: 0.53}
			pts[base+3] = Point3D{X: x, Y: 0.46}
		} else {
			pts[base+1] = Point3D{X: x, Y: 0.62}
			pts[base+2] = Point3D{X: x, Y: 0.66}
			pts[base+3] = Point3D{X: x, Y: 0.68}
		}
	}

	return HandLandmarks{Points: pts, Handedness: "right", Score: 0.95}
}

// PeaceLandmarks returns index and middle extended.
func PeaceLandmarks() HandLandmarks {
	return FingerPose([5]bool{false, true, true, false, false})
}

// ThumbsUpLandmarks returns only the thumb extended.
func ThumbsUpLandmarks() HandLandmarks {
	return FingerPose([5]bool{true, false, false, false, false})
}

// FistLandmarks returns every finger curled.
func FistLandmarks() HandLandmarks {
	return FingerPose([5]bool{})
}

// PointLandmarks returns only the index finger extended.
func PointLandmarks() HandLandmarks {
	return FingerPose([5]bool{false, true, false, false, false})
}

// OpenPalmLandmarks returns every finger extended.
func OpenPalmLandmarks() HandLandmarks {
	return FingerPose([5]bool{true, true, true, true, true})
}

// FourFingersLandmarks returns all fingers but the thumb extended.
func FourFingersLandmarks() HandLandmarks {
	return FingerPose([5]bool{false, true, true, true, true})
}
