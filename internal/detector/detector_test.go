package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestNormalize(t *testing.T) {
	t.Run("wrist at origin and farthest point at unit distance", func(t *testing.T) {
		points := make([]Point3D, NumLandmarks)
		points[Wrist] = Point3D{X: 100, Y: 200, Z: 50}
		for i := 1; i < NumLandmarks; i++ {
			points[i] = Point3D{X: 100 + float64(i)*3, Y: 200 - float64(i)*4, Z: 50}
		}

		normalized := Normalize(points)

		if got := normalized[Wrist].Distance(Point3D{}); got > epsilon {
			t.Errorf("expected wrist at origin, got distance %f", got)
		}

		farthest := 0.0
		for _, p := range normalized {
			farthest = math.Max(farthest, p.Distance(Point3D{}))
		}
		if math.Abs(farthest-1.0) > epsilon {
			t.Errorf("expected farthest landmark at 1.0, got %f", farthest)
		}

		// PinkyTip is the farthest point: (60, -80) from wrist
		if math.Abs(normalized[PinkyTip].X-0.6) > epsilon || math.Abs(normalized[PinkyTip].Y+0.8) > epsilon {
			t.Errorf("unexpected pinky tip %+v", normalized[PinkyTip])
		}
	})

	t.Run("degenerate hand normalizes to zeros", func(t *testing.T) {
		points := make([]Point3D, NumLandmarks)
		for i := range points {
			points[i] = Point3D{X: 0.3, Y: 0.3, Z: 0.1}
		}

		for i, p := range Normalize(points) {
			if p != (Point3D{}) {
				t.Fatalf("point %d: expected zero, got %+v", i, p)
			}
		}
	})

	t.Run("input is not modified", func(t *testing.T) {
		hand := PeaceLandmarks()
		before := append([]Point3D(nil), hand.Points...)

		_ = hand.Normalize()

		for i := range before {
			if before[i] != hand.Points[i] {
				t.Fatalf("point %d changed", i)
			}
		}
	})

	t.Run("translation and scale invariant", func(t *testing.T) {
		hand := PeaceLandmarks()
		moved := make([]Point3D, len(hand.Points))
		for i, p := range hand.Points {
			moved[i] = Point3D{X: p.X*2.5 + 0.1, Y: p.Y*2.5 - 0.3, Z: p.Z * 2.5}
		}

		a := Normalize(hand.Points)
		b := Normalize(moved)
		for i := range a {
			if a[i].Distance(b[i]) > 1e-9 {
				t.Fatalf("point %d differs: %+v vs %+v", i, a[i], b[i])
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := Normalize(nil); len(got) != 0 {
			t.Errorf("expected empty result, got %d points", len(got))
		}
	})
}

func TestHandLandmarks_Valid(t *testing.T) {
	if !FistLandmarks().Valid() {
		t.Error("expected fixture to be valid")
	}
	short := HandLandmarks{Points: make([]Point3D, 20)}
	if short.Valid() {
		t.Error("expected 20 points to be invalid")
	}
}

func TestNormalizeHand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Left", "left"},
		{"left", "left"},
		{" LEFT ", "left"},
		{"Right", "right"},
		{"", "right"},
		{"Unknown", "right"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeHand(tt.in); got != tt.want {
				t.Errorf("NormalizeHand(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigFilter(t *testing.T) {
	low := FistLandmarks()
	low.Score = 0.2
	left := PeaceLandmarks()
	left.Handedness = "Left"

	cfg := Config{MaxHands: 1, MinConfidence: 0.5}
	got := cfg.filter([]HandLandmarks{low, left, FistLandmarks()})

	if len(got) != 1 {
		t.Fatalf("expected 1 hand, got %d", len(got))
	}
	if got[0].Handedness != "left" {
		t.Errorf("expected normalized handedness left, got %q", got[0].Handedness)
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("hands", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0.3}],"handedness":"Right","score":0.9}]}` + "\n")
		hands, err := parseResponse(line)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 || hands[0].Points[0].Y != 0.2 {
			t.Errorf("unexpected hands %+v", hands)
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"error":"model missing"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad json", func(t *testing.T) {
		if _, err := parseResponse([]byte(`not json`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands(ThumbsUpLandmarks(), OpenPalmLandmarks())

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestFingerPose(t *testing.T) {
	t.Run("extended fingers reach above their joints", func(t *testing.T) {
		hand := OpenPalmLandmarks()
		for _, tip := range []int{IndexTip, MiddleTip, RingTip, PinkyTip} {
			if hand.Points[tip].Y >= hand.Points[tip-2].Y {
				t.Errorf("tip %d should be above its PIP", tip)
			}
		}
	})

	t.Run("curled fingers fold back toward the palm", func(t *testing.T) {
		hand := FistLandmarks()
		for _, tip := range []int{IndexTip, MiddleTip, RingTip, PinkyTip} {
			if hand.Points[tip].Y <= hand.Points[tip-2].Y {
				t.Errorf("tip %d should be below its PIP", tip)
			}
		}
	})

	t.Run("every fixture is well formed", func(t *testing.T) {
		for _, h := range []HandLandmarks{
			PeaceLandmarks(), ThumbsUpLandmarks(), FistLandmarks(),
			PointLandmarks(), OpenPalmLandmarks(), FourFingersLandmarks(),
		} {
			if !h.Valid() {
				t.Fatal("fixture has wrong landmark count")
			}
		}
	})
}
