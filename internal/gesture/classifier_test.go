package gesture

import (
	"math"
	"testing"

	"github.com/ayusman/visionctl/internal/detector"
)

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClassifier_Builtin(t *testing.T) {
	c := NewClassifier(nil, 0)

	tests := []struct {
		name string
		hand detector.HandLandmarks
		want string
	}{
		{"peace", detector.PeaceLandmarks(), Peace},
		{"thumbs up", detector.ThumbsUpLandmarks(), ThumbsUp},
		{"fist", detector.FistLandmarks(), Fist},
		{"point", detector.PointLandmarks(), Point},
		{"stop", detector.OpenPalmLandmarks(), Stop},
		{"four fingers", detector.FourFingersLandmarks(), FourFingers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.hand.Points, "Right")
			if got.Gesture != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Gesture)
			}
			if !floatEqual(got.Confidence, 1.0) {
				t.Errorf("expected confidence 1.0, got %f", got.Confidence)
			}
			if got.Kind != KindBuiltin {
				t.Errorf("expected kind builtin, got %s", got.Kind)
			}
			if got.Hand != "right" {
				t.Errorf("expected hand right, got %s", got.Hand)
			}
		})
	}
}

func TestClassifier_PartialMatchKeepsEarlierPattern(t *testing.T) {
	c := NewClassifier(nil, 0)

	// thumb and index extended: thumbs_up and point both agree on 4 of 5
	hand := detector.FingerPose([5]bool{true, true, false, false, false})
	got := c.Classify(hand.Points, "left")

	if got.Gesture != ThumbsUp {
		t.Errorf("expected %s, got %s", ThumbsUp, got.Gesture)
	}
	if !floatEqual(got.Confidence, 0.8) {
		t.Errorf("expected confidence 0.8, got %f", got.Confidence)
	}
	if got.Hand != "left" {
		t.Errorf("expected hand left, got %s", got.Hand)
	}
}

func TestClassifier_WrongLandmarkCount(t *testing.T) {
	c := NewClassifier(nil, 0)

	for _, n := range []int{0, 20, 22} {
		got := c.Classify(make([]detector.Point3D, n), "right")
		if got.Gesture != Unknown || got.Confidence != 0 || got.Kind != KindNone {
			t.Errorf("%d points: expected unknown/0/none, got %+v", n, got)
		}
	}
}

func TestClassifier_Pure(t *testing.T) {
	lib := NewLibrary(NewTemplateSet([]Template{
		{Name: "rock", Samples: [][]detector.Point3D{detector.FingerPose([5]bool{false, true, false, false, true}).Points}},
	}))
	c := NewClassifier(lib, 0)
	points := detector.PeaceLandmarks().Points

	first := c.Classify(points, "right")
	second := c.Classify(points, "right")
	if first != second {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestMatchPatterns_Threshold(t *testing.T) {
	patterns := []pattern{{"all", FingerStates{true, true, true, true, true}}}

	tests := []struct {
		states   FingerStates
		wantName string
		wantConf float64
	}{
		{FingerStates{true, true, true, false, false}, "all", 0.6},
		{FingerStates{true, true, false, false, false}, Unknown, 0},
		{FingerStates{}, Unknown, 0},
	}

	for _, tt := range tests {
		name, conf := matchPatterns(tt.states, patterns)
		if name != tt.wantName || !floatEqual(conf, tt.wantConf) {
			t.Errorf("%v: got (%s, %f), want (%s, %f)", tt.states, name, conf, tt.wantName, tt.wantConf)
		}
	}
}

func TestClassifier_CustomTemplates(t *testing.T) {
	rock := detector.FingerPose([5]bool{false, true, false, false, true})

	t.Run("own sample scores 1.0", func(t *testing.T) {
		c := NewClassifier(NewLibrary(NewTemplateSet([]Template{
			{Name: "rock", Samples: [][]detector.Point3D{rock.Points}},
		})), 0)

		got := c.Classify(rock.Points, "right")
		if got.Gesture != "rock" || !floatEqual(got.Confidence, 1.0) || got.Kind != KindCustom {
			t.Errorf("expected rock/1.0/custom, got %+v", got)
		}
	})

	t.Run("scaled and translated sample still matches", func(t *testing.T) {
		c := NewClassifier(NewLibrary(NewTemplateSet([]Template{
			{Name: "rock", Samples: [][]detector.Point3D{rock.Points}},
		})), 0)

		moved := make([]detector.Point3D, len(rock.Points))
		for i, p := range rock.Points {
			moved[i] = detector.Point3D{X: p.X*0.5 + 0.2, Y: p.Y*0.5 + 0.1, Z: p.Z}
		}

		got := c.Classify(moved, "right")
		if got.Gesture != "rock" || math.Abs(got.Confidence-1.0) > 1e-6 {
			t.Errorf("expected rock near 1.0, got %+v", got)
		}
	})

	t.Run("best sample wins", func(t *testing.T) {
		c := NewClassifier(NewLibrary(NewTemplateSet([]Template{
			{Name: "rock", Samples: [][]detector.Point3D{detector.FistLandmarks().Points, rock.Points}},
		})), 0)

		got := c.Classify(rock.Points, "right")
		if !floatEqual(got.Confidence, 1.0) {
			t.Errorf("expected 1.0 from the matching sample, got %f", got.Confidence)
		}
	})

	t.Run("best template wins", func(t *testing.T) {
		c := NewClassifier(NewLibrary(NewTemplateSet([]Template{
			{Name: "closed", Samples: [][]detector.Point3D{detector.FistLandmarks().Points}},
			{Name: "rock", Samples: [][]detector.Point3D{rock.Points}},
		})), 0)

		got := c.Classify(rock.Points, "right")
		if got.Gesture != "rock" {
			t.Errorf("expected rock, got %s", got.Gesture)
		}
	})

	t.Run("sample with wrong length never matches", func(t *testing.T) {
		c := NewClassifier(NewLibrary(NewTemplateSet([]Template{
			{Name: "broken", Samples: [][]detector.Point3D{detector.PeaceLandmarks().Points[:20]}},
		})), 0)

		got := c.Classify(detector.PeaceLandmarks().Points, "right")
		if got.Gesture != Peace || got.Kind != KindBuiltin {
			t.Errorf("expected builtin peace, got %+v", got)
		}
	})

	t.Run("swap replaces templates", func(t *testing.T) {
		lib := NewLibrary(nil)
		c := NewClassifier(lib, 0)

		if got := c.Classify(rock.Points, "right"); got.Kind == KindCustom {
			t.Fatalf("expected no custom match before swap, got %+v", got)
		}

		lib.Swap(NewTemplateSet([]Template{{Name: "rock", Samples: [][]detector.Point3D{rock.Points}}}))

		if got := c.Classify(rock.Points, "right"); got.Gesture != "rock" {
			t.Errorf("expected rock after swap, got %+v", got)
		}
	})
}

func TestFuse(t *testing.T) {
	tests := []struct {
		name        string
		customConf  float64
		builtinConf float64
		wantGesture string
		wantKind    Kind
	}{
		{"strong custom beats perfect builtin", 0.65, 1.0, "wave", KindCustom},
		{"strong custom without builtin", 0.9, 0, "wave", KindCustom},
		{"weak custom beats weak builtin", 0.6, 0.79, "wave", KindCustom},
		{"weak custom loses to strong builtin", 0.6, 0.8, Peace, KindBuiltin},
		{"weak custom at lower bound", 0.5, 0.6, "wave", KindCustom},
		{"custom below lower bound", 0.49, 0.6, Peace, KindBuiltin},
		{"custom below bound and no builtin", 0.3, 0, Unknown, KindNone},
		{"nothing", 0, 0, Unknown, KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builtinName := Unknown
			if tt.builtinConf > 0 {
				builtinName = Peace
			}
			got := fuse("wave", tt.customConf, builtinName, tt.builtinConf, "right")
			if got.Gesture != tt.wantGesture || got.Kind != tt.wantKind {
				t.Errorf("got %s/%s, want %s/%s", got.Gesture, got.Kind, tt.wantGesture, tt.wantKind)
			}
			if tt.wantKind == KindNone && got.Confidence != 0 {
				t.Errorf("expected zero confidence, got %f", got.Confidence)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	a := detector.Normalize(detector.PeaceLandmarks().Points)
	b := detector.Normalize(detector.FistLandmarks().Points)

	if got := similarity(a, a, DefaultSensitivity); !floatEqual(got, 1.0) {
		t.Errorf("expected identical sets to score 1.0, got %f", got)
	}
	if got := similarity(a, b, DefaultSensitivity); got <= 0 || got >= 1 {
		t.Errorf("expected score in (0, 1), got %f", got)
	}
	if got := similarity(a, a[:20], DefaultSensitivity); got != 0 {
		t.Errorf("expected length mismatch to score 0, got %f", got)
	}
	if sharp, soft := similarity(a, b, 16), similarity(a, b, 4); sharp >= soft {
		t.Errorf("expected higher sensitivity to lower the score: %f vs %f", sharp, soft)
	}
}

func TestTemplateSet(t *testing.T) {
	set := NewTemplateSet([]Template{
		{Name: "wave", Samples: [][]detector.Point3D{detector.PeaceLandmarks().Points}},
		{Name: "rock", Samples: [][]detector.Point3D{detector.FistLandmarks().Points}},
		{Name: "wave", Samples: [][]detector.Point3D{detector.PointLandmarks().Points}},
	})

	if set.Len() != 2 {
		t.Fatalf("expected 2 templates, got %d", set.Len())
	}
	names := set.Names()
	if len(names) != 2 || names[0] != "rock" || names[1] != "wave" {
		t.Errorf("unexpected names %v", names)
	}

	var empty *TemplateSet
	if empty.Len() != 0 || empty.Names() != nil {
		t.Error("expected nil set to be empty")
	}
}
