package gesture

import (
	"math"

	"github.com/ayusman/visionctl/internal/detector"
)

// DefaultSensitivity is k in similarity = exp(-k * mean point distance).
const DefaultSensitivity = 8.0

// Fusion thresholds between the custom and built-in paths.
const (
	customStrongConfidence  = 0.65
	customWeakConfidence    = 0.50
	builtinStrongConfidence = 0.80
)

// Classifier maps one hand's landmarks to a Result. It is safe for
// concurrent use; templates are read from the library's current snapshot.
type Classifier struct {
	library     *Library
	sensitivity float64
}

// NewClassifier creates a classifier over library. A non-positive
// sensitivity selects DefaultSensitivity.
func NewClassifier(library *Library, sensitivity float64) *Classifier {
	if library == nil {
		library = NewLibrary(nil)
	}
	if sensitivity <= 0 {
		sensitivity = DefaultSensitivity
	}
	return &Classifier{library: library, sensitivity: sensitivity}
}

// Library returns the template library backing the classifier.
func (c *Classifier) Library() *Library {
	return c.library
}

// Classify returns the gesture for points. Anything other than exactly
// detector.NumLandmarks points yields Unknown with zero confidence.
func (c *Classifier) Classify(points []detector.Point3D, hand string) Result {
	hand = detector.NormalizeHand(hand)
	if len(points) != detector.NumLandmarks {
		return unknown(hand)
	}

	customName, customConf := c.matchCustom(points)
	builtinName, builtinConf := classifyBuiltin(Fingers(points))

	return fuse(customName, customConf, builtinName, builtinConf, hand)
}

// matchCustom returns the best template across the current snapshot.
// Each template scores the best of its samples; the first template keeps ties.
func (c *Classifier) matchCustom(points []detector.Point3D) (string, float64) {
	set := c.library.Load()
	if set.Len() == 0 {
		return "", 0
	}

	input := detector.Normalize(points)
	best, bestConf := "", 0.0
	for _, t := range set.templates {
		conf := 0.0
		for _, sample := range t.samples {
			if s := similarity(input, sample, c.sensitivity); s > conf {
				conf = s
			}
		}
		if conf > bestConf {
			best, bestConf = t.name, conf
		}
	}
	return best, bestConf
}

// similarity compares two normalized landmark sets. Sets of different
// length never match.
func similarity(a, b []detector.Point3D, k float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	total := 0.0
	for i := range a {
		total += a[i].Distance(b[i])
	}
	return math.Exp(-k * total / float64(len(a)))
}

func fuse(customName string, customConf float64, builtinName string, builtinConf float64, hand string) Result {
	switch {
	case customConf >= customStrongConfidence:
		return Result{Gesture: customName, Confidence: customConf, Hand: hand, Kind: KindCustom}
	case customConf >= customWeakConfidence && builtinConf < builtinStrongConfidence:
		return Result{Gesture: customName, Confidence: customConf, Hand: hand, Kind: KindCustom}
	case builtinConf > 0:
		return Result{Gesture: builtinName, Confidence: builtinConf, Hand: hand, Kind: KindBuiltin}
	default:
		return unknown(hand)
	}
}
