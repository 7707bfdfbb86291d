package gesture

import "github.com/ayusman/visionctl/internal/detector"

const (
	thumbExtensionRatio  = 1.2
	fingerExtensionRatio = 1.4
	// fingerTipSlack lets an extended finger tilt slightly downward.
	fingerTipSlack = 0.01
	// minBuiltinConfidence is three of five fingers agreeing.
	minBuiltinConfidence = 0.6
)

// FingerStates holds extension flags in thumb, index, middle, ring, pinky order.
type FingerStates [5]bool

type fingerJoints struct {
	tip, joint, base int
}

var fingers = [4]fingerJoints{
	{detector.IndexTip, detector.IndexPIP, detector.IndexMCP},
	{detector.MiddleTip, detector.MiddlePIP, detector.MiddleMCP},
	{detector.RingTip, detector.RingPIP, detector.RingMCP},
	{detector.PinkyTip, detector.PinkyPIP, detector.PinkyMCP},
}

type pattern struct {
	name   string
	states FingerStates
}

// Evaluated in order; an earlier pattern keeps a tie.
var builtinPatterns = []pattern{
	{Peace, FingerStates{false, true, true, false, false}},
	{ThumbsUp, FingerStates{true, false, false, false, false}},
	{Fist, FingerStates{false, false, false, false, false}},
	{Point, FingerStates{false, true, false, false, false}},
	{Stop, FingerStates{true, true, true, true, true}},
	{FourFingers, FingerStates{false, true, true, true, true}},
}

// Fingers computes which fingers are extended. points must hold
// detector.NumLandmarks entries.
func Fingers(points []detector.Point3D) FingerStates {
	var s FingerStates

	wrist := points[detector.Wrist]
	s[0] = wrist.Distance(points[detector.ThumbTip]) >
		thumbExtensionRatio*wrist.Distance(points[detector.ThumbMCP])

	for i, f := range fingers {
		tip, joint, base := points[f.tip], points[f.joint], points[f.base]
		s[i+1] = tip.Distance(base) > fingerExtensionRatio*joint.Distance(base) &&
			tip.Y < joint.Y+fingerTipSlack
	}
	return s
}

// classifyBuiltin returns the best matching pattern name and its agreement
// ratio, or Unknown and 0 when fewer than three fingers agree.
func classifyBuiltin(states FingerStates) (string, float64) {
	return matchPatterns(states, builtinPatterns)
}

func matchPatterns(states FingerStates, patterns []pattern) (string, float64) {
	best, bestConf := Unknown, 0.0
	for _, p := range patterns {
		matches := 0
		for i := range states {
			if states[i] == p.states[i] {
				matches++
			}
		}
		if conf := float64(matches) / float64(len(states)); conf > bestConf {
			best, bestConf = p.name, conf
		}
	}

	if bestConf < minBuiltinConfidence {
		return Unknown, 0
	}
	return best, bestConf
}
