// Package gesture classifies a single frame's hand landmarks into a named
// gesture, combining fixed finger-state rules with user-trained templates.
package gesture

// Built-in gesture names, plus Unknown for anything that clears no threshold.
const (
	Peace       = "peace"
	ThumbsUp    = "thumbs_up"
	Fist        = "fist"
	Point       = "point"
	Stop        = "stop"
	FourFingers = "four_fingers"
	Unknown     = "unknown"
)

// Kind records which path produced a Result.
type Kind string

const (
	KindBuiltin Kind = "builtin"
	KindCustom  Kind = "custom"
	KindNone    Kind = "none"
)

// Result is the classification of one hand in one frame.
type Result struct {
	Gesture    string  `json:"gesture"`
	Confidence float64 `json:"confidence"`
	Hand       string  `json:"hand"`
	Kind       Kind    `json:"type"`
}

// IsUnknown reports whether r carries no usable gesture.
func (r Result) IsUnknown() bool {
	return r.Gesture == "" || r.Gesture == Unknown
}

func unknown(hand string) Result {
	return Result{Gesture: Unknown, Confidence: 0, Hand: hand, Kind: KindNone}
}
