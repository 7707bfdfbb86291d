package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/ayusman/visionctl/internal/capture"
	"github.com/ayusman/visionctl/internal/combo"
)

// Message types.
const (
	TypeVideoFrame      = "video_frame"
	TypePing            = "ping"
	TypePong            = "pong"
	TypeSubscribe       = "subscribe"
	TypeSubscribed      = "subscribed"
	TypeStatus          = "status"
	TypeGestureDetected = "gesture_detected"
	TypeComboDetected   = "combo_detected"
	TypeFrameAck        = "frame_ack"
	TypeError           = "error"
)

const (
	connectedMessage  = "Connected to Vision Controller"
	subscribedMessage = "Subscribed to gesture updates"
	emptyFrameMessage = "Empty frame data"
)

// errInvalidSequence is reported for a sequence that is not an integer.
var errInvalidSequence = errors.New("invalid sequence")

// Inbound is any client message. Timestamp is kept raw so ping can echo
// whatever the client sent.
type Inbound struct {
	Type      string          `json:"type"`
	Frame     string          `json:"frame,omitempty"`
	Sequence  int64           `json:"sequence,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`

	// invalid is set when frame or sequence had the wrong type. The message
	// still decodes so the frame can be answered with an error and an ack.
	invalid error
}

// UnmarshalJSON fails only when the message is not an object or its type is
// not a string. Frame and sequence are checked one at a time.
func (m *Inbound) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      string          `json:"type"`
		Frame     json.RawMessage `json:"frame"`
		Sequence  json.RawMessage `json:"sequence"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Inbound{Type: raw.Type, Timestamp: raw.Timestamp}

	seq, err := parseSequence(raw.Sequence)
	if err != nil {
		m.invalid = err
	}
	m.Sequence = seq

	if !isNull(raw.Frame) {
		if err := json.Unmarshal(raw.Frame, &m.Frame); err != nil && m.invalid == nil {
			m.invalid = capture.ErrMalformedFrame
		}
	}
	return nil
}

// parseSequence accepts any JSON number with an integer value, so 5 and
// 5.0e0 are the same sequence. A missing or null sequence is 0.
func parseSequence(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		return 0, errInvalidSequence
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errInvalidSequence
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, errInvalidSequence
	}
	return int64(f), nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// millis reads Timestamp as epoch milliseconds, falling back to def.
func (m Inbound) millis(def int64) int64 {
	if isNull(m.Timestamp) {
		return def
	}
	var v float64
	if err := json.Unmarshal(m.Timestamp, &v); err != nil || math.IsNaN(v) {
		return def
	}
	return int64(v)
}

type Status struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type Pong struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type Subscribed struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GestureDetected reports a stabilized gesture change, refresh or clear.
// A clear has nil Gesture and Hand.
type GestureDetected struct {
	Type             string  `json:"type"`
	Gesture          *string `json:"gesture"`
	Confidence       float64 `json:"confidence"`
	Hand             *string `json:"hand"`
	Timestamp        int64   `json:"timestamp"`
	Sequence         int64   `json:"sequence"`
	ProcessingTimeMS int64   `json:"processing_time_ms"`
}

// MatchedGesture is one history entry of a combo match. Timestamp is epoch
// seconds.
type MatchedGesture struct {
	Gesture    string  `json:"gesture"`
	Confidence float64 `json:"confidence"`
	Timestamp  float64 `json:"timestamp"`
	Hand       string  `json:"hand"`
}

type ComboDetected struct {
	Type            string           `json:"type"`
	ComboName       string           `json:"combo_name"`
	Sequence        []string         `json:"sequence"`
	Confidence      float64          `json:"confidence"`
	Action          string           `json:"action"`
	Description     string           `json:"description"`
	Params          json.RawMessage  `json:"params,omitempty"`
	MatchedGestures []MatchedGesture `json:"matched_gestures"`
	Timestamp       int64            `json:"timestamp"`
}

type FrameAck struct {
	Type      string `json:"type"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

type Error struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Sequence *int64 `json:"sequence,omitempty"`
}

func newComboDetected(m *combo.Match) ComboDetected {
	matched := make([]MatchedGesture, len(m.MatchedGestures))
	for i, e := range m.MatchedGestures {
		matched[i] = MatchedGesture{
			Gesture:    e.Gesture,
			Confidence: e.Confidence,
			Timestamp:  float64(e.Timestamp.UnixNano()) / float64(time.Second),
			Hand:       e.Hand,
		}
	}
	return ComboDetected{
		Type:            TypeComboDetected,
		ComboName:       m.Name,
		Sequence:        m.Sequence,
		Confidence:      m.Confidence,
		Action:          m.Action,
		Description:     m.Description,
		Params:          m.Params,
		MatchedGestures: matched,
		Timestamp:       m.Timestamp.UnixMilli(),
	}
}
