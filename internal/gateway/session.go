package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/capture"
	"github.com/ayusman/visionctl/internal/combo"
	"github.com/ayusman/visionctl/internal/metrics"
	"github.com/ayusman/visionctl/internal/stabilize"
)

// session is one connection. Everything here is owned by the session
// goroutine: frames are handled one at a time, in receipt order, and every
// write happens on that goroutine.
type session struct {
	id     string
	h      *Handler
	conn   *websocket.Conn
	logger zerolog.Logger

	stabilizer *stabilize.Stabilizer
	combos     *combo.Detector
}

// errSend wraps a failed write; it ends the session.
type errSend struct{ err error }

func (e errSend) Error() string { return "send: " + e.err.Error() }
func (e errSend) Unwrap() error { return e.err }

// run returns nil on a normal disconnect and an error when a send failed.
func (s *session) run() error {
	if err := s.send(Status{
		Type:      TypeStatus,
		Message:   connectedMessage,
		Timestamp: s.h.opts.Now().UnixMilli(),
	}); err != nil {
		return err
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Debug().Err(err).Msg("read failed")
			}
			return nil
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug().Err(err).Msg("ignoring invalid message")
			continue
		}

		if err := s.dispatch(msg); err != nil {
			return err
		}
	}
}

func (s *session) dispatch(msg Inbound) error {
	switch msg.Type {
	case TypeVideoFrame:
		return s.handleFrame(msg)
	case TypePing:
		return s.send(Pong{Type: TypePong, Timestamp: msg.Timestamp})
	case TypeSubscribe:
		return s.send(Subscribed{Type: TypeSubscribed, Message: subscribedMessage})
	default:
		s.logger.Debug().Str("type", msg.Type).Msg("ignoring unknown message type")
		return nil
	}
}

// handleFrame runs one frame through the pipeline. Whatever happens to the
// frame, the last message sent for it is its frame_ack.
func (s *session) handleFrame(msg Inbound) error {
	start := s.h.opts.Now()
	seq := msg.Sequence

	outcome, err := s.process(msg, start)
	s.h.opts.Metrics.RecordFrame(outcome, s.h.opts.Now().Sub(start))
	if err != nil {
		return err
	}

	return s.send(FrameAck{
		Type:      TypeFrameAck,
		Sequence:  seq,
		Timestamp: s.h.opts.Now().UnixMilli(),
	})
}

func (s *session) process(msg Inbound, start time.Time) (string, error) {
	if !s.h.Enabled() {
		return metrics.FramePaused, nil
	}

	seq := msg.Sequence
	if msg.invalid != nil {
		s.logger.Debug().Err(msg.invalid).Int64("sequence", seq).Msg("invalid frame message")
		return metrics.FrameMalformed, s.sendError(msg.invalid.Error(), seq)
	}
	if strings.TrimSpace(msg.Frame) == "" {
		return metrics.FrameMalformed, s.sendError(emptyFrameMessage, seq)
	}

	frame, err := s.h.opts.Decode(msg.Frame, s.h.opts.FrameWidth, s.h.opts.FrameHeight)
	if err != nil {
		s.logger.Debug().Err(err).Int64("sequence", seq).Msg("frame decode failed")
		if errors.Is(err, capture.ErrEmptyFrame) {
			return metrics.FrameMalformed, s.sendError(emptyFrameMessage, seq)
		}
		return metrics.FrameMalformed, s.sendError(err.Error(), seq)
	}

	hands, err := s.h.opts.Detector.Detect(frame)
	frame.Close()
	if err != nil {
		s.logger.Debug().Err(err).Int64("sequence", seq).Msg("hand detection failed")
		return metrics.FrameFailed, s.sendError(fmt.Sprintf("detection failed: %v", err), seq)
	}

	clientTS := msg.millis(start.UnixMilli())

	if len(hands) == 0 {
		if ev, ok := s.stabilizer.NoHand(); ok {
			if err := s.emit(ev, clientTS, seq, start); err != nil {
				return metrics.FrameNoHand, err
			}
		}
		return metrics.FrameNoHand, nil
	}

	hand := hands[0]
	result := s.h.opts.Classifier.Classify(hand.Points, hand.Handedness)

	if ev, ok := s.stabilizer.Observe(result); ok {
		if err := s.emit(ev, clientTS, seq, start); err != nil {
			return metrics.FrameOK, err
		}
	}

	// Check runs on every hand frame, so a match held back by the cooldown
	// can still fire while the hand shows nothing recognizable.
	if !result.IsUnknown() {
		s.combos.Add(result.Gesture, result.Confidence, result.Hand)
	}
	if m := s.combos.Check(); m != nil {
		if err := s.send(newComboDetected(m)); err != nil {
			return metrics.FrameOK, err
		}
		s.logger.Info().Str("combo", m.Name).Float64("confidence", m.Confidence).Msg("combo detected")
		s.h.opts.Metrics.RecordCombo(m.Name)
		if s.h.opts.Observer != nil {
			s.h.opts.Observer.ComboMatched(s.id, m)
		}
	}

	return metrics.FrameOK, nil
}

// emit sends a stabilizer event and commits it only once the send succeeded.
func (s *session) emit(ev stabilize.Event, clientTS, seq int64, start time.Time) error {
	msg := GestureDetected{
		Type:             TypeGestureDetected,
		Confidence:       ev.Confidence,
		Timestamp:        clientTS,
		Sequence:         seq,
		ProcessingTimeMS: s.h.opts.Now().Sub(start).Milliseconds(),
	}
	if !ev.Cleared {
		name, hand := ev.Gesture, ev.Hand
		msg.Gesture, msg.Hand = &name, &hand
	}

	if err := s.send(msg); err != nil {
		return err
	}
	s.stabilizer.Commit(ev)

	if ev.Cleared {
		s.logger.Debug().Msg("gesture cleared")
		s.h.opts.Metrics.RecordGesture("", "none")
	} else {
		s.logger.Debug().
			Str("gesture", ev.Gesture).
			Float64("confidence", ev.Confidence).
			Bool("changed", ev.Changed).
			Msg("gesture emitted")
		s.h.opts.Metrics.RecordGesture(ev.Gesture, string(ev.Kind))
	}
	if s.h.opts.Observer != nil {
		s.h.opts.Observer.GestureEmitted(s.id, ev)
	}
	return nil
}

func (s *session) sendError(message string, seq int64) error {
	return s.send(Error{Type: TypeError, Message: message, Sequence: &seq})
}

func (s *session) send(v any) error {
	if err := s.conn.WriteJSON(v); err != nil {
		s.h.opts.Metrics.RecordSendFailure()
		return errSend{err}
	}
	return nil
}
