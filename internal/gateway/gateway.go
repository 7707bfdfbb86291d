// Package gateway serves the frame ingest protocol over WebSocket: it
// decodes sequenced frames, runs detection and classification, and answers
// with gesture, combo and acknowledgement messages.
package gateway

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/visionctl/internal/capture"
	"github.com/ayusman/visionctl/internal/combo"
	"github.com/ayusman/visionctl/internal/detector"
	"github.com/ayusman/visionctl/internal/gesture"
	"github.com/ayusman/visionctl/internal/metrics"
	"github.com/ayusman/visionctl/internal/stabilize"
)

// maxMessageSize bounds a single inbound message. A 320x240 JPEG in base64
// is well under 100KB; full resolution camera frames stay below this.
const maxMessageSize = 8 << 20

// Observer is told about everything a session delivers to its client.
// Calls happen on the session goroutine and must not block.
type Observer interface {
	GestureEmitted(session string, e stabilize.Event)
	ComboMatched(session string, m *combo.Match)
}

// DecodeFunc turns a wire frame into a Mat of the given size.
type DecodeFunc func(data string, width, height int) (*gocv.Mat, error)

// Options configures a Handler.
type Options struct {
	Detector   detector.Detector
	Classifier *gesture.Classifier
	Catalog    *combo.Catalog

	Stabilizer stabilize.Config
	Combo      combo.Config

	FrameWidth  int
	FrameHeight int

	Metrics  *metrics.Metrics
	Observer Observer
	Logger   zerolog.Logger

	// Decode defaults to capture.DecodeFrame.
	Decode DecodeFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler accepts WebSocket connections and runs one session per
// connection. Sessions share only the detector, the classifier and the
// combo catalog.
type Handler struct {
	opts     Options
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	enabled  atomic.Bool
	sessions atomic.Int64
}

// NewHandler creates an enabled Handler.
func NewHandler(opts Options) *Handler {
	if opts.Decode == nil {
		opts.Decode = capture.DecodeFrame
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Stabilizer == (stabilize.Config{}) {
		opts.Stabilizer = stabilize.DefaultConfig()
	}
	if opts.Combo == (combo.Config{}) {
		opts.Combo = combo.DefaultConfig()
	}
	if opts.Catalog == nil {
		opts.Catalog = combo.NewCatalog(nil)
	}
	if opts.FrameWidth <= 0 || opts.FrameHeight <= 0 {
		opts.FrameWidth, opts.FrameHeight = 320, 240
	}

	h := &Handler{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local clients only
			},
		},
	}
	h.enabled.Store(true)
	return h
}

// SetEnabled pauses or resumes recognition. A paused gateway still
// acknowledges every frame.
func (h *Handler) SetEnabled(enabled bool) {
	if h.enabled.Swap(enabled) != enabled {
		h.logger.Info().Bool("enabled", enabled).Msg("recognition toggled")
	}
}

// Enabled reports whether frames are being recognized.
func (h *Handler) Enabled() bool {
	return h.enabled.Load()
}

// Sessions returns the number of open connections.
func (h *Handler) Sessions() int {
	return int(h.sessions.Load())
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects or a send fails.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	s := h.newSession(conn)

	h.sessions.Add(1)
	h.opts.Metrics.ConnectionOpened()
	s.logger.Info().Str("remote", r.RemoteAddr).Msg("client connected")
	defer func() {
		h.sessions.Add(-1)
		h.opts.Metrics.ConnectionClosed()
	}()

	if err := s.run(); err != nil {
		s.logger.Info().Err(err).Msg("session ended")
		return
	}
	s.logger.Info().Msg("client disconnected")
}

func (h *Handler) newSession(conn *websocket.Conn) *session {
	id := uuid.NewString()
	return &session{
		id:         id,
		h:          h,
		conn:       conn,
		logger:     h.logger.With().Str("session", id).Logger(),
		stabilizer: stabilize.NewWithClock(h.opts.Stabilizer, h.opts.Now),
		combos:     combo.NewWithClock(h.opts.Combo, h.opts.Catalog, h.opts.Now),
	}
}
