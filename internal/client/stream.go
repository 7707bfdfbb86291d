package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/capture"
)

// DefaultQuality is the JPEG quality of streamed frames.
const DefaultQuality = 70

// FrameSender is the part of Client the Streamer uses.
type FrameSender interface {
	SendFrame(frame string) (int64, bool, error)
	Done() <-chan struct{}
	Err() error
}

// Stats counts what the Streamer did with captured frames.
type Stats struct {
	Sent    int
	Skipped int
	Failed  int
}

// Streamer reads frames from a camera and sends them through a FrameSender,
// raising the frame rate while there is motion.
type Streamer struct {
	camera   capture.Camera
	sender   FrameSender
	motion   *capture.MotionDetector
	activity *capture.Activity
	quality  int
	logger   zerolog.Logger
	now      func() time.Time

	stats Stats
}

// NewStreamer creates a Streamer. A nil motion detector streams at the idle
// rate only.
func NewStreamer(camera capture.Camera, sender FrameSender, motion *capture.MotionDetector, logger zerolog.Logger) *Streamer {
	return &Streamer{
		camera:   camera,
		sender:   sender,
		motion:   motion,
		activity: capture.NewActivity(),
		quality:  DefaultQuality,
		logger:   logger.With().Str("component", "streamer").Logger(),
		now:      time.Now,
	}
}

// SetQuality sets the JPEG quality, 1-100.
func (s *Streamer) SetQuality(q int) {
	if q >= 1 && q <= 100 {
		s.quality = q
	}
}

// Stats returns the frame counters.
func (s *Streamer) Stats() Stats {
	return s.stats
}

// Run streams until ctx is done or the connection ends.
func (s *Streamer) Run(ctx context.Context) error {
	if !s.camera.IsOpen() {
		if err := s.camera.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
	}
	defer s.camera.Close()

	s.camera.SetFPS(s.activity.FPS())
	ticker := time.NewTicker(interval(s.activity.FPS()))
	defer ticker.Stop()

	s.logger.Info().Int("fps", s.activity.FPS()).Msg("streaming")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Int("sent", s.stats.Sent).Int("skipped", s.stats.Skipped).Msg("stopped")
			return nil
		case <-s.sender.Done():
			return s.sender.Err()
		case <-ticker.C:
			fps, changed, err := s.step()
			if err != nil {
				s.logger.Warn().Err(err).Msg("frame")
			}
			if changed {
				s.logger.Debug().Int("fps", fps).Bool("active", s.activity.Active()).Msg("frame rate changed")
				s.camera.SetFPS(fps)
				ticker.Reset(interval(fps))
			}
		}
	}
}

// step captures and sends one frame. It returns the frame rate to use next.
func (s *Streamer) step() (int, bool, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		s.stats.Failed++
		return s.activity.FPS(), false, err
	}
	defer frame.Close()

	fps, changed := s.activity.FPS(), false
	if s.motion != nil {
		moving, _ := s.motion.Detect(frame)
		fps, changed = s.activity.Update(moving, s.now())
	}

	encoded, err := capture.EncodeFrame(frame, s.quality)
	if err != nil {
		s.stats.Failed++
		return fps, changed, err
	}

	_, sent, err := s.sender.SendFrame(encoded)
	switch {
	case err != nil:
		s.stats.Failed++
	case sent:
		s.stats.Sent++
	default:
		s.stats.Skipped++
	}
	return fps, changed, err
}

func interval(fps int) time.Duration {
	if fps < 1 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}
