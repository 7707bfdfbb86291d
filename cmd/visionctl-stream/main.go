package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/visionctl/internal/capture"
	"github.com/ayusman/visionctl/internal/client"
	"github.com/ayusman/visionctl/internal/logging"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:8765/ws/gestures", "gateway WebSocket URL")
	device := flag.Int("camera", 0, "camera device id")
	width := flag.Int("width", capture.DefaultWidth, "capture width")
	height := flag.Int("height", capture.DefaultHeight, "capture height")
	window := flag.Int("window", client.DefaultWindow, "frames that may await acknowledgement")
	quality := flag.Int("quality", client.DefaultQuality, "JPEG quality, 1-100")
	motion := flag.Float64("motion", 1.0, "percent of changed pixels that counts as motion")
	acks := flag.Bool("acks", false, "print frame acknowledgements")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logging.New(logging.Options{App: "visionctl-stream", Level: *level})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := client.NewPrinter(os.Stdout)
	printer.Acks = *acks

	c, err := client.Dial(ctx, *url, client.Options{
		Window:    *window,
		OnMessage: printer.Print,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}
	defer c.Close()

	detector := capture.NewMotionDetector(*motion)
	defer detector.Close()

	s := client.NewStreamer(capture.NewCamera(*device, *width, *height), c, detector, logger)
	s.SetQuality(*quality)

	if err := s.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("stream ended")
		stop()
		c.Close()
		os.Exit(1)
	}
}
