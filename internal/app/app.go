// Package app wires the camera, detector, trigger and capture into the
// frame loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ayusman/peacecam/internal/capture"
	"github.com/ayusman/peacecam/internal/detector"
	"github.com/ayusman/peacecam/internal/display"
	"github.com/ayusman/peacecam/internal/gesture"
	"github.com/ayusman/peacecam/internal/log"
	"github.com/ayusman/peacecam/internal/server"
	"github.com/ayusman/peacecam/internal/trigger"
	"golang.org/x/time/rate"
)

// ErrSourceUnavailable ends the loop when the camera cannot deliver frames.
var ErrSourceUnavailable = errors.New("video source unavailable")

// DefaultPreviewFPS caps how often annotated frames are encoded for the preview.
const DefaultPreviewFPS = 10

// Config holds configuration options for the application.
type Config struct {
	Trigger trigger.Config
	// Clock drives the trigger. Nil uses the system clock.
	Clock trigger.Clock
	// Mirror flips frames horizontally before detection for a selfie view.
	Mirror bool
	// Format is the saved image format, "jpg" or "png".
	Format     string
	PreviewFPS int
}

// DefaultConfig returns the default trigger timing with mirroring on.
func DefaultConfig() Config {
	return Config{
		Trigger:    trigger.DefaultConfig(),
		Mirror:     true,
		Format:     "jpg",
		PreviewFPS: DefaultPreviewFPS,
	}
}

// App is the main application that turns frames into captures.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	dispatcher *capture.Dispatcher
	machine    *trigger.Machine
	sink       display.Sink
	hub        *server.Hub
	limiter    *rate.Limiter
	lastEvent  server.Event
	paused     atomic.Bool
}

// New creates an App. The display defaults to headless until SetDisplay.
func New(config Config, camera capture.Camera, det detector.Detector, dispatcher *capture.Dispatcher) *App {
	config.Format = strings.TrimPrefix(strings.ToLower(config.Format), ".")
	if config.Format == "" {
		config.Format = "jpg"
	}
	if config.PreviewFPS <= 0 {
		config.PreviewFPS = DefaultPreviewFPS
	}

	return &App{
		config:     config,
		camera:     camera,
		detector:   det,
		dispatcher: dispatcher,
		machine:    trigger.NewMachine(config.Trigger, config.Clock),
		sink:       display.Headless{},
		limiter:    rate.NewLimiter(rate.Limit(config.PreviewFPS), 1),
	}
}

// SetDisplay sets where annotated frames are shown.
func (a *App) SetDisplay(s display.Sink) {
	a.sink = s
}

// SetPreview publishes annotated frames and status events to hub.
func (a *App) SetPreview(hub *server.Hub) {
	a.hub = hub
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// SetPaused stops hand detection while paused. Frames keep flowing to the
// display and preview, and every paused frame reads as no gesture, so an
// armed countdown resets. Safe to call from any goroutine.
func (a *App) SetPaused(paused bool) {
	if a.paused.Swap(paused) != paused {
		log.Info(log.Fields{"paused": paused}, "detection toggled")
	}
}

// Paused reports whether detection is paused.
func (a *App) Paused() bool {
	return a.paused.Load()
}

// State returns the current trigger state.
func (a *App) State() trigger.State {
	return a.machine.State()
}

// Run opens the camera and processes frames until ctx is canceled, the
// display asks to quit, or the camera fails. Only the last case returns an
// error, wrapping ErrSourceUnavailable.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			log.Warn(log.Fields{"error": err}, "close camera")
		}
	}()

	log.Info(log.Fields{
		"threshold": a.config.Trigger.Threshold.String(),
		"cooldown":  a.config.Trigger.Cooldown.String(),
		"mirror":    a.config.Mirror,
	}, "detection loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info(nil, "detection loop stopped")
			return nil
		default:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}

		res := a.ProcessFrame(ctx, frame)
		frame.Close()

		if res.Quit {
			log.Info(nil, "quit requested from display")
			return nil
		}
	}
}

// Close releases the detector and the display.
func (a *App) Close() error {
	var errs []error
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	return errors.Join(errs...)
}

// FrameResult reports what one frame did.
type FrameResult struct {
	Hands   int
	Signal  gesture.FrameSignal
	Outcome trigger.Outcome
	// Capture is set when a fire was persisted.
	Capture *capture.Result
	// CaptureErr is set when a fire could not be persisted.
	CaptureErr error
	Quit       bool
}
