package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/peacecam/internal/capture"
	"github.com/ayusman/peacecam/internal/detector"
	"github.com/ayusman/peacecam/internal/gesture"
	"github.com/ayusman/peacecam/internal/log"
	"github.com/ayusman/peacecam/internal/overlay"
	"github.com/ayusman/peacecam/internal/server"
	"github.com/ayusman/peacecam/internal/trigger"
	"gocv.io/x/gocv"
)

// ProcessFrame runs one frame through the pipeline:
//
//  1. mirror the frame if configured
//  2. detect hands; a detector error or a pause counts as no hands
//  3. classify and aggregate into one frame signal
//  4. advance the trigger with the signal and the clock
//  5. on fire, encode the clean frame and hand it to the dispatcher
//  6. draw the overlay on a copy and show it
//
// The caller keeps ownership of frame.
func (a *App) ProcessFrame(ctx context.Context, frame *gocv.Mat) FrameResult {
	if a.config.Mirror {
		gocv.Flip(*frame, frame, 1)
	}

	hands := a.detect(frame)
	sig := gesture.Aggregate(hands)
	outcome := a.machine.Advance(sig)
	a.logTransition(sig, outcome)

	res := FrameResult{Hands: len(hands), Signal: sig, Outcome: outcome}

	if outcome.Action == trigger.ActionFire {
		saved, err := a.capture(ctx, frame)
		if err != nil {
			res.CaptureErr = err
			log.Error(log.Fields{"error": err}, "selfie not saved")
		} else {
			res.Capture = &saved
		}
	}

	annotated := frame.Clone()
	defer annotated.Close()

	overlay.Draw(&annotated, overlay.Status{Hands: hands, Signal: sig, Outcome: outcome})
	res.Quit = a.sink.Show(&annotated)
	a.publish(&annotated, sig, outcome)

	return res
}

func (a *App) detect(frame *gocv.Mat) []detector.HandPose {
	if a.detector == nil || a.Paused() {
		return nil
	}
	hands, err := a.detector.Detect(frame)
	if err != nil {
		log.Warn(log.Fields{"error": err}, "hand detection failed, frame treated as empty")
		return nil
	}
	return hands
}

// capture encodes the unannotated frame and persists it once.
func (a *App) capture(ctx context.Context, frame *gocv.Mat) (capture.Result, error) {
	data, err := encode(frame, a.config.Format)
	if err != nil {
		return capture.Result{}, fmt.Errorf("%w: %w", capture.ErrStorage, err)
	}
	if a.dispatcher == nil {
		return capture.Result{}, fmt.Errorf("%w: no dispatcher", capture.ErrStorage)
	}

	req := capture.NewRequest(data, a.config.Format, a.machine.LastStep())
	return a.dispatcher.Dispatch(context.WithoutCancel(ctx), req)
}

func (a *App) logTransition(sig gesture.FrameSignal, o trigger.Outcome) {
	switch o.Action {
	case trigger.ActionArm:
		log.Info(log.Fields{"remaining": o.Remaining}, "peace sign detected, countdown started")
	case trigger.ActionCountdown:
		log.Debug(log.Fields{"remaining": o.Remaining}, "countdown")
	case trigger.ActionReset:
		log.Info(nil, "gesture lost, countdown reset")
	case trigger.ActionFire:
		log.Info(nil, "countdown complete, taking selfie")
	case trigger.ActionSuppressed:
		log.Debug(log.Fields{"signal": sig.String()}, "cooldown active, not arming")
	}
}

// publish feeds the preview hub: frames at most PreviewFPS times a second,
// status events whenever they change.
func (a *App) publish(annotated *gocv.Mat, sig gesture.FrameSignal, o trigger.Outcome) {
	if a.hub == nil {
		return
	}

	if a.limiter.Allow() {
		if data, err := encode(annotated, "jpg"); err == nil {
			a.hub.PublishFrame(data)
		} else {
			log.Debug(log.Fields{"error": err}, "encode preview frame")
		}
	}

	ev := server.Event{
		Type:      server.EventStatus,
		Signal:    sig.String(),
		Action:    o.Action.String(),
		Remaining: o.Remaining,
	}
	if ev != a.lastEvent {
		a.lastEvent = ev
		a.hub.PublishEvent(ev)
	}
}

var errEmptyFrame = errors.New("empty frame")

// encode returns frame as an image file in format, copied into Go memory.
func encode(frame *gocv.Mat, format string) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, errEmptyFrame
	}

	buf, err := gocv.IMEncode(gocv.FileExt("."+format), *frame)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
