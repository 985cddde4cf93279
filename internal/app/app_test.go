package app

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/peacecam/internal/capture"
	"github.com/ayusman/peacecam/internal/detector"
	"github.com/ayusman/peacecam/internal/gesture"
	"github.com/ayusman/peacecam/internal/server"
	"github.com/ayusman/peacecam/internal/trigger"
	"gocv.io/x/gocv"
)

var epoch = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type recordingStorage struct {
	mu      sync.Mutex
	objects []capture.Object
	calls   int
	err     error
}

func (s *recordingStorage) Save(_ context.Context, obj capture.Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	s.objects = append(s.objects, obj)
	return "/captures/" + obj.Name, nil
}

// steppingClock advances by step after every reading, one reading per frame.
type steppingClock struct {
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type quitAfter struct {
	n, shown int
}

func (q *quitAfter) Show(*gocv.Mat) bool {
	q.shown++
	return q.shown >= q.n
}

func (q *quitAfter) Close() error { return nil }

func peace() []detector.HandPose {
	return []detector.HandPose{detector.PeaceSignLandmarks()}
}

func blankFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func newTestApp(clock trigger.Clock, cooldown time.Duration, cam capture.Camera, det detector.Detector, store capture.Storage) *App {
	cfg := DefaultConfig()
	cfg.Trigger = trigger.Config{Threshold: 3 * time.Second, Cooldown: cooldown}
	cfg.Clock = clock
	return New(cfg, cam, det, capture.NewDispatcher(store, "selfie"))
}

func TestProcessFrame_HeldGestureFiresOnce(t *testing.T) {
	clock := trigger.NewManualClock(epoch)
	det := detector.NewMockDetector()
	det.SetHands(peace())
	store := &recordingStorage{}
	a := newTestApp(clock, 0, nil, det, store)
	frame := blankFrame(t)

	want := []struct {
		action    trigger.Action
		remaining int
	}{
		{trigger.ActionArm, 3},
		{trigger.ActionCountdown, 2},
		{trigger.ActionCountdown, 1},
		{trigger.ActionFire, 0},
	}

	var res FrameResult
	for i, w := range want {
		if i > 0 {
			clock.Advance(time.Second)
		}
		res = a.ProcessFrame(context.Background(), &frame)
		if res.Outcome.Action != w.action || res.Outcome.Remaining != w.remaining {
			t.Fatalf("t=%d: outcome = %v/%d, want %v/%d", i, res.Outcome.Action, res.Outcome.Remaining, w.action, w.remaining)
		}
		if res.Signal != gesture.TargetDetected {
			t.Fatalf("t=%d: signal = %v", i, res.Signal)
		}
	}

	if res.Capture == nil {
		t.Fatalf("fire produced no capture, err = %v", res.CaptureErr)
	}
	if res.Capture.Name != "selfie_20261016_120003_000.jpg" {
		t.Errorf("capture name = %q", res.Capture.Name)
	}
	if a.State().Phase != trigger.Idle {
		t.Errorf("phase after fire = %v, want idle", a.State().Phase)
	}
	if len(store.objects) != 1 {
		t.Fatalf("stored %d objects, want 1", len(store.objects))
	}
	if store.objects[0].ContentType != "image/jpeg" {
		t.Errorf("content type = %q", store.objects[0].ContentType)
	}
}

func TestProcessFrame_SavesCleanFrame(t *testing.T) {
	clock := trigger.NewManualClock(epoch)
	det := detector.NewMockDetector()
	det.SetHands(peace())
	store := &recordingStorage{}
	a := newTestApp(clock, 0, nil, det, store)
	frame := blankFrame(t)

	for i := 0; i < 4; i++ {
		a.ProcessFrame(context.Background(), &frame)
		clock.Advance(time.Second)
	}

	reference := blankFrame(t)
	want, err := encode(&reference, "jpg")
	if err != nil {
		t.Fatalf("encode reference: %v", err)
	}

	if len(store.objects) != 1 {
		t.Fatalf("stored %d objects, want 1", len(store.objects))
	}
	if !bytes.Equal(store.objects[0].Data, want) {
		t.Error("saved image differs from the unannotated frame")
	}
}

func TestProcessFrame_LossResetsWithoutCapture(t *testing.T) {
	clock := trigger.NewManualClock(epoch)
	det := detector.NewMockDetector()
	det.QueueHands(peace(), nil)
	det.SetHands(peace())
	store := &recordingStorage{}
	a := newTestApp(clock, 0, nil, det, store)
	frame := blankFrame(t)

	a.ProcessFrame(context.Background(), &frame)

	clock.Set(epoch.Add(time.Second))
	res := a.ProcessFrame(context.Background(), &frame)
	if res.Outcome.Action != trigger.ActionReset || a.State().Phase != trigger.Idle {
		t.Fatalf("after loss: action %v phase %v", res.Outcome.Action, a.State().Phase)
	}

	clock.Set(epoch.Add(5 * time.Second))
	res = a.ProcessFrame(context.Background(), &frame)
	if res.Outcome.Action != trigger.ActionArm {
		t.Fatalf("re-detect: action = %v, want arm", res.Outcome.Action)
	}
	if !a.State().Since.Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("arming since %v, want t=5", a.State().Since)
	}
	if store.calls != 0 {
		t.Errorf("storage called %d times, want 0", store.calls)
	}
}

func TestProcessFrame_StorageFailureIsNotRetried(t *testing.T) {
	clock := trigger.NewManualClock(epoch)
	det := detector.NewMockDetector()
	det.SetHands(peace())
	store := &recordingStorage{err: errors.New("disk full")}
	a := newTestApp(clock, 0, nil, det, store)
	frame := blankFrame(t)

	var res FrameResult
	for i := 0; i < 4; i++ {
		res = a.ProcessFrame(context.Background(), &frame)
		clock.Advance(time.Second)
	}

	if res.Outcome.Action != trigger.ActionFire {
		t.Fatalf("action = %v, want fire", res.Outcome.Action)
	}
	if !errors.Is(res.CaptureErr, capture.ErrStorage) {
		t.Errorf("CaptureErr = %v, want ErrStorage", res.CaptureErr)
	}
	if res.Capture != nil {
		t.Error("Capture should be nil on failure")
	}
	if a.State().Phase != trigger.Idle {
		t.Errorf("phase = %v, want idle", a.State().Phase)
	}

	// Further frames start a new window instead of retrying.
	res = a.ProcessFrame(context.Background(), &frame)
	if res.Outcome.Action != trigger.ActionArm {
		t.Errorf("next action = %v, want arm", res.Outcome.Action)
	}
	if store.calls != 1 {
		t.Errorf("storage called %d times, want 1", store.calls)
	}
}

func TestProcessFrame_DetectorErrorCountsAsAbsent(t *testing.T) {
	clock := trigger.NewManualClock(epoch)
	det := detector.NewMockDetector()
	det.SetHands(peace())
	a := newTestApp(clock, 0, nil, det, &recordingStorage{})
	frame := blankFrame(t)

	a.ProcessFrame(context.Background(), &frame)

	det.SetError(errors.New("subprocess died"))
	clock.Advance(time.Second)
	res := a.ProcessFrame(context.Background(), &frame)

	if res.Signal != gesture.TargetAbsent || res.Outcome.Action != trigger.ActionReset {
		t.Errorf("signal %v action %v, want absent/reset", res.Signal, res.Outcome.Action)
	}
}

func TestProcessFrame_NonMatchingHands(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandPose{detector.OpenPalmLandmarks(), detector.ThumbsUpLandmarks()})
	a := newTestApp(trigger.NewManualClock(epoch), 0, nil, det, &recordingStorage{})
	frame := blankFrame(t)

	res := a.ProcessFrame(context.Background(), &frame)
	if res.Signal != gesture.TargetAbsent || res.Outcome.Action != trigger.ActionNone {
		t.Errorf("signal %v action %v, want absent/none", res.Signal, res.Outcome.Action)
	}
	if res.Hands != 2 {
		t.Errorf("Hands = %d, want 2", res.Hands)
	}
}

func TestProcessFrame_PublishesPreview(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetHands(peace())
	a := newTestApp(trigger.NewManualClock(epoch), 0, nil, det, &recordingStorage{})
	hub := server.NewHub()
	a.SetPreview(hub)

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	frame := blankFrame(t)
	a.ProcessFrame(context.Background(), &frame)
	a.ProcessFrame(context.Background(), &frame)

	if data, seq, _ := hub.Frame(); len(data) == 0 || seq == 0 {
		t.Error("no preview frame published")
	}

	select {
	case msg := <-events:
		if !bytes.Contains(msg, []byte(`"action":"arm"`)) {
			t.Errorf("first event = %s", msg)
		}
	default:
		t.Fatal("no status event published")
	}

	// Same clock reading, same countdown: no duplicate event.
	select {
	case msg := <-events:
		if bytes.Contains(msg, []byte(`"action":"arm"`)) {
			t.Errorf("duplicate event %s", msg)
		}
	default:
	}
}

func TestRun_EndsWithSourceUnavailable(t *testing.T) {
	frames := make([]*gocv.Mat, 5)
	for i := range frames {
		f := blankFrame(t)
		frames[i] = &f
	}
	cam := capture.NewMockCamera(frames, false)

	det := detector.NewMockDetector()
	det.SetHands(peace())
	store := &recordingStorage{}
	a := newTestApp(&steppingClock{now: epoch, step: time.Second}, time.Second, cam, det, store)

	err := a.Run(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Run() error = %v, want ErrSourceUnavailable", err)
	}
	if len(store.objects) != 1 {
		t.Errorf("stored %d captures, want 1", len(store.objects))
	}
	if cam.IsOpen() {
		t.Error("camera left open")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := blankFrame(t)
	cam := capture.NewMockCamera([]*gocv.Mat{&f}, true)
	a := newTestApp(nil, 0, cam, detector.NewMockDetector(), &recordingStorage{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}

func TestRun_StopsOnQuitKey(t *testing.T) {
	f := blankFrame(t)
	cam := capture.NewMockCamera([]*gocv.Mat{&f}, true)
	a := newTestApp(nil, 0, cam, detector.NewMockDetector(), &recordingStorage{})
	sink := &quitAfter{n: 3}
	a.SetDisplay(sink)

	if err := a.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if sink.shown != 3 || cam.Reads() != 3 {
		t.Errorf("shown %d reads %d, want 3 each", sink.shown, cam.Reads())
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(Config{Format: ".PNG"}, nil, nil, nil)
	if a.config.Format != "png" {
		t.Errorf("format = %q, want png", a.config.Format)
	}
	if a.config.PreviewFPS != DefaultPreviewFPS {
		t.Errorf("preview fps = %d", a.config.PreviewFPS)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestProcessFrame_PausedResetsAndSkipsDetection(t *testing.T) {
	clock := trigger.NewManualClock(epoch)
	det := detector.NewMockDetector()
	det.SetHands(peace())
	store := &recordingStorage{}
	a := newTestApp(clock, 0, nil, det, store)
	frame := blankFrame(t)

	if res := a.ProcessFrame(context.Background(), &frame); res.Outcome.Action != trigger.ActionArm {
		t.Fatalf("action = %v, want arm", res.Outcome.Action)
	}

	a.SetPaused(true)
	calls := det.Calls()
	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		res := a.ProcessFrame(context.Background(), &frame)
		if res.Signal != gesture.TargetAbsent {
			t.Errorf("paused frame %d: signal = %v, want absent", i, res.Signal)
		}
		if i == 0 && res.Outcome.Action != trigger.ActionReset {
			t.Errorf("first paused frame: action = %v, want reset", res.Outcome.Action)
		}
	}
	if det.Calls() != calls {
		t.Errorf("detector called %d times while paused", det.Calls()-calls)
	}
	if store.calls != 0 {
		t.Errorf("storage called %d times while paused", store.calls)
	}

	a.SetPaused(false)
	if a.Paused() {
		t.Fatal("Paused() = true after resume")
	}
	clock.Advance(time.Second)
	if res := a.ProcessFrame(context.Background(), &frame); res.Outcome.Action != trigger.ActionArm {
		t.Errorf("after resume: action = %v, want arm", res.Outcome.Action)
	}
}

func TestRun_OpenFailure(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	cam.OpenErr = errors.New("no such device")
	a := newTestApp(nil, 0, cam, detector.NewMockDetector(), &recordingStorage{})

	if err := a.Run(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Run() error = %v, want ErrSourceUnavailable", err)
	}
}
