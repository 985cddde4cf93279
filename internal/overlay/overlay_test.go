package overlay

import (
	"image"
	"testing"

	"github.com/ayusman/peacecam/internal/detector"
	"github.com/ayusman/peacecam/internal/gesture"
	"github.com/ayusman/peacecam/internal/trigger"
	"gocv.io/x/gocv"
)

func TestStatusText(t *testing.T) {
	if text, c := StatusText(gesture.TargetDetected); text != "Valid" || c != green {
		t.Errorf("detected = %q %v", text, c)
	}
	if text, c := StatusText(gesture.TargetAbsent); text != "Invalid" || c != red {
		t.Errorf("absent = %q %v", text, c)
	}
}

func TestCountdownText(t *testing.T) {
	tests := []struct {
		outcome trigger.Outcome
		want    string
		ok      bool
	}{
		{trigger.Outcome{Action: trigger.ActionArm, Remaining: 3}, "Taking selfie in 3s", true},
		{trigger.Outcome{Action: trigger.ActionCountdown, Remaining: 1}, "Taking selfie in 1s", true},
		{trigger.Outcome{Action: trigger.ActionNone}, "", false},
		{trigger.Outcome{Action: trigger.ActionReset}, "", false},
		{trigger.Outcome{Action: trigger.ActionSuppressed}, "", false},
	}

	for _, tt := range tests {
		got, ok := CountdownText(tt.outcome)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CountdownText(%v) = %q, %v; want %q, %v", tt.outcome.Action, got, ok, tt.want, tt.ok)
		}
	}
}

func TestToPixel(t *testing.T) {
	got := ToPixel(detector.Point3D{X: 0.5, Y: 0.25}, 640, 480)
	if want := image.Pt(320, 120); got != want {
		t.Errorf("ToPixel() = %v, want %v", got, want)
	}
}

func TestDraw_ModifiesFrame(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	Draw(&frame, Status{
		Hands:   []detector.HandPose{detector.PeaceSignLandmarks()},
		Signal:  gesture.TargetDetected,
		Outcome: trigger.Outcome{Action: trigger.ActionCountdown, Remaining: 2},
	})

	single := frame.Reshape(1, 0)
	defer single.Close()
	if gocv.CountNonZero(single) == 0 {
		t.Error("Draw() left the frame blank")
	}
}

func TestDraw_EmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()

	Draw(&frame, Status{})
	Draw(nil, Status{})
}
