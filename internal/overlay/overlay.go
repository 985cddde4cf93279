// Package overlay draws hand landmarks and trigger status onto frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/peacecam/internal/detector"
	"github.com/ayusman/peacecam/internal/gesture"
	"github.com/ayusman/peacecam/internal/trigger"
	"gocv.io/x/gocv"
)

var (
	green = color.RGBA{0, 255, 0, 0}
	red   = color.RGBA{255, 0, 0, 0}
	white = color.RGBA{255, 255, 255, 0}
	blue  = color.RGBA{0, 128, 255, 0}
)

// Text anchors in pixels.
var (
	StatusOrigin    = image.Pt(50, 50)
	CountdownOrigin = image.Pt(50, 100)
)

// Status is everything the overlay needs about one processed frame.
type Status struct {
	Hands   []detector.HandPose
	Signal  gesture.FrameSignal
	Outcome trigger.Outcome
}

// Draw annotates frame in place. Callers pass a copy when the clean frame
// is still needed.
func Draw(frame *gocv.Mat, st Status) {
	if frame == nil || frame.Empty() {
		return
	}

	for i := range st.Hands {
		drawHand(frame, &st.Hands[i])
	}

	text, c := StatusText(st.Signal)
	gocv.PutTextWithParams(frame, text, StatusOrigin, gocv.FontHersheySimplex, 1, c, 2, gocv.LineAA, false)

	if text, ok := CountdownText(st.Outcome); ok {
		gocv.PutTextWithParams(frame, text, CountdownOrigin, gocv.FontHersheySimplex, 1, white, 2, gocv.LineAA, false)
	}
}

// StatusText returns the label and colour for a frame signal.
func StatusText(sig gesture.FrameSignal) (string, color.RGBA) {
	if sig == gesture.TargetDetected {
		return "Valid", green
	}
	return "Invalid", red
}

// CountdownText returns the countdown label while the trigger is arming.
func CountdownText(o trigger.Outcome) (string, bool) {
	if !o.Counting() {
		return "", false
	}
	return fmt.Sprintf("Taking selfie in %ds", o.Remaining), true
}

// ToPixel maps a normalized keypoint onto a cols x rows frame.
func ToPixel(p detector.Point3D, cols, rows int) image.Point {
	return image.Pt(int(p.X*float64(cols)), int(p.Y*float64(rows)))
}

func drawHand(frame *gocv.Mat, hand *detector.HandPose) {
	cols, rows := frame.Cols(), frame.Rows()

	for _, conn := range detector.HandConnections {
		a, okA := hand.Keypoint(conn[0])
		b, okB := hand.Keypoint(conn[1])
		if !okA || !okB {
			continue
		}
		gocv.Line(frame, ToPixel(a, cols, rows), ToPixel(b, cols, rows), white, 2)
	}

	for _, p := range hand.Points {
		gocv.Circle(frame, ToPixel(p, cols, rows), 4, blue, -1)
	}
}
