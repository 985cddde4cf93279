// Package display renders annotated frames and reports stop requests.
package display

import "gocv.io/x/gocv"

// QuitKey ends the session when pressed in the window.
const QuitKey = 'q'

// Sink consumes annotated frames. Show reports true once the user asked
// to stop.
type Sink interface {
	Show(frame *gocv.Mat) (quit bool)
	Close() error
}

// Window shows frames in a HighGUI window. It must be used from the
// goroutine that created it.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show draws frame and polls the keyboard for 1ms.
func (w *Window) Show(frame *gocv.Mat) bool {
	if frame != nil && !frame.Empty() {
		w.win.IMShow(*frame)
	}
	return isQuit(w.win.WaitKey(1))
}

// isQuit reports whether a WaitKey code is the quit key. Some backends set
// modifier bits above the low byte.
func isQuit(key int) bool {
	return key >= 0 && key&0xff == QuitKey
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// Headless discards frames and never asks to stop.
type Headless struct{}

func (Headless) Show(*gocv.Mat) bool { return false }
func (Headless) Close() error        { return nil }
