package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera replays a fixed frame sequence. Reads return clones, so callers
// may draw on or close them. A non-looping sequence ends in ErrNoFrame, the
// way an unplugged device does.
type MockCamera struct {
	// OpenErr, when set, is returned by Open.
	OpenErr error

	mu     sync.Mutex
	frames []*gocv.Mat
	loop   bool
	next   int
	reads  int
	open   bool
}

// NewMockCamera replays frames once, or forever when loop is set.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop}
}

// Open rewinds the sequence.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.OpenErr != nil {
		return c.OpenErr
	}
	c.open = true
	c.next = 0
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if c.next == len(c.frames) && c.loop {
		c.next = 0
	}
	if c.next >= len(c.frames) {
		return nil, ErrNoFrame
	}

	frame := c.frames[c.next].Clone()
	c.next++
	c.reads++
	return &frame, nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads counts frames delivered since construction.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
