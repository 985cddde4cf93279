// Package capture reads frames from a camera and persists captured selfies.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/peacecam/internal/log"
	"gocv.io/x/gocv"
)

// Mode requested from the device when the config leaves it unset.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame means the source produced nothing usable, e.g. the device
	// was unplugged or a recording ran out.
	ErrNoFrame = errors.New("no frame available")
)

// Camera is a frame source. ReadFrame hands ownership of the Mat to the caller.
type Camera interface {
	Open() error
	ReadFrame() (*gocv.Mat, error)
	Close() error
}

// DeviceConfig selects a local video device and the mode asked of it.
type DeviceConfig struct {
	ID     int
	Width  int
	Height int
	FPS    int
}

func (c DeviceConfig) withDefaults() DeviceConfig {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	return c
}

// Device is a Camera backed by gocv.VideoCapture. Drivers may ignore the
// requested mode; Open logs what was actually negotiated.
type Device struct {
	cfg DeviceConfig

	mu sync.Mutex
	vc *gocv.VideoCapture
}

// NewDevice returns an unopened Device.
func NewDevice(cfg DeviceConfig) *Device {
	return &Device{cfg: cfg.withDefaults()}
}

// Config returns the requested mode after defaults.
func (d *Device) Config() DeviceConfig {
	return d.cfg
}

// Open starts capturing. Opening an open device is a no-op.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.cfg.ID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.cfg.ID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: %w", d.cfg.ID, ErrCameraNotOpen)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.cfg.FPS))

	width := int(vc.Get(gocv.VideoCaptureFrameWidth))
	height := int(vc.Get(gocv.VideoCaptureFrameHeight))
	fields := log.Fields{
		"device": d.cfg.ID,
		"width":  width,
		"height": height,
		"fps":    vc.Get(gocv.VideoCaptureFPS),
	}
	if width != d.cfg.Width || height != d.cfg.Height {
		log.Warn(fields, "camera did not accept requested resolution")
	} else {
		log.Info(fields, "camera opened")
	}

	d.vc = vc
	return nil
}

// ReadFrame blocks for the next frame. A failed or empty read is ErrNoFrame.
func (d *Device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, ErrCameraNotOpen
	}

	frame := gocv.NewMat()
	if !d.vc.Read(&frame) || frame.Empty() {
		frame.Close()
		return nil, fmt.Errorf("read camera %d: %w", d.cfg.ID, ErrNoFrame)
	}
	return &frame, nil
}

// IsOpen reports whether Open succeeded and Close has not run since.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc != nil
}

// Close releases the device. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	return err
}
