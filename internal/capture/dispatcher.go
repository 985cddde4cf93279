package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/peacecam/internal/log"
)

var (
	// ErrStorage wraps every failure to persist a capture.
	ErrStorage = errors.New("capture storage failed")
	// ErrEmptyCapture is returned for a request without image data.
	ErrEmptyCapture = errors.New("capture has no image data")
)

// Result describes a persisted capture.
type Result struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Size     int       `json:"size"`
	TakenAt  time.Time `json:"taken_at"`
}

// Observer is told about every capture that was saved.
type Observer interface {
	CaptureSaved(ctx context.Context, r Result)
}

// Dispatcher names capture requests and hands them to a Storage backend.
// Each Dispatch is a single blocking attempt; nothing is retried.
type Dispatcher struct {
	storage   Storage
	prefix    string
	observers []Observer
}

// NewDispatcher creates a Dispatcher writing to storage with the given file
// name prefix.
func NewDispatcher(storage Storage, prefix string, observers ...Observer) *Dispatcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Dispatcher{
		storage:   storage,
		prefix:    prefix,
		observers: observers,
	}
}

// Subscribe adds an observer for saved captures.
func (d *Dispatcher) Subscribe(o Observer) {
	d.observers = append(d.observers, o)
}

// Dispatch persists req. Errors wrap ErrStorage (or ErrEmptyCapture).
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if len(req.Data) == 0 {
		return Result{}, ErrEmptyCapture
	}

	takenAt := req.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}
	id := req.ID
	if id == "" {
		id = NewRequestID()
	}

	name := FileName(d.prefix, takenAt, req.Ext)
	location, err := d.storage.Save(ctx, Object{
		ID:          id,
		Name:        name,
		Data:        req.Data,
		ContentType: ContentType(req.Ext),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	result := Result{
		ID:       id,
		Name:     name,
		Location: location,
		Size:     len(req.Data),
		TakenAt:  takenAt,
	}

	log.Info(log.Fields{
		"capture_id": result.ID,
		"location":   result.Location,
		"bytes":      result.Size,
	}, "selfie saved")

	for _, o := range d.observers {
		o.CaptureSaved(ctx, result)
	}

	return result, nil
}
