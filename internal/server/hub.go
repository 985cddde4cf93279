package server

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/peacecam/internal/capture"
	"github.com/ayusman/peacecam/internal/log"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event types sent over /api/events.
const (
	EventStatus  = "status"
	EventCapture = "capture"
)

// Event is one message on the live feed.
type Event struct {
	Type      string          `json:"type"`
	Signal    string          `json:"signal,omitempty"`
	Action    string          `json:"action,omitempty"`
	Remaining int             `json:"remaining,omitempty"`
	Capture   *capture.Result `json:"capture,omitempty"`
	Time      time.Time       `json:"time"`
}

// subscriberBuffer is how many events a slow websocket client may lag
// before events are dropped for it.
const subscriberBuffer = 16

// Hub holds the latest preview frame and fans events out to subscribers.
// The frame loop publishes; HTTP handlers read.
type Hub struct {
	mu       sync.RWMutex
	frame    []byte
	seq      uint64
	changed  chan struct{}
	subs     map[chan []byte]struct{}
	captures int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		changed: make(chan struct{}),
		subs:    make(map[chan []byte]struct{}),
	}
}

// PublishFrame stores a JPEG as the latest frame and wakes stream readers.
func (h *Hub) PublishFrame(jpeg []byte) {
	h.mu.Lock()
	h.frame = jpeg
	h.seq++
	close(h.changed)
	h.changed = make(chan struct{})
	h.mu.Unlock()
}

// Frame returns the latest frame, its sequence number and a channel closed
// on the next publish.
func (h *Hub) Frame() ([]byte, uint64, <-chan struct{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame, h.seq, h.changed
}

// PublishEvent encodes ev and delivers it to every subscriber without
// blocking the caller.
func (h *Hub) PublishEvent(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Warn(log.Fields{"error": err, "type": ev.Type}, "encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe registers a new event listener. Call the returned func to
// unsubscribe.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of connected event listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Captures returns how many saved captures were announced.
func (h *Hub) Captures() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.captures
}

// CaptureSaved announces a saved capture on the event feed.
func (h *Hub) CaptureSaved(_ context.Context, r capture.Result) {
	h.mu.Lock()
	h.captures++
	h.mu.Unlock()

	h.PublishEvent(Event{Type: EventCapture, Capture: &r})
}
