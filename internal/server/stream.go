package server

import (
	"fmt"
	"net/http"
	"time"
)

// StreamHandler serves the hub's latest frames as MJPEG.
type StreamHandler struct {
	hub      *Hub
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler sending at most fps frames per second.
func NewStreamHandler(hub *Hub, fps int) *StreamHandler {
	if fps <= 0 {
		fps = 10
	}
	return &StreamHandler{
		hub:      hub,
		interval: time.Second / time.Duration(fps),
	}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flush(w)

	var last uint64
	for {
		frame, seq, changed := h.hub.Frame()

		if seq == last || len(frame) == 0 {
			select {
			case <-r.Context().Done():
				return
			case <-changed:
				continue
			}
		}
		last = seq

		if err := writePart(w, frame); err != nil {
			return
		}
		flush(w)

		select {
		case <-r.Context().Done():
			return
		case <-time.After(h.interval):
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
