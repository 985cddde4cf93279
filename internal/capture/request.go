package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix is the file name prefix for saved captures.
const DefaultPrefix = "selfie"

// Request carries the clean frame of a fired trigger to the dispatcher.
// It lives only for the single Dispatch call.
type Request struct {
	ID      string
	Data    []byte
	Ext     string // without the dot, e.g. "jpg"
	TakenAt time.Time
}

// NewRequest builds a Request with a fresh time-ordered identifier.
func NewRequest(data []byte, ext string, takenAt time.Time) Request {
	return Request{
		ID:      NewRequestID(),
		Data:    data,
		Ext:     strings.TrimPrefix(ext, "."),
		TakenAt: takenAt,
	}
}

// NewRequestID returns a UUIDv7 string.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FileName formats prefix_YYYYMMDD_HHMMSS_mmm.ext. The millisecond field
// keeps captures taken within the same second apart.
func FileName(prefix string, t time.Time, ext string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ms := t.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("%s_%s_%03d.%s", prefix, t.Format("20060102_150405"), ms, strings.TrimPrefix(ext, "."))
}

// ContentType maps an image extension to its MIME type.
func ContentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
