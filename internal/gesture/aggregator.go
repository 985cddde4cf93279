package gesture

import (
	"errors"

	"github.com/ayusman/peacecam/internal/detector"
	"github.com/ayusman/peacecam/internal/log"
)

// FrameSignal is the per-frame verdict across every hand in the frame.
type FrameSignal int

const (
	TargetAbsent FrameSignal = iota
	TargetDetected
)

func (s FrameSignal) String() string {
	if s == TargetDetected {
		return "detected"
	}
	return "absent"
}

// Aggregate returns TargetDetected if any hand matches the trigger pose.
// Hands that cannot be classified are skipped; an empty frame is TargetAbsent.
func Aggregate(hands []detector.HandPose) FrameSignal {
	for i := range hands {
		verdict, err := Classify(&hands[i])
		if err != nil {
			if errors.Is(err, ErrMissingLandmark) {
				log.Debug(log.Fields{
					"hand":   i,
					"points": len(hands[i].Points),
					"error":  err.Error(),
				}, "hand excluded from frame signal")
			}
			continue
		}
		if verdict == Matching {
			return TargetDetected
		}
	}
	return TargetAbsent
}
