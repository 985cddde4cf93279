// Package gesture decides whether detected hands show the trigger pose.
//
// The trigger pose is the two-finger "peace" sign: index and middle fingers
// extended, ring and pinky folded. The thumb is not consulted.
package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/peacecam/internal/detector"
)

// ErrMissingLandmark is returned when a hand lacks a keypoint the rule needs.
var ErrMissingLandmark = errors.New("missing landmark")

// Verdict is the classifier's decision for a single hand.
type Verdict int

const (
	NonMatching Verdict = iota
	Matching
)

func (v Verdict) String() string {
	if v == Matching {
		return "matching"
	}
	return "non-matching"
}

type finger struct {
	tip, mcp detector.Landmark
}

var (
	index  = finger{detector.IndexTip, detector.IndexMCP}
	middle = finger{detector.MiddleTip, detector.MiddleMCP}
	ring   = finger{detector.RingTip, detector.RingMCP}
	pinky  = finger{detector.PinkyTip, detector.PinkyMCP}
)

// extended reports whether the fingertip sits strictly above its base knuckle.
// Image y grows downward, so "above" is a smaller y. Equal y is not extended.
func extended(hand *detector.HandPose, f finger) (bool, error) {
	tip, ok := hand.Keypoint(f.tip)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingLandmark, f.tip)
	}
	mcp, ok := hand.Keypoint(f.mcp)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingLandmark, f.mcp)
	}
	return tip.Y < mcp.Y, nil
}

// Classify returns Matching iff index and middle are extended and ring and
// pinky are not. Every required landmark is checked before deciding, so a
// hand with a missing keypoint always yields ErrMissingLandmark.
func Classify(hand *detector.HandPose) (Verdict, error) {
	var ext [4]bool
	for i, f := range [4]finger{index, middle, ring, pinky} {
		e, err := extended(hand, f)
		if err != nil {
			return NonMatching, err
		}
		ext[i] = e
	}

	if ext[0] && ext[1] && !ext[2] && !ext[3] {
		return Matching, nil
	}
	return NonMatching, nil
}
