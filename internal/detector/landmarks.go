// Package detector provides hand detection interfaces and types for gesture recognition.
package detector

import "fmt"

// Landmark identifies one keypoint of the MediaPipe hand model.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type Landmark int

// Hand landmark indices following MediaPipe convention.
const (
	Wrist Landmark = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// NumLandmarks is the size of a complete hand keypoint set.
const NumLandmarks = 21

var landmarkNames = [NumLandmarks]string{
	"WRIST",
	"THUMB_CMC", "THUMB_MCP", "THUMB_IP", "THUMB_TIP",
	"INDEX_MCP", "INDEX_PIP", "INDEX_DIP", "INDEX_TIP",
	"MIDDLE_MCP", "MIDDLE_PIP", "MIDDLE_DIP", "MIDDLE_TIP",
	"RING_MCP", "RING_PIP", "RING_DIP", "RING_TIP",
	"PINKY_MCP", "PINKY_PIP", "PINKY_DIP", "PINKY_TIP",
}

// String returns the MediaPipe-style name of the landmark, e.g. "INDEX_TIP".
func (l Landmark) String() string {
	if l < 0 || int(l) >= NumLandmarks {
		return fmt.Sprintf("LANDMARK(%d)", int(l))
	}
	return landmarkNames[l]
}

// HandConnections lists the landmark pairs joined by the skeleton overlay.
var HandConnections = [][2]Landmark{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

// Point3D represents a normalized keypoint position. X and Y are in [0,1]
// relative to the frame, with Y growing downward.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandPose holds the keypoints detected for one hand in one frame.
// Points is indexed by Landmark; a short slice means the trailing
// landmarks were not supplied.
type HandPose struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// Keypoint returns the position of landmark l and whether it is present.
func (h *HandPose) Keypoint(l Landmark) (Point3D, bool) {
	if h == nil || l < 0 || int(l) >= len(h.Points) {
		return Point3D{}, false
	}
	return h.Points[l], true
}

// Complete reports whether the pose carries the full landmark set.
func (h *HandPose) Complete() bool {
	return h != nil && len(h.Points) >= NumLandmarks
}
