package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandPose
	queue [][]HandPose
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandPose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// QueueHands schedules per-call results. Each Detect consumes one entry;
// once the queue is empty, the SetHands value is returned.
func (m *MockDetector) QueueHands(frames ...[]HandPose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandPose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		hands := m.queue[0]
		m.queue = m.queue[1:]
		return hands, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

func newPose() HandPose {
	return HandPose{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: "Right",
		Score:      0.95,
	}
}

// PeaceSignLandmarks returns a preset HandPose with index and middle fingers
// extended upward and ring and pinky curled.
func PeaceSignLandmarks() HandPose {
	p := newPose()

	p.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb folded across the palm
	p.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	p.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.70, Z: -0.02}
	p.Points[ThumbIP] = Point3D{X: 0.52, Y: 0.68, Z: -0.04}
	p.Points[ThumbTip] = Point3D{X: 0.48, Y: 0.68, Z: -0.05}

	// Index finger extended upward
	p.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	p.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	p.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	p.Points[IndexTip] = Point3D{X: 0.59, Y: 0.36, Z: 0.0}

	// Middle finger extended upward
	p.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	p.Points[MiddlePIP] = Point3D{X: 0.49, Y: 0.52, Z: 0.0}
	p.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.41, Z: 0.0}
	p.Points[MiddleTip] = Point3D{X: 0.47, Y: 0.31, Z: 0.0}

	// Ring finger curled
	p.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: -0.02}
	p.Points[RingPIP] = Point3D{X: 0.45, Y: 0.66, Z: -0.05}
	p.Points[RingDIP] = Point3D{X: 0.44, Y: 0.69, Z: -0.04}
	p.Points[RingTip] = Point3D{X: 0.44, Y: 0.72, Z: -0.02}

	// Pinky finger curled
	p.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: -0.02}
	p.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.69, Z: -0.05}
	p.Points[PinkyDIP] = Point3D{X: 0.40, Y: 0.72, Z: -0.04}
	p.Points[PinkyTip] = Point3D{X: 0.40, Y: 0.74, Z: -0.02}

	return p
}

// ThumbsUpLandmarks returns a preset HandPose representing a thumbs up gesture.
// The thumb is extended upward while other fingers are curled.
func ThumbsUpLandmarks() HandPose {
	p := newPose()

	p.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (pointing up, Y decreases going up)
	p.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	p.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	p.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	p.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Index finger curled (knuckles close together, tip near palm)
	p.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	p.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	p.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	p.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	// Middle finger curled
	p.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	p.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	p.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	p.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	// Ring finger curled
	p.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	p.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	p.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	p.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	// Pinky finger curled
	p.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	p.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	p.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	p.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return p
}

// OpenPalmLandmarks returns a preset HandPose representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandPose {
	p := newPose()

	p.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	p.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	p.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	p.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	p.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	p.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	p.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	p.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	p.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	p.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	p.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	p.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	p.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	p.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	p.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	p.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	p.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	p.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	p.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	p.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	p.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return p
}
