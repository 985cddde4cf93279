// Package trigger turns the per-frame gesture signal into a debounced capture.
//
// The machine has two phases. Idle arms on the first detected frame and
// latches that instant. Arming fires once the gesture has been held for the
// threshold, or drops back to Idle on the first frame without it. The
// countdown is evaluated by polling a Clock once per frame; nothing sleeps.
package trigger

import (
	"math"
	"time"

	"github.com/ayusman/peacecam/internal/gesture"
)

// Phase is the machine's discrete state.
type Phase int

const (
	Idle Phase = iota
	Arming
)

func (p Phase) String() string {
	if p == Arming {
		return "arming"
	}
	return "idle"
}

// State is the full trigger state. It is a value: Step returns a new one.
type State struct {
	Phase Phase
	// Since is the instant arming began. Zero while Idle.
	Since time.Time
	// CooldownUntil blocks re-arming after a fire until this instant.
	CooldownUntil time.Time
}

// Action names what a Step did.
type Action int

const (
	ActionNone Action = iota
	// ActionArm started a new countdown window.
	ActionArm
	// ActionCountdown continued an existing window.
	ActionCountdown
	// ActionFire completed the window; the caller must dispatch a capture.
	ActionFire
	// ActionReset abandoned the window because the gesture was lost.
	ActionReset
	// ActionSuppressed ignored a detection during the post-fire cooldown.
	ActionSuppressed
)

var actionNames = [...]string{"none", "arm", "countdown", "fire", "reset", "suppressed"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Outcome is the side effect of one Step.
type Outcome struct {
	Action Action
	// Remaining is the whole seconds left to display. Meaningful for
	// ActionArm, ActionCountdown and ActionFire.
	Remaining int
}

// Counting reports whether a countdown should be displayed for this frame.
func (o Outcome) Counting() bool {
	return o.Action == ActionArm || o.Action == ActionCountdown || o.Action == ActionFire
}

// Config holds the timing policy.
type Config struct {
	// Threshold is how long the gesture must be held before firing.
	Threshold time.Duration
	// Cooldown is how long re-arming is ignored after a fire. Zero re-arms
	// on the next detected frame.
	Cooldown time.Duration
}

// DefaultConfig returns a 3 second threshold and a 1 second cooldown.
func DefaultConfig() Config {
	return Config{
		Threshold: 3 * time.Second,
		Cooldown:  time.Second,
	}
}

// Step is the transition function. It is pure: the same inputs always give
// the same next state and outcome.
func Step(cfg Config, s State, sig gesture.FrameSignal, now time.Time) (State, Outcome) {
	switch s.Phase {
	case Arming:
		if sig != gesture.TargetDetected {
			return State{CooldownUntil: s.CooldownUntil}, Outcome{Action: ActionReset}
		}

		elapsed := now.Sub(s.Since)
		if elapsed >= cfg.Threshold {
			next := State{}
			if cfg.Cooldown > 0 {
				next.CooldownUntil = now.Add(cfg.Cooldown)
			}
			return next, Outcome{Action: ActionFire, Remaining: 0}
		}
		return s, Outcome{Action: ActionCountdown, Remaining: remaining(cfg.Threshold, elapsed)}

	default:
		if sig != gesture.TargetDetected {
			return s, Outcome{Action: ActionNone}
		}
		if now.Before(s.CooldownUntil) {
			return s, Outcome{Action: ActionSuppressed}
		}
		return State{Phase: Arming, Since: now}, Outcome{Action: ActionArm, Remaining: remaining(cfg.Threshold, 0)}
	}
}

// remaining is threshold − floor(elapsed) in whole seconds, never negative.
func remaining(threshold, elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	r := math.Ceil(threshold.Seconds() - math.Floor(elapsed.Seconds()))
	if r < 0 {
		return 0
	}
	return int(r)
}

// Machine owns a State for the life of a session and reads time from a Clock.
// It is not safe for concurrent use; the frame loop is its only caller.
type Machine struct {
	cfg   Config
	clock Clock
	state State
	last  time.Time
}

// NewMachine creates an Idle machine. A nil clock means SystemClock.
func NewMachine(cfg Config, clock Clock) *Machine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Machine{cfg: cfg, clock: clock}
}

// Advance applies one frame's signal at the clock's current reading.
func (m *Machine) Advance(sig gesture.FrameSignal) Outcome {
	m.last = m.clock.Now()
	next, out := Step(m.cfg, m.state, sig, m.last)
	m.state = next
	return out
}

// LastStep returns the clock reading used by the latest Advance.
func (m *Machine) LastStep() time.Time {
	return m.last
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Config returns the timing policy.
func (m *Machine) Config() Config {
	return m.cfg
}
