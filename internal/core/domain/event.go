package domain

import (
	"fmt"
	"strings"
	"time"
)

type Transition string

const (
	TRANSITION_PRESS   Transition = "press"
	TRANSITION_RELEASE Transition = "release"
)

// ButtonEvent is one normalized press/release notification from the event
// source. The source may redeliver or drop events; consumers must treat
// unexpected sequences as non-fatal.
type ButtonEvent struct {
	DeviceID   string
	Button     Button
	Transition Transition
	Timestamp  time.Time
}

type IntentKind int

const (
	INTENT_TURN_ON IntentKind = iota
	INTENT_TURN_OFF
	INTENT_STEP_UP
	INTENT_STEP_DOWN
	INTENT_RAMP_START
	INTENT_RAMP_STOP
	INTENT_DOMAIN_STOP
	INTENT_SCENE_BUTTON
)

func (k IntentKind) String() string {
	switch k {
	case INTENT_TURN_ON:
		return "turn_on"
	case INTENT_TURN_OFF:
		return "turn_off"
	case INTENT_STEP_UP:
		return "step_up"
	case INTENT_STEP_DOWN:
		return "step_down"
	case INTENT_RAMP_START:
		return "ramp_start"
	case INTENT_RAMP_STOP:
		return "ramp_stop"
	case INTENT_DOMAIN_STOP:
		return "domain_stop"
	case INTENT_SCENE_BUTTON:
		return "scene_button"
	}
	return "unknown"
}

// Intent is a semantic control action produced by a button state machine
// and consumed immediately by the dispatcher. Never persisted.
type Intent struct {
	Kind      IntentKind
	Direction RampDirection
	Button    Button
}

func StepIntent(direction RampDirection) Intent {
	if direction == RAMP_DOWN {
		return Intent{Kind: INTENT_STEP_DOWN, Direction: direction}
	}
	return Intent{Kind: INTENT_STEP_UP, Direction: direction}
}

// StepSign is the signed unit step of a step intent, derived from the kind
// so that tap-emitted steps need no explicit direction.
func (in Intent) StepSign() RampDirection {
	if in.Kind == INTENT_STEP_DOWN {
		return RAMP_DOWN
	}
	return RAMP_UP
}

// ActionCall is one domain service invocation toward the action executor.
type ActionCall struct {
	Domain   string
	Service  string
	Entities []string
	Data     map[string]any
}

// Action returns the "domain.service" form.
func (c ActionCall) Action() string {
	return fmt.Sprintf("%s.%s", c.Domain, c.Service)
}

// ParseAction splits a "domain.service" action string.
func ParseAction(action string) (string, string, error) {
	parts := strings.SplitN(action, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid action string %q", action)
	}
	return parts[0], parts[1], nil
}

// EntityStateUpdate carries one attribute change observed on the
// statestream for a tracked entity. Payload is the raw string value.
type EntityStateUpdate struct {
	EntityID  string
	Attribute string
	Payload   string
}
