package domain

import (
	"fmt"
	"time"
)

type RemoteType string

const (
	REMOTE_TYPE_TWO_BUTTON  RemoteType = "2B"
	REMOTE_TYPE_PADDLE      RemoteType = "P2B"
	REMOTE_TYPE_FIVE_BUTTON RemoteType = "3BRL"
	REMOTE_TYPE_FOUR_BUTTON RemoteType = "4B"
)

type EntityDomain string

const (
	DOMAIN_LIGHT        EntityDomain = "light"
	DOMAIN_FAN          EntityDomain = "fan"
	DOMAIN_COVER        EntityDomain = "cover"
	DOMAIN_MEDIA_PLAYER EntityDomain = "media_player"
	DOMAIN_SWITCH       EntityDomain = "switch"
)

type Button string

const (
	BUTTON_ON    Button = "on"
	BUTTON_OFF   Button = "off"
	BUTTON_RAISE Button = "raise"
	BUTTON_LOWER Button = "lower"
	BUTTON_STOP  Button = "stop"
)

// RampDirection doubles as the step sign.
type RampDirection int

const (
	RAMP_UP   RampDirection = 1
	RAMP_DOWN RampDirection = -1
)

// PressKind selects how the state machine reacts to a press on a button.
type PressKind int

const (
	PRESS_NONE PressKind = iota
	PRESS_TAP
	PRESS_TAP_OR_HOLD
	PRESS_RAMP
	PRESS_STOP
	PRESS_SCENE
)

// ButtonPlan is the per-button behavior derived from the remote type. Tap
// is the intent fired on a tap, Hold the ramp direction when the button is
// hold-capable or immediate-ramp.
type ButtonPlan struct {
	OnPress PressKind
	Tap     IntentKind
	Hold    RampDirection
}

// ActionDescriptor is one user-configured service call, kept verbatim from
// the devices file.
type ActionDescriptor struct {
	Action string         `yaml:"action"`
	Data   map[string]any `yaml:"data"`
	Target []string       `yaml:"target"`
}

// DeviceProfile is the resolved, immutable configuration of one remote.
// Resolve must be called once after construction; afterwards the profile
// is shared read-only between actors.
type DeviceProfile struct {
	DeviceID string
	Name     string
	Type     RemoteType
	Domain   EntityDomain
	Entities []string

	HoldTime time.Duration
	StepTime time.Duration

	LightOnPct   int
	LightStepPct int
	LightLowPct  int

	FanOnPct  int
	FanSpeeds int

	CoverOpenPos int
	CoverStepPct int

	MediaPlayerVolStep int

	MiddleButton []ActionDescriptor
	SceneButtons map[Button][]ActionDescriptor

	plan map[Button]ButtonPlan
}

// Resolve validates cross-field invariants and builds the button plan.
func (p *DeviceProfile) Resolve() error {
	switch p.Type {
	case REMOTE_TYPE_TWO_BUTTON, REMOTE_TYPE_PADDLE, REMOTE_TYPE_FIVE_BUTTON:
		if len(p.Entities) == 0 {
			return fmt.Errorf("device %s: remote type %s requires a domain entity list", p.DeviceID, p.Type)
		}
	case REMOTE_TYPE_FOUR_BUTTON:
		if len(p.SceneButtons) == 0 {
			return fmt.Errorf("device %s: remote type 4B requires button action lists", p.DeviceID)
		}
		if len(p.Entities) > 0 {
			return fmt.Errorf("device %s: remote type 4B does not take entity lists", p.DeviceID)
		}
	default:
		return fmt.Errorf("device %s: unknown remote type %q", p.DeviceID, p.Type)
	}

	if p.Domain == DOMAIN_FAN && p.FanSpeeds != 4 && p.FanSpeeds != 6 {
		return fmt.Errorf("device %s: fan_speeds must be 4 or 6", p.DeviceID)
	}
	if p.HoldTime <= 0 || p.StepTime <= 0 {
		return fmt.Errorf("device %s: hold_time_ms and step_time_ms must be > 0", p.DeviceID)
	}

	p.plan = buildPlan(p)
	return nil
}

// Plan returns the behavior of a button. Unknown buttons yield the zero
// plan with OnPress == PRESS_NONE.
func (p *DeviceProfile) Plan(b Button) ButtonPlan {
	return p.plan[b]
}

func buildPlan(p *DeviceProfile) map[Button]ButtonPlan {
	plan := make(map[Button]ButtonPlan)
	switch p.Type {
	case REMOTE_TYPE_TWO_BUTTON:
		plan[BUTTON_ON] = ButtonPlan{OnPress: PRESS_TAP, Tap: INTENT_TURN_ON}
		plan[BUTTON_OFF] = ButtonPlan{OnPress: PRESS_TAP, Tap: INTENT_TURN_OFF}
	case REMOTE_TYPE_PADDLE:
		plan[BUTTON_ON] = ButtonPlan{OnPress: PRESS_TAP_OR_HOLD, Tap: INTENT_TURN_ON, Hold: RAMP_UP}
		plan[BUTTON_OFF] = ButtonPlan{OnPress: PRESS_TAP_OR_HOLD, Tap: INTENT_TURN_OFF, Hold: RAMP_DOWN}
		plan[BUTTON_RAISE] = ButtonPlan{OnPress: PRESS_TAP_OR_HOLD, Tap: INTENT_STEP_UP, Hold: RAMP_UP}
		plan[BUTTON_LOWER] = ButtonPlan{OnPress: PRESS_TAP_OR_HOLD, Tap: INTENT_STEP_DOWN, Hold: RAMP_DOWN}
		plan[BUTTON_STOP] = ButtonPlan{OnPress: PRESS_STOP}
	case REMOTE_TYPE_FIVE_BUTTON:
		plan[BUTTON_ON] = ButtonPlan{OnPress: PRESS_TAP, Tap: INTENT_TURN_ON}
		plan[BUTTON_OFF] = ButtonPlan{OnPress: PRESS_TAP, Tap: INTENT_TURN_OFF}
		plan[BUTTON_RAISE] = ButtonPlan{OnPress: PRESS_RAMP, Hold: RAMP_UP}
		plan[BUTTON_LOWER] = ButtonPlan{OnPress: PRESS_RAMP, Hold: RAMP_DOWN}
		plan[BUTTON_STOP] = ButtonPlan{OnPress: PRESS_STOP}
	case REMOTE_TYPE_FOUR_BUTTON:
		for b := range p.SceneButtons {
			plan[b] = ButtonPlan{OnPress: PRESS_SCENE}
		}
	}
	return plan
}
