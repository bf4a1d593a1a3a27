package service

import (
	"math"
	"strconv"

	"github.com/smartqasa/pico-connector/internal/core/domain"
)

type entityState struct {
	level     float64
	hasLevel  bool
	direction string
	on        bool
}

// EntityTracker is the in-memory view of the controlled entities' levels
// (brightness/percentage/position/volume on a 0-100 scale) and fan
// direction. It is fed by the bridge's own dispatched calls and by
// statestream updates. All access goes through the dispatch actor, so no
// locking is needed.
type EntityTracker struct {
	states map[string]*entityState
}

func NewEntityTracker() *EntityTracker {
	return &EntityTracker{states: make(map[string]*entityState)}
}

func (t *EntityTracker) state(entity string) *entityState {
	s, ok := t.states[entity]
	if !ok {
		s = &entityState{}
		t.states[entity] = s
	}
	return s
}

func (t *EntityTracker) Level(entity string) (float64, bool) {
	if s, ok := t.states[entity]; ok && s.hasLevel {
		return s.level, true
	}
	return 0, false
}

func (t *EntityTracker) SetLevel(entity string, level float64) {
	s := t.state(entity)
	s.level = math.Max(0, math.Min(100, level))
	s.hasLevel = true
}

func (t *EntityTracker) Direction(entity string) string {
	if s, ok := t.states[entity]; ok && s.direction != "" {
		return s.direction
	}
	return "forward"
}

func (t *EntityTracker) SetDirection(entity, direction string) {
	t.state(entity).direction = direction
}

func (t *EntityTracker) SetPower(entity string, on bool) {
	s := t.state(entity)
	s.on = on
	if !on {
		s.level = 0
		s.hasLevel = true
	}
}

// Apply folds one statestream attribute update into the tracked state.
// Unknown attributes and unparseable payloads are ignored.
func (t *EntityTracker) Apply(update domain.EntityStateUpdate) {
	switch update.Attribute {
	case "brightness":
		// HA reports brightness on a 0-255 scale.
		if v, err := strconv.ParseFloat(update.Payload, 64); err == nil {
			t.SetLevel(update.EntityID, math.Round(v/255*100))
		}
	case "percentage", "current_position", "position", "brightness_pct":
		if v, err := strconv.ParseFloat(update.Payload, 64); err == nil {
			t.SetLevel(update.EntityID, v)
		}
	case "volume_level":
		// media_player volume is reported 0.0-1.0
		if v, err := strconv.ParseFloat(update.Payload, 64); err == nil {
			t.SetLevel(update.EntityID, v*100)
		}
	case "direction":
		if update.Payload == "forward" || update.Payload == "reverse" {
			t.SetDirection(update.EntityID, update.Payload)
		}
	case "state":
		t.SetPower(update.EntityID, update.Payload == "on")
	}
}
