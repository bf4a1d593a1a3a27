package events

import (
	"github.com/smartqasa/pico-connector/internal/core/domain"
)

// IntentEvent is published on the actor system's event stream each time a
// semantic intent is dispatched, for observability (last-action topic).
type IntentEvent struct {
	DeviceID string
	Intent   domain.Intent
}
