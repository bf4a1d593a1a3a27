package service

import (
	"math"

	"github.com/smartqasa/pico-connector/internal/core/domain"
	"github.com/smartqasa/pico-connector/internal/core/port"

	"go.uber.org/zap"
)

// Dispatcher translates semantic intents into domain action calls per the
// device profile and performs them through the action executor. Calls are
// dispatched one entity at a time, best effort: a failure on one entity is
// logged and never blocks the remaining entities.
//
// Dispatch reports whether a step intent hit a domain boundary (every
// target entity already at its limit), which the owning button machine
// uses to self-cancel its ramp.
type Dispatcher struct {
	executor port.ActionExecutor
	tracker  *EntityTracker
	logger   *zap.Logger
}

func NewDispatcher(executor port.ActionExecutor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		executor: executor,
		tracker:  NewEntityTracker(),
		logger:   logger.With(zap.String("service", "dispatch")),
	}
}

func (d *Dispatcher) Tracker() *EntityTracker {
	return d.tracker
}

func (d *Dispatcher) ApplyStateUpdate(update domain.EntityStateUpdate) {
	d.tracker.Apply(update)
}

// Dispatch performs one intent. The returned flag is true when a step
// intent had no effect on any entity because a boundary was reached.
func (d *Dispatcher) Dispatch(p *domain.DeviceProfile, intent domain.Intent) bool {
	if p.Type == domain.REMOTE_TYPE_FOUR_BUTTON {
		if intent.Kind == domain.INTENT_SCENE_BUTTON {
			d.runDescriptors(p.SceneButtons[intent.Button])
		}
		return false
	}

	switch p.Domain {
	case domain.DOMAIN_LIGHT:
		return d.dispatchLight(p, intent)
	case domain.DOMAIN_FAN:
		return d.dispatchFan(p, intent)
	case domain.DOMAIN_COVER:
		return d.dispatchCover(p, intent)
	case domain.DOMAIN_MEDIA_PLAYER:
		return d.dispatchMediaPlayer(p, intent)
	case domain.DOMAIN_SWITCH:
		return d.dispatchSwitch(p, intent)
	}
	return false
}

func (d *Dispatcher) dispatchLight(p *domain.DeviceProfile, intent domain.Intent) bool {
	switch intent.Kind {
	case domain.INTENT_TURN_ON:
		for _, e := range p.Entities {
			d.call(serviceCall("light", "turn_on", e, map[string]any{"brightness_pct": p.LightOnPct}))
			d.tracker.SetLevel(e, float64(p.LightOnPct))
		}
	case domain.INTENT_TURN_OFF:
		for _, e := range p.Entities {
			d.call(serviceCall("light", "turn_off", e, nil))
			d.tracker.SetPower(e, false)
		}
	case domain.INTENT_STEP_UP, domain.INTENT_STEP_DOWN:
		moved := false
		for _, e := range p.Entities {
			cur, _ := d.tracker.Level(e)
			next := cur + float64(p.LightStepPct)*float64(intent.StepSign())
			if intent.StepSign() == domain.RAMP_DOWN {
				next = math.Max(float64(p.LightLowPct), next)
			}
			next = math.Min(100, next)
			if next == cur {
				continue
			}
			d.call(serviceCall("light", "turn_on", e, map[string]any{"brightness_pct": int(math.Round(next))}))
			d.tracker.SetLevel(e, next)
			moved = true
		}
		return !moved
	case domain.INTENT_DOMAIN_STOP:
		// lights have no native stop; honor a middle_button override only
		if len(p.MiddleButton) > 0 {
			d.runDescriptors(p.MiddleButton)
		}
	}
	return false
}

func (d *Dispatcher) dispatchFan(p *domain.DeviceProfile, intent domain.Intent) bool {
	switch intent.Kind {
	case domain.INTENT_TURN_ON:
		for _, e := range p.Entities {
			d.call(serviceCall("fan", "set_percentage", e, map[string]any{"percentage": p.FanOnPct}))
			d.tracker.SetLevel(e, float64(p.FanOnPct))
		}
	case domain.INTENT_TURN_OFF:
		for _, e := range p.Entities {
			d.call(serviceCall("fan", "turn_off", e, nil))
			d.tracker.SetPower(e, false)
		}
	case domain.INTENT_STEP_UP, domain.INTENT_STEP_DOWN:
		ladder := speedLadder(p.FanSpeeds)
		moved := false
		for _, e := range p.Entities {
			cur, _ := d.tracker.Level(e)
			idx := nearestIndex(ladder, cur)
			next := idx + int(intent.StepSign())
			if next < 0 || next >= len(ladder) || next == idx {
				continue
			}
			d.call(serviceCall("fan", "set_percentage", e, map[string]any{"percentage": ladder[next]}))
			d.tracker.SetLevel(e, float64(ladder[next]))
			moved = true
		}
		return !moved
	case domain.INTENT_DOMAIN_STOP:
		if len(p.MiddleButton) > 0 {
			d.runDescriptors(p.MiddleButton)
			return false
		}
		// reverse direction of every fan
		for _, e := range p.Entities {
			next := "reverse"
			if d.tracker.Direction(e) == "reverse" {
				next = "forward"
			}
			d.call(serviceCall("fan", "set_direction", e, map[string]any{"direction": next}))
			d.tracker.SetDirection(e, next)
		}
	}
	return false
}

func (d *Dispatcher) dispatchCover(p *domain.DeviceProfile, intent domain.Intent) bool {
	switch intent.Kind {
	case domain.INTENT_TURN_ON:
		for _, e := range p.Entities {
			if p.CoverOpenPos == 100 {
				d.call(serviceCall("cover", "open_cover", e, nil))
			} else {
				d.call(serviceCall("cover", "set_cover_position", e, map[string]any{"position": p.CoverOpenPos}))
			}
			d.tracker.SetLevel(e, float64(p.CoverOpenPos))
		}
	case domain.INTENT_TURN_OFF:
		for _, e := range p.Entities {
			d.call(serviceCall("cover", "close_cover", e, nil))
			d.tracker.SetLevel(e, 0)
		}
	case domain.INTENT_STEP_UP, domain.INTENT_STEP_DOWN:
		moved := false
		for _, e := range p.Entities {
			cur, known := d.tracker.Level(e)
			if !known {
				// position unreported; stepping blind would slam the cover
				continue
			}
			next := math.Max(0, math.Min(100, cur+float64(p.CoverStepPct)*float64(intent.StepSign())))
			if next == cur {
				continue
			}
			d.call(serviceCall("cover", "set_cover_position", e, map[string]any{"position": int(math.Round(next))}))
			d.tracker.SetLevel(e, next)
			moved = true
		}
		return !moved
	case domain.INTENT_RAMP_STOP:
		// a released ramp always halts cover movement
		for _, e := range p.Entities {
			d.call(serviceCall("cover", "stop_cover", e, nil))
		}
	case domain.INTENT_DOMAIN_STOP:
		if len(p.MiddleButton) > 0 {
			d.runDescriptors(p.MiddleButton)
			return false
		}
		for _, e := range p.Entities {
			d.call(serviceCall("cover", "stop_cover", e, nil))
		}
	}
	return false
}

func (d *Dispatcher) dispatchMediaPlayer(p *domain.DeviceProfile, intent domain.Intent) bool {
	switch intent.Kind {
	case domain.INTENT_TURN_ON:
		for _, e := range p.Entities {
			d.call(serviceCall("media_player", "turn_on", e, nil))
			d.call(serviceCall("media_player", "volume_mute", e, map[string]any{"is_volume_muted": false}))
		}
	case domain.INTENT_TURN_OFF:
		for _, e := range p.Entities {
			d.call(serviceCall("media_player", "turn_off", e, nil))
			d.call(serviceCall("media_player", "volume_mute", e, map[string]any{"is_volume_muted": true}))
		}
	case domain.INTENT_STEP_UP, domain.INTENT_STEP_DOWN:
		moved := false
		for _, e := range p.Entities {
			cur, _ := d.tracker.Level(e)
			next := math.Max(0, math.Min(100, cur+float64(p.MediaPlayerVolStep)*float64(intent.StepSign())))
			if next == cur {
				continue
			}
			d.call(serviceCall("media_player", "volume_set", e, map[string]any{"volume_level": next / 100}))
			d.tracker.SetLevel(e, next)
			moved = true
		}
		return !moved
	case domain.INTENT_DOMAIN_STOP:
		if len(p.MiddleButton) > 0 {
			d.runDescriptors(p.MiddleButton)
			return false
		}
		for _, e := range p.Entities {
			d.call(serviceCall("media_player", "media_play_pause", e, nil))
		}
	}
	return false
}

func (d *Dispatcher) dispatchSwitch(p *domain.DeviceProfile, intent domain.Intent) bool {
	switch intent.Kind {
	case domain.INTENT_TURN_ON:
		for _, e := range p.Entities {
			d.call(serviceCall("switch", "turn_on", e, nil))
		}
	case domain.INTENT_TURN_OFF:
		for _, e := range p.Entities {
			d.call(serviceCall("switch", "turn_off", e, nil))
		}
	}
	// steps, ramps and stop are meaningless for plain switches
	return false
}

// runDescriptors executes a user-configured action list verbatim.
func (d *Dispatcher) runDescriptors(actions []domain.ActionDescriptor) {
	for _, a := range actions {
		dom, svc, err := domain.ParseAction(a.Action)
		if err != nil {
			d.logger.Error("invalid action descriptor", zap.String("action", a.Action), zap.Error(err))
			continue
		}
		d.call(domain.ActionCall{
			Domain:   dom,
			Service:  svc,
			Entities: a.Target,
			Data:     a.Data,
		})
	}
}

func (d *Dispatcher) call(call domain.ActionCall) {
	if err := d.executor.Call(call); err != nil {
		d.logger.Error("action call failed",
			zap.String("action", call.Action()),
			zap.Strings("entities", call.Entities),
			zap.Error(err))
	}
}

func serviceCall(dom, svc, entity string, data map[string]any) domain.ActionCall {
	return domain.ActionCall{
		Domain:   dom,
		Service:  svc,
		Entities: []string{entity},
		Data:     data,
	}
}

// speedLadder returns the discrete percentage levels of a 4- or 6-speed
// fan, e.g. [0 33 67 100].
func speedLadder(speeds int) []int {
	steps := speeds - 1
	ladder := make([]int, speeds)
	for i := range ladder {
		ladder[i] = int(math.Round(float64(i) * 100 / float64(steps)))
	}
	return ladder
}

func nearestIndex(ladder []int, value float64) int {
	best := 0
	bestDist := math.Abs(float64(ladder[0]) - value)
	for i := 1; i < len(ladder); i++ {
		if dist := math.Abs(float64(ladder[i]) - value); dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}
