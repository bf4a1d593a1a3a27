package actor

import (
	"fmt"
	"log"
	"time"

	"github.com/smartqasa/pico-connector/internal/core/domain"
	. "github.com/smartqasa/pico-connector/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// EventRouterActor routes raw button events to per-(device, button) state
// machines, spawning them lazily on first event. A press on a dedicated stop
// button is broadcast as a ramp cancel to the device's sibling machines
// before it is forwarded, so a running ramp on another button stops.
type EventRouterActor struct {
	behavior actor.Behavior
	profiles map[string]*domain.DeviceProfile
	dispatch *actor.PID
	machines map[string]*actor.PID
	byDevice map[string][]*actor.PID
	logger   *zap.Logger
}

func NewEventRouterActor(profiles map[string]*domain.DeviceProfile, dispatch *actor.PID, logger *zap.Logger) *EventRouterActor {
	act := &EventRouterActor{
		behavior: actor.NewBehavior(),
		profiles: profiles,
		dispatch: dispatch,
		machines: make(map[string]*actor.PID),
		byDevice: make(map[string][]*actor.PID),
		logger:   ActorLogger(domain.ACTOR_ID_ROUTER, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *EventRouterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *EventRouterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("router@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("router@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_ROUTER,
			Healthy: true,
			State:   "default",
		})
	case domain.ButtonEvent:
		state.routeEvent(ctx, msg)
	default:
		state.logger.Debug("router@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *EventRouterActor) routeEvent(ctx actor.Context, ev domain.ButtonEvent) {
	profile, ok := state.profiles[ev.DeviceID]
	if !ok {
		state.logger.Warn("router@default: event for unknown device", zap.String("device", ev.DeviceID))
		return
	}
	plan := profile.Plan(ev.Button)
	if plan.OnPress == domain.PRESS_NONE {
		state.logger.Debug("router@default: unsupported button",
			zap.String("device", ev.DeviceID), zap.String("button", string(ev.Button)))
		return
	}
	// a stop press cancels any ramp running on a sibling button
	if plan.OnPress == domain.PRESS_STOP && ev.Transition == domain.TRANSITION_PRESS {
		for _, pid := range state.byDevice[ev.DeviceID] {
			ctx.Send(pid, cancelRamp{})
		}
	}
	ctx.Send(state.machine(ctx, profile, ev.Button), ev)
}

func (state *EventRouterActor) machine(ctx actor.Context, profile *domain.DeviceProfile, button domain.Button) *actor.PID {
	key := fmt.Sprintf("%s_%s", profile.DeviceID, button)
	if pid, ok := state.machines[key]; ok {
		return pid
	}

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewButtonActor(profile, button, state.dispatch, state.logger)
	}, actor.WithSupervisor(supervisor))
	pid, err := ctx.SpawnNamed(props, key)
	if err != nil {
		// name clash after a restart, fall back to an anonymous child
		state.logger.Warn("router@default: SpawnNamed failed", zap.String("machine", key), zap.Error(err))
		pid = ctx.Spawn(props)
	}
	state.machines[key] = pid
	state.byDevice[profile.DeviceID] = append(state.byDevice[profile.DeviceID], pid)
	return pid
}
