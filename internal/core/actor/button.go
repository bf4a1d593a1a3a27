package actor

import (
	"fmt"
	"time"

	"github.com/smartqasa/pico-connector/internal/core/domain"
	. "github.com/smartqasa/pico-connector/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ButtonActor interprets raw press/release transitions for a single
// (device, button) pair and turns them into semantic intents. Depending on
// the button's plan it either fires a tap immediately, arms a hold timer to
// decide between tap and ramp, or starts a ramp right away.
type ButtonActor struct {
	ActorWithStates
	scheduler *scheduler.TimerScheduler
	profile   *domain.DeviceProfile
	button    domain.Button
	plan      domain.ButtonPlan
	dispatch  *actor.PID
	// seq invalidates in-flight timer messages after a state change
	seq  uint64
	ramp *rampController

	logger *zap.Logger
}

type holdTimerFired struct {
	seq uint64
}

type rampTick struct {
	seq uint64
}

// cancelRamp is broadcast by the router to sibling buttons of a device when
// a dedicated stop button is pressed.
type cancelRamp struct {
}

func NewButtonActor(profile *domain.DeviceProfile, button domain.Button, dispatch *actor.PID, logger *zap.Logger) *ButtonActor {
	act := &ButtonActor{
		profile:  profile,
		button:   button,
		plan:     profile.Plan(button),
		dispatch: dispatch,
		logger:   ActorLogger(fmt.Sprintf("button/%s/%s", profile.DeviceID, button), logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(BtnIdleState{
		actor: act,
	})
	return act
}

func (state *ButtonActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *ButtonActor) healthId() string {
	return fmt.Sprintf("button:%s:%s", state.profile.DeviceID, state.button)
}

func (state *ButtonActor) emit(ctx actor.Context, intent domain.Intent) {
	ctx.Send(state.dispatch, domain.DispatchIntentRequest{
		DeviceID: state.profile.DeviceID,
		Intent:   intent,
	})
}

// emitStep requests a ramp step and pipes the response back so the boundary
// flag can cancel the ramp. The response carries the ramp's seq so a slow
// reply from a previous ramp cannot cancel the current one.
func (state *ButtonActor) emitStep(ctx actor.Context) {
	seq := state.seq
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.dispatch, domain.DispatchIntentRequest{
		DeviceID: state.profile.DeviceID,
		Intent:   domain.StepIntent(state.plan.Hold),
		Seq:      seq,
	}, 2*time.Second), func(err error) any {
		return domain.DispatchIntentResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Seq: seq,
		}
	})
}

// beginRamp emits the ramp start intent and schedules ticks, first one
// immediate, then every step_time.
func (state *ButtonActor) beginRamp(ctx actor.Context) {
	if state.ramp != nil {
		state.logger.Error("ramp already active, ignoring start")
		return
	}
	state.seq++
	state.emit(ctx, domain.Intent{Kind: domain.INTENT_RAMP_START, Direction: state.plan.Hold})
	state.ramp = startRamp(state.scheduler, ctx.Self(), state.seq, state.profile.StepTime)
}

func (state *ButtonActor) stopRamp() {
	if state.ramp == nil {
		return
	}
	state.ramp.stop()
	state.ramp = nil
	state.seq++
}

func (state *ButtonActor) cancelHoldTimer(cancel scheduler.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	state.seq++
}

// Idle state

type BtnIdleState struct {
	ActorState
	actor *ButtonActor
}

func (state BtnIdleState) Name() string {
	return "idle"
}

func (state BtnIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("button@idle started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
	case *actor.Restarting:
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      state.actor.healthId(),
			Healthy: true,
			State:   state.Name(),
		})
	case domain.ButtonEvent:
		if msg.Transition == domain.TRANSITION_RELEASE {
			state.actor.logger.Debug("button@idle: stray release ignored")
			return
		}
		state.onPress(ctx)
	case cancelRamp:
	case holdTimerFired:
	case rampTick:
	case domain.DispatchIntentResponse:
		// late step response after the ramp ended
	default:
		state.actor.logger.Debug("button@idle: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state BtnIdleState) onPress(ctx actor.Context) {
	act := state.actor
	switch act.plan.OnPress {
	case domain.PRESS_TAP:
		act.logger.Debug("button@idle: tap")
		act.emit(ctx, domain.Intent{Kind: act.plan.Tap, Button: act.button})
	case domain.PRESS_TAP_OR_HOLD:
		act.seq++
		cancel := act.scheduler.RequestOnce(act.profile.HoldTime, ctx.Self(), holdTimerFired{seq: act.seq})
		act.Become(BtnPressedState{
			actor:      act,
			cancelHold: cancel,
		})
	case domain.PRESS_RAMP:
		act.beginRamp(ctx)
		act.Become(BtnHoldingState{
			actor: act,
		})
	case domain.PRESS_STOP:
		act.logger.Debug("button@idle: stop")
		act.emit(ctx, domain.Intent{Kind: domain.INTENT_DOMAIN_STOP, Button: act.button})
	case domain.PRESS_SCENE:
		act.logger.Debug("button@idle: scene")
		act.emit(ctx, domain.Intent{Kind: domain.INTENT_SCENE_BUTTON, Button: act.button})
	}
}

// Pressed state. The button is down and the hold timer decides whether this
// press is a tap or a ramp.

type BtnPressedState struct {
	ActorState
	actor      *ButtonActor
	cancelHold scheduler.CancelFunc
}

func (state BtnPressedState) Name() string {
	return "pressed"
}

func (state BtnPressedState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      state.actor.healthId(),
			Healthy: true,
			State:   state.Name(),
		})
	case domain.ButtonEvent:
		if msg.Transition == domain.TRANSITION_PRESS {
			state.actor.logger.Debug("button@pressed: duplicate press ignored")
			return
		}
		// released before the hold timeout: this was a tap
		state.actor.logger.Debug("button@pressed: tap")
		state.actor.cancelHoldTimer(state.cancelHold)
		state.actor.emit(ctx, domain.Intent{Kind: state.actor.plan.Tap, Button: state.actor.button})
		state.actor.Become(BtnIdleState{
			actor: state.actor,
		})
	case holdTimerFired:
		if msg.seq != state.actor.seq {
			state.actor.logger.Debug("button@pressed: stale hold timer ignored")
			return
		}
		state.actor.logger.Debug("button@pressed: hold detected")
		state.actor.beginRamp(ctx)
		state.actor.Become(BtnHoldingState{
			actor: state.actor,
		})
	case cancelRamp:
	case rampTick:
	default:
		state.actor.logger.Debug("button@pressed: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Holding state. A ramp is active and ticks until release, boundary or a
// stop broadcast.

type BtnHoldingState struct {
	ActorState
	actor *ButtonActor
}

func (state BtnHoldingState) Name() string {
	return "holding"
}

func (state BtnHoldingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      state.actor.healthId(),
			Healthy: true,
			State:   state.Name(),
		})
	case rampTick:
		if state.actor.ramp == nil || msg.seq != state.actor.seq {
			state.actor.logger.Debug("button@holding: stale ramp tick ignored")
			return
		}
		state.actor.emitStep(ctx)
	case domain.DispatchIntentResponse:
		if msg.Seq != state.actor.seq {
			state.actor.logger.Debug("button@holding: stale step response ignored")
			return
		}
		if msg.HasResponseError() {
			// keep ramping, the next tick may succeed
			state.actor.logger.Warn("button@holding: step dispatch error", zap.Error(msg.GetResponseError()))
			return
		}
		if msg.BoundaryReached {
			state.actor.logger.Debug("button@holding: boundary reached, ramp stopped")
			state.actor.stopRamp()
			state.actor.Become(BtnIdleState{
				actor: state.actor,
			})
		}
	case domain.ButtonEvent:
		if msg.Transition == domain.TRANSITION_PRESS {
			state.actor.logger.Debug("button@holding: duplicate press ignored")
			return
		}
		state.actor.logger.Debug("button@holding: released, ramp stopped")
		state.stopAndEmit(ctx)
	case cancelRamp:
		state.actor.logger.Debug("button@holding: ramp cancelled by stop button")
		state.stopAndEmit(ctx)
	case holdTimerFired:
	default:
		state.actor.logger.Debug("button@holding: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state BtnHoldingState) stopAndEmit(ctx actor.Context) {
	state.actor.stopRamp()
	state.actor.emit(ctx, domain.Intent{Kind: domain.INTENT_RAMP_STOP, Button: state.actor.button})
	state.actor.Become(BtnIdleState{
		actor: state.actor,
	})
}
