package actor

import (
	"fmt"

	"github.com/smartqasa/pico-connector/internal/core/domain"
	"github.com/smartqasa/pico-connector/internal/core/events"
	"github.com/smartqasa/pico-connector/internal/core/service"
	. "github.com/smartqasa/pico-connector/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// DispatchActor owns the action dispatcher service and the entity tracker
// behind it. All intents and state updates flow through this actor's
// mailbox, which keeps the tracker single-writer without locks.
type DispatchActor struct {
	behavior    actor.Behavior
	service     *service.Dispatcher
	profiles    map[string]*domain.DeviceProfile
	eventStream *eventstream.EventStream
	logger      *zap.Logger
}

func NewDispatchActor(service *service.Dispatcher, profiles map[string]*domain.DeviceProfile, eventStream *eventstream.EventStream, logger *zap.Logger) *DispatchActor {
	act := &DispatchActor{
		behavior:    actor.NewBehavior(),
		service:     service,
		profiles:    profiles,
		eventStream: eventStream,
		logger:      ActorLogger(domain.ACTOR_ID_DISPATCH, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *DispatchActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DispatchActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("dispatch@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("dispatch@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DISPATCH,
			Healthy: true,
			State:   "default",
		})
	case domain.DispatchIntentRequest:
		profile, ok := state.profiles[msg.DeviceID]
		if !ok {
			state.logger.Warn("dispatch@default: intent for unknown device", zap.String("device", msg.DeviceID))
			return
		}
		boundary := state.service.Dispatch(profile, msg.Intent)
		state.eventStream.Publish(events.IntentEvent{
			DeviceID: msg.DeviceID,
			Intent:   msg.Intent,
		})
		if ctx.Sender() != nil {
			ctx.Respond(domain.DispatchIntentResponse{
				BoundaryReached: boundary,
				Seq:             msg.Seq,
			})
		}
	case domain.EntityStateUpdate:
		state.service.ApplyStateUpdate(msg)
	default:
		state.logger.Debug("dispatch@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
