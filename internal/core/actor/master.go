package actor

import (
	"fmt"
	"log"
	"time"

	adactor "github.com/smartqasa/pico-connector/internal/adapter/actor"
	"github.com/smartqasa/pico-connector/internal/config"
	"github.com/smartqasa/pico-connector/internal/core/domain"
	"github.com/smartqasa/pico-connector/internal/core/port"
	"github.com/smartqasa/pico-connector/internal/core/service"
	. "github.com/smartqasa/pico-connector/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

// ExecutorProvider builds the action executor once the MQTT child is up, so
// the MQTT-backed executor can publish through it.
type ExecutorProvider func(system *actor.ActorSystem, mqttActor *actor.PID) port.ActionExecutor

type MasterActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	profiles           map[string]*domain.DeviceProfile
	mqttActor          *actor.PID
	dispatchActor      *actor.PID
	routerActor        *actor.PID
	mqttActorProvider  MQTTActorProvider
	executorProvider   ExecutorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	mqttActorHealthy     bool
	dispatchActorHealthy bool
	routerActorHealthy   bool
	checksReceived       int
	respondTo            *actor.PID
}

func NewMasterActor(config config.Config, profiles map[string]*domain.DeviceProfile,
	mqttActorProvider MQTTActorProvider, executorProvider ExecutorProvider, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:       &eventstream.EventStream{},
		profiles:          profiles,
		mqttActorProvider: mqttActorProvider,
		executorProvider:  executorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start dispatch child using the executor bound to the MQTT child
		executor := state.executorProvider(ctx.ActorSystem(), mqttActorPID)
		dispatchActorPID, err := state.startDispatchActor(ctx, executor)
		if err != nil {
			panic(err)
		}
		state.dispatchActor = dispatchActorPID

		// start router child
		routerActorPID, err := state.startRouterActor(ctx)
		if err != nil {
			panic(err)
		}
		state.routerActor = routerActorPID

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Dispatch Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.dispatchActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_DISPATCH,
				Healthy: false,
			}
		})
		// Router Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.routerActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_ROUTER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.ButtonEvent:
		// raw remote event from the MQTT child
		ctx.Send(state.routerActor, msg)
	case domain.EntityStateUpdate:
		ctx.Send(state.dispatchActor, msg)
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_DISPATCH {
				state.currentHealthCheck.dispatchActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_ROUTER {
				state.currentHealthCheck.routerActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterActor) startDispatchActor(ctx actor.Context, executor port.ActionExecutor) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	dispatcher := service.NewDispatcher(executor, state.logger)
	dispatchProps := actor.PropsFromProducer(func() actor.Actor {
		return NewDispatchActor(dispatcher, state.profiles, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	dispatchActorPID, err := ctx.SpawnNamed(dispatchProps, domain.ACTOR_ID_DISPATCH)
	if err != nil {
		return nil, err
	}

	return dispatchActorPID, nil
}

func (state *MasterActor) startRouterActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	routerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewEventRouterActor(state.profiles, state.dispatchActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	routerActorPID, err := ctx.SpawnNamed(routerProps, domain.ACTOR_ID_ROUTER)
	if err != nil {
		return nil, err
	}

	return routerActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.mqttActorHealthy = false
	state.dispatchActorHealthy = false
	state.routerActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.mqttActorHealthy && state.dispatchActorHealthy && state.routerActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
