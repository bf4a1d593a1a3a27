package actor

import (
	"testing"
	"time"

	"github.com/smartqasa/pico-connector/internal/core/domain"
	"github.com/smartqasa/pico-connector/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func spawnRouter(context *actor.RootContext, profiles map[string]*domain.DeviceProfile, recorder *dispatchRecorder) *actor.PID {
	logger := zap.NewNop()
	dispatchPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return recorder
	}))
	return context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewEventRouterActor(profiles, dispatchPID, logger)
	}))
}

func TestRouterDropsUnknownDeviceAndButton(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profiles := map[string]*domain.DeviceProfile{
		"pad1": util.TestLightProfile("pad1", 100*time.Millisecond, 60*time.Millisecond),
	}
	recorder := &dispatchRecorder{}
	pid := spawnRouter(context, profiles, recorder)

	// unknown device
	context.Send(pid, domain.ButtonEvent{DeviceID: "ghost", Button: domain.BUTTON_ON, Transition: domain.TRANSITION_PRESS})
	// unsupported button for the remote type
	context.Send(pid, domain.ButtonEvent{DeviceID: "pad1", Button: "7", Transition: domain.TRANSITION_PRESS})
	time.Sleep(100 * time.Millisecond)

	assert.Empty(recorder.kinds())

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	assert.NoError(err)
	assert.True(res.(domain.ActorHealthResponse).Healthy)
}

func TestRouterRoutesTapToLazyMachine(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profiles := map[string]*domain.DeviceProfile{
		"pad1": util.TestLightProfile("pad1", 100*time.Millisecond, 60*time.Millisecond),
	}
	recorder := &dispatchRecorder{}
	pid := spawnRouter(context, profiles, recorder)

	context.Send(pid, domain.ButtonEvent{DeviceID: "pad1", Button: domain.BUTTON_ON, Transition: domain.TRANSITION_PRESS})
	context.Send(pid, domain.ButtonEvent{DeviceID: "pad1", Button: domain.BUTTON_ON, Transition: domain.TRANSITION_RELEASE})
	time.Sleep(150 * time.Millisecond)

	assert.Equal([]domain.IntentKind{domain.INTENT_TURN_ON}, recorder.kinds())
}

func TestRouterStopCancelsSiblingRamp(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profiles := map[string]*domain.DeviceProfile{
		"brl1": util.TestFiveButtonProfile("brl1", 60*time.Millisecond),
	}
	recorder := &dispatchRecorder{}
	pid := spawnRouter(context, profiles, recorder)

	// start a ramp on raise, then press the dedicated stop button
	context.Send(pid, domain.ButtonEvent{DeviceID: "brl1", Button: domain.BUTTON_RAISE, Transition: domain.TRANSITION_PRESS})
	time.Sleep(150 * time.Millisecond)
	context.Send(pid, domain.ButtonEvent{DeviceID: "brl1", Button: domain.BUTTON_STOP, Transition: domain.TRANSITION_PRESS})
	time.Sleep(150 * time.Millisecond)

	kinds := recorder.kinds()
	assert.Equal(domain.INTENT_RAMP_START, kinds[0])
	assert.GreaterOrEqual(countKind(kinds, domain.INTENT_STEP_UP), 1)
	assert.Equal(1, countKind(kinds, domain.INTENT_RAMP_STOP))
	assert.Equal(1, countKind(kinds, domain.INTENT_DOMAIN_STOP))

	// the ramp is dead: no more steps arrive
	n := len(kinds)
	time.Sleep(200 * time.Millisecond)
	assert.Len(recorder.kinds(), n)
}
