package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/smartqasa/pico-connector/internal/core/domain"
	"github.com/smartqasa/pico-connector/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// dispatchRecorder stands in for the dispatch actor and records every
// intent it receives. Step requests are answered with the configured
// boundary flag.
type dispatchRecorder struct {
	mu       sync.Mutex
	intents  []domain.Intent
	boundary bool
}

func (r *dispatchRecorder) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.DispatchIntentRequest:
		r.mu.Lock()
		r.intents = append(r.intents, msg.Intent)
		boundary := r.boundary
		r.mu.Unlock()
		if ctx.Sender() != nil {
			ctx.Respond(domain.DispatchIntentResponse{BoundaryReached: boundary, Seq: msg.Seq})
		}
	}
}

func (r *dispatchRecorder) kinds() []domain.IntentKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.IntentKind, 0, len(r.intents))
	for _, i := range r.intents {
		out = append(out, i.Kind)
	}
	return out
}

func (r *dispatchRecorder) setBoundary(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boundary = b
}

func countKind(kinds []domain.IntentKind, kind domain.IntentKind) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func spawnButton(t *testing.T, context *actor.RootContext, profile *domain.DeviceProfile, button domain.Button, recorder *dispatchRecorder) *actor.PID {
	t.Helper()
	logger := zap.NewNop()
	dispatchPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return recorder
	}))
	return context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewButtonActor(profile, button, dispatchPID, logger)
	}))
}

func buttonState(t *testing.T, context *actor.RootContext, pid *actor.PID) string {
	t.Helper()
	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	return res.(domain.ActorHealthResponse).State
}

func press(context *actor.RootContext, pid *actor.PID, profile *domain.DeviceProfile, button domain.Button) {
	context.Send(pid, domain.ButtonEvent{DeviceID: profile.DeviceID, Button: button, Transition: domain.TRANSITION_PRESS, Timestamp: time.Now()})
}

func release(context *actor.RootContext, pid *actor.PID, profile *domain.DeviceProfile, button domain.Button) {
	context.Send(pid, domain.ButtonEvent{DeviceID: profile.DeviceID, Button: button, Transition: domain.TRANSITION_RELEASE, Timestamp: time.Now()})
}

func TestButtonTap(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profile := util.TestLightProfile("pad1", 100*time.Millisecond, 60*time.Millisecond)
	recorder := &dispatchRecorder{}
	pid := spawnButton(t, context, profile, domain.BUTTON_ON, recorder)

	press(context, pid, profile, domain.BUTTON_ON)
	time.Sleep(30 * time.Millisecond)
	assert.Equal("pressed", buttonState(t, context, pid))

	release(context, pid, profile, domain.BUTTON_ON)
	time.Sleep(200 * time.Millisecond)

	assert.Equal([]domain.IntentKind{domain.INTENT_TURN_ON}, recorder.kinds())
	assert.Equal("idle", buttonState(t, context, pid))
}

func TestButtonRaiseTapEmitsStep(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profile := util.TestLightProfile("pad1", 100*time.Millisecond, 60*time.Millisecond)
	recorder := &dispatchRecorder{}
	pid := spawnButton(t, context, profile, domain.BUTTON_RAISE, recorder)

	// released before the hold timeout: a single step, no ramp
	press(context, pid, profile, domain.BUTTON_RAISE)
	time.Sleep(30 * time.Millisecond)
	release(context, pid, profile, domain.BUTTON_RAISE)
	time.Sleep(200 * time.Millisecond)

	assert.Equal([]domain.IntentKind{domain.INTENT_STEP_UP}, recorder.kinds())
	assert.Equal("idle", buttonState(t, context, pid))
}

func TestButtonHoldStartsRamp(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profile := util.TestLightProfile("pad1", 100*time.Millisecond, 60*time.Millisecond)
	recorder := &dispatchRecorder{}
	pid := spawnButton(t, context, profile, domain.BUTTON_RAISE, recorder)

	press(context, pid, profile, domain.BUTTON_RAISE)
	// hold past the decision timeout and through a few ticks
	time.Sleep(300 * time.Millisecond)
	assert.Equal("holding", buttonState(t, context, pid))

	release(context, pid, profile, domain.BUTTON_RAISE)
	time.Sleep(200 * time.Millisecond)

	kinds := recorder.kinds()
	assert.Equal(domain.INTENT_RAMP_START, kinds[0])
	// first tick fires immediately, then one per step interval
	assert.GreaterOrEqual(countKind(kinds, domain.INTENT_STEP_UP), 2)
	assert.Equal(domain.INTENT_RAMP_STOP, kinds[len(kinds)-1])
	assert.Zero(countKind(kinds, domain.INTENT_STEP_DOWN))
	assert.Equal("idle", buttonState(t, context, pid))

	// no more ticks after release
	n := len(kinds)
	time.Sleep(200 * time.Millisecond)
	assert.Len(recorder.kinds(), n)
}

func TestButtonDuplicateTransitionsIgnored(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profile := util.TestLightProfile("pad1", 100*time.Millisecond, 60*time.Millisecond)
	recorder := &dispatchRecorder{}
	pid := spawnButton(t, context, profile, domain.BUTTON_ON, recorder)

	// stray release with no press
	release(context, pid, profile, domain.BUTTON_ON)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(recorder.kinds())
	assert.Equal("idle", buttonState(t, context, pid))

	// duplicate press is not a second tap
	press(context, pid, profile, domain.BUTTON_ON)
	press(context, pid, profile, domain.BUTTON_ON)
	release(context, pid, profile, domain.BUTTON_ON)
	time.Sleep(100 * time.Millisecond)
	assert.Equal([]domain.IntentKind{domain.INTENT_TURN_ON}, recorder.kinds())
}

func TestButtonBoundaryCancelsRamp(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profile := util.TestLightProfile("pad1", 100*time.Millisecond, 60*time.Millisecond)
	recorder := &dispatchRecorder{}
	recorder.setBoundary(true)
	pid := spawnButton(t, context, profile, domain.BUTTON_RAISE, recorder)

	press(context, pid, profile, domain.BUTTON_RAISE)
	time.Sleep(300 * time.Millisecond)

	// the first step reported a boundary, so the ramp self-cancelled
	assert.Equal("idle", buttonState(t, context, pid))
	kinds := recorder.kinds()
	assert.Equal(domain.INTENT_RAMP_START, kinds[0])
	assert.Zero(countKind(kinds, domain.INTENT_RAMP_STOP))

	// the release that eventually arrives is a no-op
	n := len(kinds)
	release(context, pid, profile, domain.BUTTON_RAISE)
	time.Sleep(100 * time.Millisecond)
	assert.Len(recorder.kinds(), n)
	assert.Equal("idle", buttonState(t, context, pid))
}

func TestButtonStaleStepResponseIgnored(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profile := util.TestLightProfile("pad1", 100*time.Millisecond, 60*time.Millisecond)
	recorder := &dispatchRecorder{}
	pid := spawnButton(t, context, profile, domain.BUTTON_RAISE, recorder)

	press(context, pid, profile, domain.BUTTON_RAISE)
	time.Sleep(200 * time.Millisecond)
	assert.Equal("holding", buttonState(t, context, pid))

	// a boundary reply tagged for an earlier ramp must not cancel this one
	context.Send(pid, domain.DispatchIntentResponse{BoundaryReached: true, Seq: 0})
	time.Sleep(100 * time.Millisecond)
	assert.Equal("holding", buttonState(t, context, pid))

	release(context, pid, profile, domain.BUTTON_RAISE)
	time.Sleep(100 * time.Millisecond)
	kinds := recorder.kinds()
	assert.Equal(domain.INTENT_RAMP_STOP, kinds[len(kinds)-1])
	assert.Equal("idle", buttonState(t, context, pid))
}

func TestFiveButtonImmediateRamp(t *testing.T) {

	assert := assert.New(t)

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	profile := util.TestFiveButtonProfile("brl1", 60*time.Millisecond)
	recorder := &dispatchRecorder{}
	pid := spawnButton(t, context, profile, domain.BUTTON_LOWER, recorder)

	// ramp starts on press, no hold timer involved
	press(context, pid, profile, domain.BUTTON_LOWER)
	time.Sleep(50 * time.Millisecond)
	assert.Equal("holding", buttonState(t, context, pid))

	kinds := recorder.kinds()
	assert.Equal(domain.INTENT_RAMP_START, kinds[0])
	assert.GreaterOrEqual(countKind(kinds, domain.INTENT_STEP_DOWN), 1)

	// a stop broadcast cancels the ramp like a release would
	context.Send(pid, cancelRamp{})
	time.Sleep(100 * time.Millisecond)
	kinds = recorder.kinds()
	assert.Equal(domain.INTENT_RAMP_STOP, kinds[len(kinds)-1])
	assert.Equal("idle", buttonState(t, context, pid))
}
