package actor

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
)

// rampController owns the repeating tick timer of an active ramp. Ticks
// carry the sequence number they were scheduled with so stale ticks queued
// before cancellation are discarded by the receiver.
type rampController struct {
	seq    uint64
	cancel scheduler.CancelFunc
	done   bool
}

// startRamp schedules ramp ticks. The first tick fires immediately, then
// one every stepTime.
func startRamp(sched *scheduler.TimerScheduler, self *actor.PID, seq uint64, stepTime time.Duration) *rampController {
	return &rampController{
		seq:    seq,
		cancel: sched.SendRepeatedly(0, stepTime, self, rampTick{seq: seq}),
	}
}

func (r *rampController) stop() {
	if r.done {
		return
	}
	r.done = true
	if r.cancel != nil {
		r.cancel()
	}
}
