package actorutil

import (
	"time"

	"github.com/primetalk/goio/io"
)

// SafeBackgroundTask wraps a blocking function so it can run off the actor
// goroutine with an optional timeout.
type SafeBackgroundTask[T any] struct {
	fn      func() (*T, error)
	timeout *time.Duration
	onError func(error)
}

func NewBackgroundTaskErr(fn func() error) *SafeBackgroundTask[any] {
	return &SafeBackgroundTask[any]{
		fn: func() (*any, error) {
			return nil, fn()
		},
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

// RunDetached runs the task on its own goroutine. The onError callback must
// not touch actor context.
func (t *SafeBackgroundTask[T]) RunDetached() {
	go t.Run()
}

func (t *SafeBackgroundTask[T]) Run() {
	bgFn := io.Eval(t.fn)
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		var zero T
		return zero
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	if result := io.RunSync(bg); result.Error != nil && t.onError != nil {
		t.onError(result.Error)
	}
}
