package port

import (
	"github.com/smartqasa/pico-connector/internal/core/domain"
)

// ActionExecutor performs one domain action call against the outside
// world. Call must not block the caller: implementations complete the
// underlying operation asynchronously and report transport errors through
// their own logging. The returned error covers immediate failures only
// (e.g. not connected, malformed call).
type ActionExecutor interface {
	Call(call domain.ActionCall) error
}
