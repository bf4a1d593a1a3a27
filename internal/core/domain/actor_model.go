package domain

const (
	ACTOR_ID_MASTER   = "master"
	ACTOR_ID_MQTT     = "mqtt"
	ACTOR_ID_ROUTER   = "router"
	ACTOR_ID_DISPATCH = "dispatch"
)

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

// DispatchIntentRequest asks the dispatch actor to translate one intent
// into domain action calls. Step intents answer with BoundaryReached so
// the owning button machine can self-cancel its ramp. Seq is echoed back
// unchanged; the button machine uses it to drop responses that belong to
// an earlier ramp.
type DispatchIntentRequest struct {
	ActorRequestMixIn
	DeviceID string
	Intent   Intent
	Seq      uint64
}

type DispatchIntentResponse struct {
	ActorResponseMixIn
	BoundaryReached bool
	Seq             uint64
}
