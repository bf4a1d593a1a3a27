package executor

import (
	"encoding/json"

	"github.com/smartqasa/pico-connector/internal/core/domain"
	"github.com/smartqasa/pico-connector/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// MQTTActionExecutor publishes action calls to the per-service call topic
// through the MQTT actor. Publishing is handled by the actor's mailbox, so
// Call never blocks the caller.
type MQTTActionExecutor struct {
	root      *actor.RootContext
	mqttActor *actor.PID
	baseTopic string
	logger    *zap.Logger
}

type serviceCallPayload struct {
	EntityID []string       `json:"entity_id"`
	Data     map[string]any `json:"data,omitempty"`
}

func NewMQTTActionExecutor(system *actor.ActorSystem, mqttActor *actor.PID, baseTopic string, logger *zap.Logger) *MQTTActionExecutor {
	return &MQTTActionExecutor{
		root:      system.Root,
		mqttActor: mqttActor,
		baseTopic: baseTopic,
		logger:    logger.With(zap.String("executor", "mqtt")),
	}
}

func (e *MQTTActionExecutor) Call(call domain.ActionCall) error {
	payload, err := json.Marshal(serviceCallPayload{
		EntityID: call.Entities,
		Data:     call.Data,
	})
	if err != nil {
		return err
	}
	e.root.Send(e.mqttActor, domain.PublishMessageRequest{
		Topic:   mqtt.ServiceCallTopic(e.baseTopic, string(call.Domain), call.Service),
		Payload: string(payload),
	})
	return nil
}
