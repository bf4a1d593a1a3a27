package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/smartqasa/pico-connector/internal/config"
	"github.com/smartqasa/pico-connector/internal/core/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("pico_connector_%d", rand.IntN(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:           mqtt.NewClient(opts),
		cfg:              cfg.MQTT,
		eventTopicRegexp: buttonEventExtractor(cfg.MQTT.BaseTopic),
		stateTopicRegexp: statestreamExtractor(cfg.MQTT.StatestreamTopic),
	}
}

type MQTTClient struct {
	client           mqtt.Client
	cfg              config.MQTTConfig
	eventTopicRegexp *regexp.Regexp
	stateTopicRegexp *regexp.Regexp
}

// buttonEventPayload is the wire shape of one Pico notification published
// by the Lutron bridge integration.
type buttonEventPayload struct {
	Button string `json:"button"`
	Action string `json:"action"`
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) BridgeVersionTopic() string {
	return fmt.Sprintf("%s/bridge/version", c.baseTopic())
}

func (c *MQTTClient) EventTopic() string {
	return fmt.Sprintf("%s/event/+", c.baseTopic())
}

func (c *MQTTClient) StatestreamTopic() string {
	return fmt.Sprintf("%s/#", c.cfg.StatestreamTopic)
}

// DeviceActionTopic carries the last dispatched intent of a device.
func (c *MQTTClient) DeviceActionTopic(deviceId string) string {
	return fmt.Sprintf("%s/device/%s/action", c.baseTopic(), deviceId)
}

// ServiceCallTopic is where the MQTT executor publishes action calls.
func (c *MQTTClient) ServiceCallTopic(dom, service string) string {
	return ServiceCallTopic(c.baseTopic(), dom, service)
}

func ServiceCallTopic(baseTopic, dom, service string) string {
	return fmt.Sprintf("%s/call/%s/%s", baseTopic, dom, service)
}

// ParseButtonEvent maps a raw event topic message to a ButtonEvent.
func (c *MQTTClient) ParseButtonEvent(msg mqtt.Message) (*domain.ButtonEvent, error) {
	matches := c.eventTopicRegexp.FindAllStringSubmatch(msg.Topic(), 1)
	if len(matches) == 0 || len(matches[0]) != 2 {
		return nil, errors.New("not a button event topic")
	}
	var payload buttonEventPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		return nil, err
	}
	transition := domain.Transition(payload.Action)
	if transition != domain.TRANSITION_PRESS && transition != domain.TRANSITION_RELEASE {
		return nil, fmt.Errorf("unknown transition %q", payload.Action)
	}
	return &domain.ButtonEvent{
		DeviceID:   matches[0][1],
		Button:     domain.Button(payload.Button),
		Transition: transition,
		Timestamp:  time.Now(),
	}, nil
}

// ParseStateUpdate maps a statestream message to an EntityStateUpdate.
func (c *MQTTClient) ParseStateUpdate(msg mqtt.Message) (*domain.EntityStateUpdate, error) {
	matches := c.stateTopicRegexp.FindAllStringSubmatch(msg.Topic(), 1)
	if len(matches) == 0 || len(matches[0]) != 4 {
		return nil, errors.New("not a statestream topic")
	}
	return &domain.EntityStateUpdate{
		EntityID:  fmt.Sprintf("%s.%s", matches[0][1], matches[0][2]),
		Attribute: matches[0][3],
		Payload:   string(msg.Payload()),
	}, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToEventTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.EventTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) SubscribeToStatestream(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.StatestreamTopic(), 0, handler, continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func buttonEventExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/event/([a-zA-Z0-9_-]+)$", baseTopic))
}

func statestreamExtractor(statestreamTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/([a-z_]+)/([a-zA-Z0-9_]+)/([a-z_]+)$", statestreamTopic))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
