package util

import (
	"time"

	"github.com/smartqasa/pico-connector/internal/config"
	"github.com/smartqasa/pico-connector/internal/core/domain"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "pico_connector",
			StatestreamTopic: "homeassistant_statestream",
		},
		Executor:    "mqtt",
		DevicesFile: "devices.yaml",
		Port:        8080,
	}
}

// TestLightProfile is a paddle remote over two lights with short timings so
// state machine tests run fast.
func TestLightProfile(deviceID string, holdTime, stepTime time.Duration) *domain.DeviceProfile {
	p := &domain.DeviceProfile{
		DeviceID:     deviceID,
		Type:         domain.REMOTE_TYPE_PADDLE,
		Domain:       domain.DOMAIN_LIGHT,
		Entities:     []string{"light.kitchen", "light.island"},
		HoldTime:     holdTime,
		StepTime:     stepTime,
		LightOnPct:   100,
		LightStepPct: 10,
		LightLowPct:  1,
	}
	if err := p.Resolve(); err != nil {
		panic(err)
	}
	return p
}

// TestFiveButtonProfile is a 3BRL remote over a single light.
func TestFiveButtonProfile(deviceID string, stepTime time.Duration) *domain.DeviceProfile {
	p := &domain.DeviceProfile{
		DeviceID:     deviceID,
		Type:         domain.REMOTE_TYPE_FIVE_BUTTON,
		Domain:       domain.DOMAIN_LIGHT,
		Entities:     []string{"light.bedroom"},
		HoldTime:     400 * time.Millisecond,
		StepTime:     stepTime,
		LightOnPct:   100,
		LightStepPct: 10,
		LightLowPct:  1,
	}
	if err := p.Resolve(); err != nil {
		panic(err)
	}
	return p
}
