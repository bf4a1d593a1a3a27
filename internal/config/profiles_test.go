package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartqasa/pico-connector/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func writeDevicesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDeviceProfiles(t *testing.T) {

	assert := assert.New(t)

	path := writeDevicesFile(t, `
devices:
  - device: kitchen_pico
    name: Kitchen
    type: P2B
    lights:
      - light.kitchen
      - light.island
    hold_time_ms: 350
    light_step_pct: 5
  - device: bedroom_fan_pico
    type: 3BRL
    fans:
      - fan.bedroom
    fan_speeds: 6
`)

	profiles, err := LoadDeviceProfiles(path)
	assert.NoError(err)
	assert.Len(profiles, 2)

	kitchen := profiles["kitchen_pico"]
	assert.Equal(domain.REMOTE_TYPE_PADDLE, kitchen.Type)
	assert.Equal(domain.DOMAIN_LIGHT, kitchen.Domain)
	assert.Equal([]string{"light.kitchen", "light.island"}, kitchen.Entities)
	assert.Equal(350*time.Millisecond, kitchen.HoldTime)
	// unset values fall back to defaults
	assert.Equal(DEFAULT_STEP_TIME_MS*time.Millisecond, kitchen.StepTime)
	assert.Equal(5, kitchen.LightStepPct)
	assert.Equal(DEFAULT_LIGHT_ON_PCT, kitchen.LightOnPct)

	fan := profiles["bedroom_fan_pico"]
	assert.Equal(domain.DOMAIN_FAN, fan.Domain)
	assert.Equal(6, fan.FanSpeeds)
}

func TestLoadDeviceProfilesSceneButtons(t *testing.T) {

	assert := assert.New(t)

	path := writeDevicesFile(t, `
devices:
  - device: hall_pico
    type: 4B
    buttons:
      "1":
        - action: scene.turn_on
          target:
            - scene.evening
      "2":
        - action: light.turn_off
          target:
            - light.hall
          data:
            transition: 2
`)

	profiles, err := LoadDeviceProfiles(path)
	assert.NoError(err)

	hall := profiles["hall_pico"]
	assert.Equal(domain.REMOTE_TYPE_FOUR_BUTTON, hall.Type)
	assert.Len(hall.SceneButtons, 2)
	assert.Equal("scene.turn_on", hall.SceneButtons["1"][0].Action)
	assert.Equal(map[string]any{"transition": 2}, hall.SceneButtons["2"][0].Data)
}

func TestLoadDeviceProfilesErrors(t *testing.T) {

	assert := assert.New(t)

	// duplicate device id
	path := writeDevicesFile(t, `
devices:
  - device: a
    type: 2B
    lights: [light.a]
  - device: a
    type: 2B
    lights: [light.b]
`)
	_, err := LoadDeviceProfiles(path)
	assert.ErrorContains(err, "duplicate device id")

	// more than one domain entity list
	path = writeDevicesFile(t, `
devices:
  - device: b
    type: P2B
    lights: [light.a]
    fans: [fan.a]
`)
	_, err = LoadDeviceProfiles(path)
	assert.ErrorContains(err, "more than one domain")

	// malformed action string
	path = writeDevicesFile(t, `
devices:
  - device: c
    type: 4B
    buttons:
      "1":
        - action: turn_on
`)
	_, err = LoadDeviceProfiles(path)
	assert.Error(err)

	// empty file
	path = writeDevicesFile(t, "devices: []\n")
	_, err = LoadDeviceProfiles(path)
	assert.ErrorContains(err, "no devices")

	_, err = LoadDeviceProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)
}
