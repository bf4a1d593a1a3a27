package config

import (
	"fmt"
	"os"
	"time"

	"github.com/smartqasa/pico-connector/internal/core/domain"

	"gopkg.in/yaml.v3"
)

// Profile defaults applied when the devices file omits a value.
const (
	DEFAULT_HOLD_TIME_MS   = 400
	DEFAULT_STEP_TIME_MS   = 250
	DEFAULT_LIGHT_ON_PCT   = 100
	DEFAULT_LIGHT_STEP_PCT = 10
	DEFAULT_LIGHT_LOW_PCT  = 1
	DEFAULT_FAN_ON_PCT     = 100
	DEFAULT_FAN_SPEEDS     = 4
	DEFAULT_COVER_OPEN_POS = 100
	DEFAULT_COVER_STEP_PCT = 10
	DEFAULT_MEDIA_VOL_STEP = 5
)

type devicesFile struct {
	Devices []deviceEntry `yaml:"devices"`
}

type deviceEntry struct {
	Device string `yaml:"device"`
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`

	Lights       []string `yaml:"lights"`
	Fans         []string `yaml:"fans"`
	Covers       []string `yaml:"covers"`
	MediaPlayers []string `yaml:"media_players"`
	Switches     []string `yaml:"switches"`

	HoldTimeMs *uint32 `yaml:"hold_time_ms"`
	StepTimeMs *uint32 `yaml:"step_time_ms"`

	LightOnPct   *int `yaml:"light_on_pct"`
	LightStepPct *int `yaml:"light_step_pct"`
	LightLowPct  *int `yaml:"light_low_pct"`

	FanOnPct  *int `yaml:"fan_on_pct"`
	FanSpeeds *int `yaml:"fan_speeds"`

	CoverOpenPos *int `yaml:"cover_open_pos"`
	CoverStepPct *int `yaml:"cover_step_pct"`

	MediaPlayerVolStep *int `yaml:"media_player_vol_step"`

	MiddleButton []domain.ActionDescriptor            `yaml:"middle_button"`
	Buttons      map[string][]domain.ActionDescriptor `yaml:"buttons"`
}

// LoadDeviceProfiles reads the devices file and resolves every entry into
// an immutable DeviceProfile, keyed by device id. Defaults are merged and
// cross-field invariants checked here so the interpreter never sees an
// invalid profile.
func LoadDeviceProfiles(path string) (map[string]*domain.DeviceProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices file: %w", err)
	}
	var file devicesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse devices file: %w", err)
	}
	if len(file.Devices) == 0 {
		return nil, fmt.Errorf("devices file %s contains no devices", path)
	}

	profiles := make(map[string]*domain.DeviceProfile, len(file.Devices))
	for i := range file.Devices {
		profile, err := resolveProfile(&file.Devices[i])
		if err != nil {
			return nil, err
		}
		if _, dup := profiles[profile.DeviceID]; dup {
			return nil, fmt.Errorf("duplicate device id %q", profile.DeviceID)
		}
		profiles[profile.DeviceID] = profile
	}
	return profiles, nil
}

func resolveProfile(entry *deviceEntry) (*domain.DeviceProfile, error) {
	if entry.Device == "" {
		return nil, fmt.Errorf("device entry %q is missing a device id", entry.Name)
	}

	dom, entities, err := singleDomain(entry)
	if err != nil {
		return nil, err
	}

	profile := &domain.DeviceProfile{
		DeviceID: entry.Device,
		Name:     entry.Name,
		Type:     domain.RemoteType(entry.Type),
		Domain:   dom,
		Entities: entities,

		HoldTime: time.Duration(uint32Or(entry.HoldTimeMs, DEFAULT_HOLD_TIME_MS)) * time.Millisecond,
		StepTime: time.Duration(uint32Or(entry.StepTimeMs, DEFAULT_STEP_TIME_MS)) * time.Millisecond,

		LightOnPct:   intOr(entry.LightOnPct, DEFAULT_LIGHT_ON_PCT),
		LightStepPct: intOr(entry.LightStepPct, DEFAULT_LIGHT_STEP_PCT),
		LightLowPct:  intOr(entry.LightLowPct, DEFAULT_LIGHT_LOW_PCT),

		FanOnPct:  intOr(entry.FanOnPct, DEFAULT_FAN_ON_PCT),
		FanSpeeds: intOr(entry.FanSpeeds, DEFAULT_FAN_SPEEDS),

		CoverOpenPos: intOr(entry.CoverOpenPos, DEFAULT_COVER_OPEN_POS),
		CoverStepPct: intOr(entry.CoverStepPct, DEFAULT_COVER_STEP_PCT),

		MediaPlayerVolStep: intOr(entry.MediaPlayerVolStep, DEFAULT_MEDIA_VOL_STEP),

		MiddleButton: entry.MiddleButton,
	}

	if len(entry.Buttons) > 0 {
		profile.SceneButtons = make(map[domain.Button][]domain.ActionDescriptor, len(entry.Buttons))
		for b, actions := range entry.Buttons {
			for _, a := range actions {
				if _, _, err := domain.ParseAction(a.Action); err != nil {
					return nil, fmt.Errorf("device %s button %s: %w", entry.Device, b, err)
				}
			}
			profile.SceneButtons[domain.Button(b)] = actions
		}
	}
	for _, a := range entry.MiddleButton {
		if _, _, err := domain.ParseAction(a.Action); err != nil {
			return nil, fmt.Errorf("device %s middle_button: %w", entry.Device, err)
		}
	}

	if err := profile.Resolve(); err != nil {
		return nil, err
	}
	return profile, nil
}

// singleDomain enforces the one-domain invariant for non-scene remotes.
func singleDomain(entry *deviceEntry) (domain.EntityDomain, []string, error) {
	var (
		dom      domain.EntityDomain
		entities []string
		count    int
	)
	pick := func(d domain.EntityDomain, list []string) {
		if len(list) > 0 {
			dom = d
			entities = list
			count++
		}
	}
	pick(domain.DOMAIN_COVER, entry.Covers)
	pick(domain.DOMAIN_LIGHT, entry.Lights)
	pick(domain.DOMAIN_FAN, entry.Fans)
	pick(domain.DOMAIN_MEDIA_PLAYER, entry.MediaPlayers)
	pick(domain.DOMAIN_SWITCH, entry.Switches)

	if count > 1 {
		return "", nil, fmt.Errorf("device %s: more than one domain entity list configured", entry.Device)
	}
	return dom, entities, nil
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

func uint32Or(v *uint32, def uint32) uint32 {
	if v != nil {
		return *v
	}
	return def
}
