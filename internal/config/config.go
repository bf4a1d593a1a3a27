package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel      zapcore.Level
	MQTT          MQTTConfig          `mapstructure:"mqtt"`
	HomeAssistant HomeAssistantConfig `mapstructure:"home_assistant"`

	// Executor selects the action backend: "mqtt" or "websocket".
	Executor    string `mapstructure:"executor"`
	DevicesFile string `mapstructure:"devices_file"`
	Port        uint   `mapstructure:"port"`
	HttpLog     bool   `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host             string
	Port             int
	Username         string
	Password         string
	BaseTopic        string `mapstructure:"base_topic"`
	StatestreamTopic string `mapstructure:"statestream_topic"`
}

type HomeAssistantConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
