package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestButtonEventTopicParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/event/kitchen-pico_1"
	r := buttonEventExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "kitchen-pico_1", "device extract")
}

func TestButtonEventTopicParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/device/kitchen-pico_1/action"
	r := buttonEventExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestStatestreamTopicParse(t *testing.T) {

	assert := assert.New(t)

	ssTopic := "homeassistant_statestream"
	topic := "homeassistant_statestream/light/kitchen/brightness"
	r := statestreamExtractor(ssTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "light", "domain extract")
	assert.Equal(matches[0][2], "kitchen", "object extract")
	assert.Equal(matches[0][3], "brightness", "attribute extract")
}

func TestStatestreamTopicParseFail(t *testing.T) {

	assert := assert.New(t)

	ssTopic := "homeassistant_statestream"
	topic := "other_stream/light/kitchen/brightness"
	r := statestreamExtractor(ssTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestServiceCallTopic(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("pico_connector/call/light/turn_on", ServiceCallTopic("pico_connector", "light", "turn_on"))
}
