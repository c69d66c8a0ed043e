package stream

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/matt-g-everett/framecast/playback"
	"go.uber.org/atomic"
)

const sequenceHeaderSize = 8

// Subscriber is the part of mqtt.Client the Source needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// EncodeFrameMessage builds the payload a remote producer publishes: the
// big-endian sequence number followed by the image bytes.
func EncodeFrameMessage(sequence uint64, image []byte) []byte {
	b := make([]byte, sequenceHeaderSize, sequenceHeaderSize+len(image))
	binary.BigEndian.PutUint64(b, sequence)
	return append(b, image...)
}

// ParseFrameMessage splits a frame message. The producer id is the last
// segment of the topic.
func ParseFrameMessage(topic string, payload []byte) (producer string, sequence uint64, image []byte, err error) {
	if len(payload) < sequenceHeaderSize {
		return "", 0, nil, fmt.Errorf("message of %d bytes is too short", len(payload))
	}
	producer = topic[strings.LastIndex(topic, "/")+1:]
	sequence = binary.BigEndian.Uint64(payload[:sequenceHeaderSize])
	return producer, sequence, payload[sequenceHeaderSize:], nil
}

// Source receives frames published by remote producers on
// "<topic>/<producer>" and passes them to a FrameSink.
type Source struct {
	client    Subscriber
	topic     string
	sink      playback.FrameSink
	received  atomic.Uint64
	malformed atomic.Uint64
}

// NewSource creates an instance of a Source.
func NewSource(client Subscriber, topic string, sink playback.FrameSink) *Source {
	s := new(Source)
	s.client = client
	s.topic = strings.TrimSuffix(topic, "/")
	s.sink = sink
	return s
}

// Subscribe registers with the broker. Call it on every (re)connect.
func (s *Source) Subscribe(ctx context.Context) error {
	filter := s.topic + "/+"
	token := s.client.Subscribe(filter, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(ctx, msg)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("unable to subscribe to '%s': %w", filter, token.Error())
	}
	logger.Infof(ctx, "subscribed to '%s'", filter)
	return nil
}

func (s *Source) handleMessage(ctx context.Context, msg mqtt.Message) {
	producer, seq, image, err := ParseFrameMessage(msg.Topic(), msg.Payload())
	if err != nil {
		s.malformed.Inc()
		logger.Warnf(ctx, "dropping a message on '%s': %v", msg.Topic(), err)
		return
	}

	s.received.Inc()
	s.sink.OnFrameReceivedFrom(ctx, producer, image, seq)
}

// Counters returns the number of accepted and malformed messages.
func (s *Source) Counters() (received, malformed uint64) {
	return s.received.Load(), s.malformed.Load()
}
