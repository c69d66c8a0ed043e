package stream

import (
	"context"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"go.uber.org/atomic"
)

// Publisher is the part of mqtt.Client the Streamer needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Streamer is a renderer that publishes each displayed payload to an MQTT
// topic, where a display device picks it up.
type Streamer struct {
	client    Publisher
	topic     string
	published atomic.Uint64
	failed    atomic.Uint64
}

// NewStreamer creates an instance of a Streamer.
func NewStreamer(client Publisher, topic string) *Streamer {
	s := new(Streamer)
	s.client = client
	s.topic = topic
	return s
}

// Display publishes payload without waiting for the broker.
func (s *Streamer) Display(ctx context.Context, payload []byte) {
	token := s.client.Publish(s.topic, 0, false, payload)
	s.published.Inc()
	observability.Go(ctx, func() {
		if token.Wait() && token.Error() != nil {
			s.failed.Inc()
			logger.Errorf(ctx, "unable to publish to '%s': %v", s.topic, token.Error())
		}
	})
}

// Published returns how many payloads were handed to the broker client.
func (s *Streamer) Published() uint64 {
	return s.published.Load()
}

// Failed returns how many publishes the broker client reported as failed.
func (s *Streamer) Failed() uint64 {
	return s.failed.Load()
}
