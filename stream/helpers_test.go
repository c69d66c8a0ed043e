package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
)

func testContext(t *testing.T) context.Context {
	l := logrus.Default().WithLevel(logger.LevelDebug)
	ctx := logger.CtxWithLogger(context.Background(), l)
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

type delivery struct {
	producer string
	payload  []byte
	sequence uint64
}

type recordingSink struct {
	locker     sync.Mutex
	deliveries []delivery
}

func (s *recordingSink) OnFrameReceivedFrom(_ context.Context, producer string, payload []byte, sequence uint64) bool {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.deliveries = append(s.deliveries, delivery{producer, payload, sequence})
	return true
}

func (s *recordingSink) Deliveries() []delivery {
	s.locker.Lock()
	defer s.locker.Unlock()
	return append([]delivery(nil), s.deliveries...)
}

// fakeToken is an already completed mqtt.Token.
type fakeToken struct {
	mqtt.Token
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeBroker records publishes and hands out the subscription handler.
type fakeBroker struct {
	locker    sync.Mutex
	err       error
	published []published
	filter    string
	handler   mqtt.MessageHandler
}

func (b *fakeBroker) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.published = append(b.published, published{topic, qos, payload.([]byte)})
	return &fakeToken{err: b.err}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.filter = topic
	b.handler = callback
	return &fakeToken{err: b.err}
}

func (b *fakeBroker) Deliver(topic string, payload []byte) {
	b.locker.Lock()
	handler := b.handler
	b.locker.Unlock()
	handler(nil, &fakeMessage{topic: topic, payload: payload})
}

func (b *fakeBroker) Published() []published {
	b.locker.Lock()
	defer b.locker.Unlock()
	return append([]published(nil), b.published...)
}
