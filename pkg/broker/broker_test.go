package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the part of mqtt.Client the package uses.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	published    []published
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	failTopic    string
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]mqtt.MessageHandler{}}
}

func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	if topic == c.failTopic {
		return doneToken{err: errors.New("not authorized")}
	}
	c.mu.Lock()
	c.handlers[topic] = cb
	c.mu.Unlock()
	return doneToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	c.mu.Unlock()
	return doneToken{}
}

func (c *fakeClient) deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	cb, ok := c.handlers[topic]
	c.mu.Unlock()
	if ok {
		cb(c, fakeMessage{topic: topic, payload: payload})
	}
	return ok
}

func TestQoSFor(t *testing.T) {
	assert.Equal(t, byte(1), QoSFor("pump/command"))
	assert.Equal(t, byte(1), QoSFor("event/dosingResult/2"))
	assert.Equal(t, byte(0), QoSFor("pump/state"))
	assert.Equal(t, byte(0), QoSFor("zigbee/tx"))
}

func TestPublisher_PublishJSON(t *testing.T) {
	c := newFakeClient()
	p := NewPublisher(c, nil)

	require.NoError(t, p.PublishJSON("pump/state", map[string]any{"running": true}))
	require.NoError(t, p.Publish("event/dosingResult/0", []byte("{}")))

	require.Len(t, c.published, 2)
	assert.Equal(t, "pump/state", c.published[0].topic)
	assert.True(t, c.published[0].retained)
	assert.JSONEq(t, `{"running":true}`, string(c.published[0].payload))
	assert.Equal(t, byte(1), c.published[1].qos)
	assert.False(t, c.published[1].retained)

	assert.Error(t, p.PublishJSON("pump/state", func() {}))
}

func TestSubscriber_Run(t *testing.T) {
	c := newFakeClient()
	c.failTopic = "denied"

	got := make(chan string, 4)
	s := NewSubscriber(c, []string{"pump/command", "denied"}, func(topic string, payload []byte) error {
		got <- topic + ":" + string(payload)
		return errors.New("ignored")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.deliver("pump/command", []byte("x")) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "pump/command:x", <-got)

	cancel()
	<-done
	assert.Equal(t, []string{"pump/command"}, c.unsubscribed)
}
