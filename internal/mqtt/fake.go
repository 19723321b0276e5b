package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// PublishedMessage is a message recorded by FakeClient
type PublishedMessage struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// FakeClient records publishes and subscriptions for test assertions.
// Methods not overridden here panic through the nil embedded client.
type FakeClient struct {
	paho.Client

	mu sync.Mutex

	// Published contains all messages that were published.
	Published []PublishedMessage
	// Subscriptions maps subscribed topics to their handlers.
	Subscriptions map[string]paho.MessageHandler
	// PublishError, if set, will be returned by the token of every publish.
	PublishError error
	// Disconnected tracks if Disconnect was called.
	Disconnected bool
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Subscriptions: map[string]paho.MessageHandler{},
	}
}

func (f *FakeClient) IsConnected() bool {
	return !f.Disconnected
}

func (f *FakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return newFakeToken(f.PublishError)
	}

	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	}
	f.Published = append(f.Published, PublishedMessage{Topic: topic, Retained: retained, Payload: data})
	return newFakeToken(nil)
}

func (f *FakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Subscriptions[topic] = callback
	return newFakeToken(nil)
}

func (f *FakeClient) Unsubscribe(topics ...string) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, topic := range topics {
		delete(f.Subscriptions, topic)
	}
	return newFakeToken(nil)
}

func (f *FakeClient) Disconnect(quiesce uint) {
	f.Disconnected = true
}

// Deliver passes the payload to the handler subscribed to the topic, if any
func (f *FakeClient) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	handler, ok := f.Subscriptions[topic]
	f.mu.Unlock()
	if !ok {
		return false
	}
	handler(f, &fakeMessage{topic: topic, payload: payload})
	return true
}

// PublishedTo returns the payloads published to the given topic, in order
func (f *FakeClient) PublishedTo(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result [][]byte
	for _, message := range f.Published {
		if message.Topic == topic {
			result = append(result, message.Payload)
		}
	}
	return result
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{err: err, done: done}
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}
