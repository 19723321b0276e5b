// Package mqtt wraps the paho client with the connect and publish conventions
// shared by the boiler coordinator and the event publisher.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	ConnectTimeout       = 10 * time.Second
	ConnectRetryInterval = 5 * time.Second
	PublishTimeout       = 5 * time.Second
	// DisconnectQuiesce is the time in milliseconds granted to pending work on disconnect
	DisconnectQuiesce = 1000
)

var ErrTimeout = errors.New("mqtt operation timeout")

func NewClientOptions(broker string, clientId string) *paho.ClientOptions {
	return paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientId).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(ConnectRetryInterval)
}

// Connect creates a client for the given broker and waits for the initial connection
func Connect(broker string, clientId string) (paho.Client, error) {
	client := paho.NewClient(NewClientOptions(broker, clientId))
	token := client.Connect()
	if !token.WaitTimeout(ConnectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return client, nil
}

// Publish sends the payload with QoS 0 (at-most-once) and waits for the token,
// the publish timeout or the context, whichever comes first.
func Publish(ctx context.Context, client paho.Client, topic string, retained bool, payload []byte) error {
	token := client.Publish(topic, 0, retained, payload)
	if err := wait(ctx, token, PublishTimeout); err != nil {
		return err
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishJSON marshals the value and publishes it
func PublishJSON(ctx context.Context, client paho.Client, topic string, retained bool, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return Publish(ctx, client, topic, retained, payload)
}

// Subscribe registers the handler and waits for the broker to acknowledge the subscription
func Subscribe(ctx context.Context, client paho.Client, topic string, handler paho.MessageHandler) error {
	token := client.Subscribe(topic, 0, handler)
	if err := wait(ctx, token, ConnectTimeout); err != nil {
		return err
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func Close(client paho.Client) {
	client.Disconnect(DisconnectQuiesce)
}

// Topic joins the given prefix and suffix
func Topic(prefix string, suffix string) string {
	return fmt.Sprintf("%s/%s", prefix, suffix)
}

func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}
