package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/mqtt"
	"github.com/markusressel/boiler2go/internal/ui"
)

const (
	TopicState                    = "state"
	TopicSetControlSetpoint       = "set/setpoint"
	TopicSetMaxRelativeModulation = "set/max_relative_modulation"
	TopicSetHeaterState           = "set/heater"
)

type commandPayload struct {
	Value interface{} `json:"value"`
}

// MqttCoordinator talks to a boiler gateway that publishes its state as JSON
// on {prefix}/state and accepts commands on {prefix}/set/...
type MqttCoordinator struct {
	client       paho.Client
	prefix       string
	capabilities boiler.Capabilities
	clock        func() time.Time

	mu      sync.RWMutex
	state   boiler.State
	updates chan time.Time
}

func NewMqttCoordinator(ctx context.Context, client paho.Client, topicPrefix string, capabilities boiler.Capabilities) (*MqttCoordinator, error) {
	c := &MqttCoordinator{
		client:       client,
		prefix:       topicPrefix,
		capabilities: capabilities,
		clock:        time.Now,
		updates:      make(chan time.Time, 1),
	}

	if err := mqtt.Subscribe(ctx, client, mqtt.Topic(topicPrefix, TopicState), c.handleState); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *MqttCoordinator) handleState(_ paho.Client, message paho.Message) {
	var state boiler.State
	if err := json.Unmarshal(message.Payload(), &state); err != nil {
		ui.Warning("Ignoring invalid boiler state on %s: %v", message.Topic(), err)
		return
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	notify(c.updates, c.clock())
}

func (c *MqttCoordinator) State() boiler.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *MqttCoordinator) Capabilities() boiler.Capabilities {
	return c.capabilities
}

func (c *MqttCoordinator) SupportsSetpointManagement() bool {
	return true
}

func (c *MqttCoordinator) SupportsRelativeModulationManagement() bool {
	return true
}

func (c *MqttCoordinator) SetHeaterState(ctx context.Context, state boiler.HeaterState) error {
	return c.publish(ctx, TopicSetHeaterState, string(state))
}

func (c *MqttCoordinator) SetControlSetpoint(ctx context.Context, value float64) error {
	return c.publish(ctx, TopicSetControlSetpoint, value)
}

func (c *MqttCoordinator) SetMaxRelativeModulation(ctx context.Context, value float64) error {
	return c.publish(ctx, TopicSetMaxRelativeModulation, value)
}

func (c *MqttCoordinator) publish(ctx context.Context, suffix string, value interface{}) error {
	topic := mqtt.Topic(c.prefix, suffix)
	if err := mqtt.PublishJSON(ctx, c.client, topic, false, commandPayload{Value: value}); err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}
	return nil
}

func (c *MqttCoordinator) Updates() <-chan time.Time {
	return c.updates
}

func (c *MqttCoordinator) Close() error {
	token := c.client.Unsubscribe(mqtt.Topic(c.prefix, TopicState))
	token.WaitTimeout(mqtt.PublishTimeout)
	return token.Error()
}
