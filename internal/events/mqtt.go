package events

import (
	"context"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/mqtt"
)

// MqttPublisher publishes cycle events to an MQTT broker.
// The client is owned by the caller and stays connected on Close.
type MqttPublisher struct {
	client paho.Client
	prefix string
}

func NewMqttPublisher(client paho.Client, topicPrefix string) *MqttPublisher {
	return &MqttPublisher{
		client: client,
		prefix: topicPrefix,
	}
}

func (p *MqttPublisher) PublishCycleStarted(sample cycles.Sample) error {
	payload, err := FormatCycleStarted(sample)
	if err != nil {
		return fmt.Errorf("format cycle started payload: %w", err)
	}
	return mqtt.Publish(context.Background(), p.client, mqtt.Topic(p.prefix, TopicCycleStarted), false, payload)
}

func (p *MqttPublisher) PublishCycleEnded(cycle cycles.Cycle) error {
	payload, err := FormatCycleEnded(cycle)
	if err != nil {
		return fmt.Errorf("format cycle ended payload: %w", err)
	}
	return mqtt.Publish(context.Background(), p.client, mqtt.Topic(p.prefix, TopicCycleEnded), false, payload)
}

func (p *MqttPublisher) Close() error {
	return nil
}
