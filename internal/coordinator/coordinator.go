package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/configuration"
)

// Coordinator is the connection to a boiler. It provides the latest boiler
// state and forwards control commands.
type Coordinator interface {
	State() boiler.State
	Capabilities() boiler.Capabilities

	SupportsSetpointManagement() bool
	SupportsRelativeModulationManagement() bool

	SetHeaterState(ctx context.Context, state boiler.HeaterState) error
	SetControlSetpoint(ctx context.Context, value float64) error
	SetMaxRelativeModulation(ctx context.Context, value float64) error

	// Updates signals new boiler states. Signals are coalesced, a slow
	// consumer only sees the most recent one.
	Updates() <-chan time.Time

	Close() error
}

// New creates the coordinator selected by the boiler adapter configuration.
// client is required for the mqtt adapter only.
func New(ctx context.Context, config configuration.Configuration, client paho.Client) (Coordinator, error) {
	capabilities := boiler.Capabilities{
		MinimumSetpoint: config.Boiler.MinimumSetpoint,
		MaximumSetpoint: config.Boiler.MaximumSetpoint,
	}

	switch config.Boiler.Adapter {
	case configuration.AdapterSimulator:
		return NewSimulator(capabilities), nil
	case configuration.AdapterMqtt:
		if client == nil {
			return nil, errors.New("mqtt adapter requires a broker connection")
		}
		return NewMqttCoordinator(ctx, client, config.Mqtt.TopicPrefix, capabilities)
	default:
		return nil, fmt.Errorf("unknown boiler adapter: %s", config.Boiler.Adapter)
	}
}

func notify(updates chan time.Time, now time.Time) {
	select {
	case updates <- now:
	default:
	}
}
