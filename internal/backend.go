package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/markusressel/boiler2go/internal/api"
	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/markusressel/boiler2go/internal/control"
	"github.com/markusressel/boiler2go/internal/coordinator"
	"github.com/markusressel/boiler2go/internal/events"
	"github.com/markusressel/boiler2go/internal/mqtt"
	"github.com/markusressel/boiler2go/internal/persistence"
	"github.com/markusressel/boiler2go/internal/sensors"
	"github.com/markusressel/boiler2go/internal/statistics"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

func RunDaemon() {
	config := configuration.CurrentConfig

	store := persistence.NewBoltStore(config.DbPath)
	if err := store.Init(); err != nil {
		ui.Fatal("Unable to open database at %s: %v", config.DbPath, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var client paho.Client
	if config.Boiler.Adapter == configuration.AdapterMqtt || config.Mqtt.Events {
		var err error
		client, err = mqtt.Connect(config.Mqtt.Broker, config.Mqtt.ClientId)
		if err != nil {
			ui.Fatal("Unable to connect to mqtt broker %s: %v", config.Mqtt.Broker, err)
		}
		defer mqtt.Close(client)
	}

	boilerCoordinator, err := coordinator.New(ctx, config, client)
	if err != nil {
		ui.Fatal("Unable to create boiler coordinator: %v", err)
	}
	defer func() {
		if err := boilerCoordinator.Close(); err != nil {
			ui.Warning("Error closing boiler coordinator: %v", err)
		}
	}()

	var publisher events.Publisher = events.NoopPublisher{}
	if config.Mqtt.Events {
		publisher = events.NewMqttPublisher(client, config.Mqtt.TopicPrefix)
	}

	monitors, err := InitializeSensors(config)
	if err != nil {
		ui.Fatal("%v", err)
	}

	heatingControl, err := control.NewHeatingControl(config, boilerCoordinator, store, publisher)
	if err != nil {
		ui.Fatal("Unable to create heating control: %v", err)
	}
	flusher := persistence.NewFlusher(config.Persistence.FlushDelay, heatingControl.Save)
	heatingControl.SetFlusher(flusher)
	if err := heatingControl.Load(time.Now()); err != nil {
		ui.Warning("Unable to restore persisted state: %v", err)
	}

	statistics.Register(statistics.NewSensorCollector(monitors))
	statistics.Register(statistics.NewControlCollector(heatingControl))

	demand, err := NewDemandSource(config)
	if err != nil {
		ui.Fatal("%v", err)
	}

	var g run.Group
	{
		if config.Statistics.Enabled {
			// === Prometheus Exporter
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			server := &http.Server{Addr: fmt.Sprintf(":%d", config.Statistics.Port), Handler: mux}

			g.Add(func() error {
				ui.Info("Starting statistics server on %s", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("cannot start prometheus metrics endpoint: %w", err)
				}
				return nil
			}, func(err error) {
				ui.Info("Stopping statistics server...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer timeoutCancel()
				if err := server.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping statistics server: %v", err)
				}
			})
		}
	}
	{
		if config.Api.Enabled {
			// === REST api
			rest := api.CreateRestService(heatingControl)
			addr := fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port)

			g.Add(func() error {
				ui.Info("Starting api server on %s", addr)
				if err := rest.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("cannot start api server: %w", err)
				}
				return nil
			}, func(err error) {
				ui.Info("Stopping api server...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer timeoutCancel()
				if err := rest.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping api server: %v", err)
				}
			})
		}
	}
	{
		// === sensor monitoring
		for _, monitor := range monitors {
			mon := monitor

			g.Add(func() error {
				err := mon.Run(ctx)
				ui.Info("Sensor Monitor for sensor %s stopped.", mon.Sensor().GetId())
				return err
			}, func(err error) {
				if err != nil {
					ui.Warning("Error monitoring sensor: %v", err)
				}
			})
		}
	}
	{
		// === boiler simulation
		if simulator, ok := boilerCoordinator.(*coordinator.Simulator); ok {
			g.Add(func() error {
				return RunSimulator(ctx, simulator, config.SensorPollingRate)
			}, func(err error) {
				if err != nil {
					ui.Warning("Error in boiler simulator: %v", err)
				}
			})
		}
	}
	{
		// === persistence
		g.Add(func() error {
			return flusher.Run(ctx)
		}, func(err error) {
			if err != nil {
				ui.Warning("Error persisting state: %v", err)
			}
		})
	}
	{
		// === heating control
		loop := control.NewLoop(heatingControl, demand, config.ControlLoopTickRate)

		g.Add(func() error {
			err := loop.Run(ctx)
			ui.Info("Heating control stopped.")
			return err
		}, func(err error) {
			if err != nil {
				ui.Warning("Something went wrong: %v", err)
			}
		})
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received SIGTERM signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	err = g.Run()
	if saveErr := heatingControl.Save(); saveErr != nil {
		ui.Error("Unable to persist state on shutdown: %v", saveErr)
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ui.Info("Done.")
}

// InitializeSensors creates a monitor for every configured sensor and
// registers both in the global sensor maps
func InitializeSensors(config configuration.Configuration) ([]*sensors.SensorMonitor, error) {
	var monitors []*sensors.SensorMonitor
	for _, sensorConfig := range config.Sensors {
		sensor, err := sensors.NewSensor(sensorConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to process sensor configuration: %s", sensorConfig.ID)
		}

		monitor := sensors.NewSensorMonitor(sensor, config.SensorPollingRate, config.SensorRollingWindowSize)
		sensors.SensorMap.Set(sensorConfig.ID, sensor)
		sensors.MonitorMap.Set(sensorConfig.ID, monitor)
		monitors = append(monitors, monitor)
	}
	return monitors, nil
}

// NewDemandSource heats towards the configured target using the thermostat sensors
func NewDemandSource(config configuration.Configuration) (control.DemandSource, error) {
	inside, ok := sensors.MonitorMap.Get(config.Thermostat.InsideSensor)
	if !ok {
		return nil, fmt.Errorf("no sensor definition with id '%s' found", config.Thermostat.InsideSensor)
	}
	outside, ok := sensors.MonitorMap.Get(config.Thermostat.OutsideSensor)
	if !ok {
		return nil, fmt.Errorf("no sensor definition with id '%s' found", config.Thermostat.OutsideSensor)
	}
	return control.StaticDemand{
		TargetTemperature: config.Thermostat.TargetTemperature,
		Inside:            inside.MovingAvg,
		Outside:           outside.MovingAvg,
	}, nil
}

// RunSimulator advances the simulated boiler in real time
func RunSimulator(ctx context.Context, simulator *coordinator.Simulator, rate time.Duration) error {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	simulator.Step(time.Now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			simulator.Step(now)
		}
	}
}
