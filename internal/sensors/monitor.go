package sensors

import (
	"context"
	"sync"
	"time"

	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	MonitorMap = cmap.New[*SensorMonitor]()
)

// SensorMonitor polls a sensor and keeps a moving average of its readings
type SensorMonitor struct {
	mu sync.RWMutex

	sensor      Sensor
	pollingRate time.Duration
	window      *util.RollingWindow

	last        *float64
	lastUpdated time.Time
}

func NewSensorMonitor(sensor Sensor, pollingRate time.Duration, windowSize int) *SensorMonitor {
	if windowSize < 1 {
		windowSize = 1
	}
	return &SensorMonitor{
		sensor:      sensor,
		pollingRate: pollingRate,
		window:      util.NewRollingWindow(windowSize),
	}
}

func (s *SensorMonitor) Run(ctx context.Context) error {
	s.poll(time.Now())

	ticker := time.NewTicker(s.pollingRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.poll(now)
		}
	}
}

func (s *SensorMonitor) poll(now time.Time) {
	if err := s.update(now); err != nil {
		ui.Warning("Error reading sensor %s: %v", s.sensor.GetId(), err)
	}
}

// update reads the current value of the sensor and appends it to the moving window
func (s *SensorMonitor) update(now time.Time) error {
	value, err := s.sensor.GetValue()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.window.Append(value)
	s.last = util.Ptr(value)
	s.lastUpdated = now
	return nil
}

func (s *SensorMonitor) Sensor() Sensor {
	return s.sensor
}

// MovingAvg is nil until the sensor was read successfully
func (s *SensorMonitor) MovingAvg() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	avg, ok := s.window.Avg()
	if !ok {
		return nil
	}
	return util.Ptr(util.Round(avg, 2))
}

func (s *SensorMonitor) Last() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	return util.Ptr(*s.last)
}

func (s *SensorMonitor) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}
