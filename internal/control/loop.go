package control

import (
	"context"
	"time"

	"github.com/markusressel/boiler2go/internal/ui"
)

// Loop drives a HeatingControl: demand is evaluated on every tick and
// boiler state updates are consumed as soon as the coordinator reports them.
type Loop struct {
	control  *HeatingControl
	demand   DemandSource
	tickRate time.Duration
}

func NewLoop(control *HeatingControl, demand DemandSource, tickRate time.Duration) *Loop {
	return &Loop{
		control:  control,
		demand:   demand,
		tickRate: tickRate,
	}
}

func (l *Loop) Run(ctx context.Context) error {
	ui.Info("Starting heating control loop with tick rate %s", l.tickRate)

	ticker := time.NewTicker(l.tickRate)
	defer ticker.Stop()

	updates := l.control.Coordinator().Updates()

	for {
		select {
		case <-ctx.Done():
			ui.Info("Stopping heating control loop...")
			return nil
		case now := <-ticker.C:
			if err := l.control.Update(ctx, l.demand.Demand(now)); err != nil {
				ui.Error("Error in heating control: %v", err)
			}
		case now := <-updates:
			l.control.OnCoordinatorUpdate(now)
		}
	}
}
