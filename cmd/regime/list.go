package regime

import (
	"fmt"
	"time"

	"github.com/markusressel/boiler2go/cmd/global"
	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/markusressel/boiler2go/internal/persistence"
	"github.com/markusressel/boiler2go/internal/setpoint"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/spf13/cobra"
)

var exportPath string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the learned minimum setpoint of every regime",
	RunE: func(cmd *cobra.Command, args []string) error {
		configuration.ReadConfigFile()
		config := configuration.CurrentConfig

		store := persistence.NewBoltStore(config.DbPath)
		if err := store.Init(); err != nil {
			return err
		}

		learner := setpoint.NewDynamicMinimumSetpoint(setpoint.Config{
			MinimumSetpoint: config.Boiler.MinimumSetpoint,
		}, store)
		if err := learner.Load(time.Now()); err != nil {
			return err
		}
		regimes := learner.Regimes()

		if exportPath != "" {
			if err := persistence.ExportJSON(exportPath, exportRegimes(regimes)); err != nil {
				return err
			}
			ui.Success("Exported %d regimes to %s", len(regimes), exportPath)
			return nil
		}

		if len(regimes) == 0 {
			ui.Info("No regimes learned yet.")
			return nil
		}

		var rows [][]string
		for _, regime := range regimes {
			lastSeen := "-"
			if regime.LastSeen != nil {
				lastSeen = regime.LastSeen.Local().Format(time.DateTime)
			}
			rows = append(rows, []string{
				regime.Key.String(),
				fmt.Sprintf("%.1f °C", regime.MinimumSetpoint),
				fmt.Sprintf("%d", regime.CompletedCycles),
				fmt.Sprintf("%d", regime.StableCycles),
				lastSeen,
			})
		}
		tableString, err := global.RenderTable(
			[]string{"Regime", "Minimum Setpoint", "Cycles", "Stable", "Last Seen"},
			rows,
		)
		if err != nil {
			return err
		}
		ui.Printfln(tableString)
		return nil
	},
}

func exportRegimes(regimes []setpoint.RegimeState) map[string]setpoint.RegimeState {
	result := make(map[string]setpoint.RegimeState, len(regimes))
	for _, regime := range regimes {
		result[regime.Key.String()] = regime
	}
	return result
}

func init() {
	listCmd.Flags().StringVarP(&exportPath, "export", "e", "", "Write the regimes as JSON to the given file instead")
	Command.AddCommand(listCmd)
}
