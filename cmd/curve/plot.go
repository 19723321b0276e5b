package curve

import (
	"errors"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/markusressel/boiler2go/cmd/global"
	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/markusressel/boiler2go/internal/heating"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/spf13/cobra"
)

const tableStep = 5

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Print the configured heating curve to console",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := configuration.ReadConfigFile()
		if err := configuration.Validate(configPath); err != nil {
			ui.Fatal(err.Error())
		}
		config := configuration.CurrentConfig

		target := config.Thermostat.TargetTemperature
		if cmd.Flags().Changed("target") {
			target = targetTemperature
		}
		k := config.HeatingCurve.Coefficient
		if cmd.Flags().Changed("coefficient") {
			k = coefficient
		}
		if outsideFrom >= outsideTo {
			return errors.New(fmt.Sprintf("invalid outside range: %d..%d", outsideFrom, outsideTo))
		}

		system, err := heating.ParseHeatingSystem(string(config.HeatingSystem))
		if err != nil {
			return err
		}
		curve := heating.NewHeatingCurve(system, k)
		points := curve.Plot(target, outsideFrom, outsideTo)

		tableString, err := global.RenderTable(
			[]string{"System", "Coefficient", "Target", "Base Offset"},
			[][]string{{
				string(system),
				fmt.Sprintf("%.2f", k),
				fmt.Sprintf("%.1f °C", target),
				fmt.Sprintf("%.1f °C", curve.BaseOffset()),
			}},
		)
		if err != nil {
			return err
		}
		ui.Printfln(tableString)

		var rows [][]string
		values := make([]float64, 0, len(points))
		for _, point := range points {
			values = append(values, point.Value)
			if int(point.Outside)%tableStep == 0 {
				rows = append(rows, []string{
					fmt.Sprintf("%.0f °C", point.Outside),
					fmt.Sprintf("%.1f °C", point.Value),
				})
			}
		}
		tableString, err = global.RenderTable([]string{"Outside", "Setpoint"}, rows)
		if err != nil {
			return err
		}
		ui.Printfln(tableString)

		caption := fmt.Sprintf("Setpoint for outside temperatures %d..%d °C", outsideFrom, outsideTo)
		graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
		ui.Printfln(graph)
		return nil
	},
}

func init() {
	Command.AddCommand(plotCmd)
}
