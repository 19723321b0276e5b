package pwm

import (
	"fmt"
	"strconv"

	"github.com/markusressel/boiler2go/cmd/global"
	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/markusressel/boiler2go/internal/heating"
	"github.com/markusressel/boiler2go/internal/pwm"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/spf13/cobra"
)

var (
	onTemperature float64
	flameActive   bool
)

var dutyCmd = &cobra.Command{
	Use:   "duty <requested setpoint>",
	Short: "Print the duty cycle for a requested setpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requested, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid setpoint %s: %w", args[0], err)
		}

		configPath := configuration.ReadConfigFile()
		if err := configuration.Validate(configPath); err != nil {
			ui.Fatal(err.Error())
		}
		config := configuration.CurrentConfig

		system, err := heating.ParseHeatingSystem(string(config.HeatingSystem))
		if err != nil {
			return err
		}
		effective := config.Boiler.MinimumSetpoint
		if cmd.Flags().Changed("on-temperature") {
			effective = onTemperature
		}

		thresholds := pwm.NewThresholds(config.Pwm.CyclesPerHour)
		percentage := pwm.DutyCyclePercentage(requested, system.BaseOffset(), effective)
		dutyCycle := thresholds.DutyCycleFor(percentage, flameActive)

		tableString, err := global.RenderTable(
			[]string{"Requested", "On Temperature", "Duty", "On", "Off"},
			[][]string{{
				fmt.Sprintf("%.1f °C", requested),
				fmt.Sprintf("%.1f °C", effective),
				fmt.Sprintf("%.2f %%", percentage*100),
				fmt.Sprintf("%d s", dutyCycle.On),
				fmt.Sprintf("%d s", dutyCycle.Off),
			}},
		)
		if err != nil {
			return err
		}
		ui.Printfln(tableString)
		return nil
	},
}

func init() {
	dutyCmd.Flags().Float64Var(&onTemperature, "on-temperature", 0, "Flow temperature reached while the flame is on, defaults to the minimum setpoint")
	dutyCmd.Flags().BoolVar(&flameActive, "flame", false, "Assume the flame is currently burning")
	Command.AddCommand(dutyCmd)
}
