package curve

import (
	"github.com/spf13/cobra"
)

var (
	targetTemperature float64
	coefficient       float64
	outsideFrom       int
	outsideTo         int
)

var Command = &cobra.Command{
	Use:              "curve",
	Short:            "Heating curve related commands",
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().Float64VarP(
		&targetTemperature,
		"target", "t",
		0,
		"Target room temperature, defaults to the thermostat target of the config",
	)
	Command.PersistentFlags().Float64VarP(
		&coefficient,
		"coefficient", "k",
		0,
		"Heating curve coefficient, defaults to the coefficient of the config",
	)
	Command.PersistentFlags().IntVar(&outsideFrom, "from", -20, "Lowest outside temperature")
	Command.PersistentFlags().IntVar(&outsideTo, "to", 20, "Highest outside temperature")
}
