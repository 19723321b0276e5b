package regime

import (
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "regime",
	Short:            "Learned minimum setpoint regimes",
	TraverseChildren: true,
}
