package pwm

import (
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "pwm",
	Short:            "Pulse width modulation related commands",
	TraverseChildren: true,
}
