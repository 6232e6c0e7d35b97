// Package cmd provides the command-line interface for Quartz. It runs the
// bundled example experiments and exposes the common simulation options.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "quartz",
	Short: "Quartz runs PDEVS simulations built with the quartz simulation " +
		"kernel.",
	Long: `Quartz runs PDEVS simulations built with the quartz simulation ` +
		`kernel. The bundled experiments exercise the fan-in and pipeline ` +
		`topologies across the available event set disciplines.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		logrus.WithError(err).Error("command failed")
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
