package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X keeper/cmd/keeper/cmd.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  _  __\n" +
		" | |/ /___  ___ _ __   ___ _ __\n" +
		" | ' // _ \\/ _ \\ '_ \\ / _ \\ '__|\n" +
		" | . \\  __/  __/ |_) |  __/ |\n" +
		" |_|\\_\\___|\\___| .__/ \\___|_|\n" +
		"               |_|\n"
)

var rootCmd = &cobra.Command{
	Use:           "keeper",
	Short:         "Keeper - Discord moderation bot",
	Long:          color.CyanString(logo) + "\nModeration commands with timed restrictions that lift themselves.",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}
