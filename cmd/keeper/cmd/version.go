package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Keeper version")
		fmt.Printf("Version: %s\n", version)
	},
}

func printHeader(title string) {
	fmt.Println(color.New(color.FgCyan, color.Bold).Sprint(title))
}
