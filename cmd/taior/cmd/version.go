package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taior/taior/meta"
)

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print git revision",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(meta.GitSHAFull)
	},
}

func init() {
	if meta.Populated() {
		rootCmd.AddCommand(versionCmd)
	}
}
