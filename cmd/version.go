package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitpod-io/agentbuild/pkg/agentbuild"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of this agentbuild build",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(agentbuild.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
