package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitpod-io/agentbuild/pkg/agentbuild"
)

// genMocksCmd represents the gen-mocks command
var genMocksCmd = &cobra.Command{
	Use:   "gen-mocks",
	Short: "Generates the compliance mocks",
	Long:  `Generates the compliance mocks. If the mock generator is not in $GOPATH/bin it is installed first.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runner, err := getRunner()
		if err != nil {
			log.Fatal(err)
		}

		if dryrun, _ := cmd.Flags().GetBool("dry-run"); dryrun {
			plan, err := runner.PlanMocks()
			if err != nil {
				log.Fatal(err)
			}
			cmds := []agentbuild.RenderedCommand{plan.Generate}
			if plan.Install != nil {
				cmds = append([]agentbuild.RenderedCommand{*plan.Install}, cmds...)
			}
			printDryRun("", cmds...)
			return
		}

		err = runner.GenerateMocks()
		if err != nil {
			log.WithError(err).Fatal("mock generation failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(genMocksCmd)
	genMocksCmd.Flags().Bool("dry-run", false, "Don't actually generate but print the commands which would run")
}
