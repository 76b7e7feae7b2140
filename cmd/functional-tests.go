package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitpod-io/agentbuild/pkg/agentbuild"
)

// functionalTestsCmd represents the functional-tests command
var functionalTestsCmd = &cobra.Command{
	Use:   "functional-tests",
	Short: "Runs the security agent functional tests",
	Long: `Runs the security agent functional tests. The tests need elevated privileges and are run through
the configured privilege wrapper (sudo -E by default). With --output the test binary is only compiled.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runner, err := getRunner()
		if err != nil {
			log.Fatal(err)
		}
		req := getFunctionalTestRequest(cmd)

		if dryrun, _ := cmd.Flags().GetBool("dry-run"); dryrun {
			plan, err := runner.PlanFunctionalTests(req)
			if err != nil {
				log.Fatal(err)
			}
			printDryRun(plan.EnvHash, plan.Test)
			return
		}

		err = runner.RunFunctionalTests(req)
		if err != nil {
			log.WithError(err).Fatal("functional tests failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(functionalTestsCmd)
	addFunctionalTestFlags(functionalTestsCmd)
	functionalTestsCmd.Flags().Bool("dry-run", false, "Don't actually run the tests but print the command which would run")
}

func addFunctionalTestFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("race", false, "Accepted for compatibility, the functional tests never run with the race detector")
	_ = cmd.Flags().MarkDeprecated("race", "the functional tests never run with the race detector")
	cmd.Flags().Bool("test-verbose", false, "Pass -v to go test")
	cmd.Flags().String("go-version", "", "Go toolchain version to test with (defaults to the go in PATH)")
	cmd.Flags().String("major-version", "7", "Major version of the agent")
	cmd.Flags().String("arch", "x64", "Target architecture (x64, x86, arm64, armhf)")
	cmd.Flags().String("pattern", "", "Only run tests matching this regular expression")
	cmd.Flags().StringP("output", "o", "", "Compile the test binary to this path instead of running the tests")
}

func getFunctionalTestRequest(cmd *cobra.Command) agentbuild.FunctionalTestRequest {
	var req agentbuild.FunctionalTestRequest
	req.Verbose, _ = cmd.Flags().GetBool("test-verbose")
	req.ToolchainVersion, _ = cmd.Flags().GetString("go-version")
	req.MajorVersion, _ = cmd.Flags().GetString("major-version")
	req.Arch, _ = cmd.Flags().GetString("arch")
	req.Pattern, _ = cmd.Flags().GetString("pattern")
	req.Output, _ = cmd.Flags().GetString("output")
	return req
}
