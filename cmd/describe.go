package cmd

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitpod-io/agentbuild/pkg/prettyprint"
)

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe <build|gen-mocks|functional-tests>",
	Short: "Describes what a task would run without running it",
	Long: `Describes what a task would run without running it: the flags, build tags, link variables,
toolchain environment and the rendered commands. If a toolchain version is given the version manager still runs.`,
}

var describeBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Describes the build",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runner, err := getRunner()
		if err != nil {
			log.Fatal(err)
		}
		plan, err := runner.PlanBuild(getBuildRequest(cmd))
		if err != nil {
			log.Fatal(err)
		}

		err = describePlan(cmd, plan)
		if err != nil {
			log.Fatal(err)
		}
	},
}

var describeGenMocksCmd = &cobra.Command{
	Use:   "gen-mocks",
	Short: "Describes the mock generation",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runner, err := getRunner()
		if err != nil {
			log.Fatal(err)
		}
		plan, err := runner.PlanMocks()
		if err != nil {
			log.Fatal(err)
		}

		err = describePlan(cmd, plan)
		if err != nil {
			log.Fatal(err)
		}
	},
}

var describeFunctionalTestsCmd = &cobra.Command{
	Use:   "functional-tests",
	Short: "Describes the functional test run",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runner, err := getRunner()
		if err != nil {
			log.Fatal(err)
		}
		plan, err := runner.PlanFunctionalTests(getFunctionalTestRequest(cmd))
		if err != nil {
			log.Fatal(err)
		}

		err = describePlan(cmd, plan)
		if err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.AddCommand(describeBuildCmd)
	addBuildFlags(describeBuildCmd)
	addFormatFlags(describeBuildCmd)

	describeCmd.AddCommand(describeGenMocksCmd)
	addFormatFlags(describeGenMocksCmd)

	describeCmd.AddCommand(describeFunctionalTestsCmd)
	addFunctionalTestFlags(describeFunctionalTestsCmd)
	addFormatFlags(describeFunctionalTestsCmd)
}

func addFormatFlags(cmd *cobra.Command) {
	formats := make([]string, 0, len(prettyprint.Formats))
	for _, f := range prettyprint.Formats {
		formats = append(formats, string(f))
	}
	cmd.Flags().String("format", string(prettyprint.TreeFormat), "the description format ("+strings.Join(formats, ", ")+")")
	cmd.Flags().StringP("format-string", "t", "", "format string to use, e.g. the template")
}

func getWriterFromFlags(cmd *cobra.Command) *prettyprint.Writer {
	format, _ := cmd.Flags().GetString("format")
	formatString, _ := cmd.Flags().GetString("format-string")
	return &prettyprint.Writer{
		Out:          os.Stdout,
		Format:       prettyprint.Format(format),
		FormatString: formatString,
	}
}

func describePlan(cmd *cobra.Command, plan prettyprint.Treer) error {
	return getWriterFromFlags(cmd).Write(plan)
}
