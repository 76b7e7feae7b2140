package cmd

import (
	"fmt"

	"github.com/gookit/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitpod-io/agentbuild/pkg/agentbuild"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the security agent",
	Long: `Builds the security agent binary.

Code generation runs first, then the compiler. If --go-version is given the toolchain is resolved
through the configured version manager (gimme by default) and its GOROOT and PATH are used.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runner, err := getRunner()
		if err != nil {
			log.Fatal(err)
		}
		req := getBuildRequest(cmd)

		if dryrun, _ := cmd.Flags().GetBool("dry-run"); dryrun {
			plan, err := runner.PlanBuild(req)
			if err != nil {
				log.Fatal(err)
			}
			printDryRun(plan.EnvHash, plan.Generate, plan.Compile)
			return
		}

		log.Debugf("this is agentbuild version %s", agentbuild.Version)
		err = runner.Build(req)
		if err != nil {
			log.WithError(err).Fatal("build failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
	buildCmd.Flags().Bool("dry-run", false, "Don't actually build but print the commands which would run")
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("race", false, "Build with the race detector")
	cmd.Flags().String("go-version", "", "Go toolchain version to build with (defaults to the go in PATH)")
	cmd.Flags().Bool("incremental-build", false, "Reuse previously built packages instead of forcing a rebuild")
	cmd.Flags().String("major-version", "7", "Major version of the agent, selects the tags considered for the version string")
	cmd.Flags().String("arch", "x64", "Target architecture (x64, x86, arm64, armhf)")
	cmd.Flags().String("go-mod", "vendor", "Module download mode passed to go as -mod (empty to omit)")
}

func getBuildRequest(cmd *cobra.Command) agentbuild.BuildRequest {
	var req agentbuild.BuildRequest
	req.Race, _ = cmd.Flags().GetBool("race")
	req.ToolchainVersion, _ = cmd.Flags().GetString("go-version")
	req.Incremental, _ = cmd.Flags().GetBool("incremental-build")
	req.MajorVersion, _ = cmd.Flags().GetString("major-version")
	req.Arch, _ = cmd.Flags().GetString("arch")
	req.ModuleMode, _ = cmd.Flags().GetString("go-mod")
	return req
}

func printDryRun(envHash string, cmds ...agentbuild.RenderedCommand) {
	for _, c := range cmds {
		if c.Dir != "" {
			fmt.Println(color.Gray.Render("# in " + c.Dir))
		}
		fmt.Println(color.Cyan.Render(c.Command))
	}
	if envHash != "" {
		fmt.Printf("%s %s\n", color.Gray.Render("# environment"), envHash)
	}
}
