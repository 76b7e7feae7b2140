package cmd

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gitpod-io/agentbuild/pkg/agentbuild"
)

const (
	// EnvvarRepoRoot names the environment variable we check for the repository root path
	EnvvarRepoRoot = "AGENTBUILD_REPO_ROOT"

	// EnvvarConfig names the environment variable we check for the config file
	EnvvarConfig = "AGENTBUILD_CONFIG"
)

var (
	repoRoot   string
	configFile string
	verbose    bool
	useTTY     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agentbuild",
	Short: "Builds and tests the security agent",
	Long: color.Render(`<light_yellow>agentbuild builds and tests the security agent</>. It resolves the Go toolchain, stamps version
metadata into the binary and runs code generation, mock generation and the functional tests.

<white>Configuration</>
agentbuild is configured through an optional agentbuild.yaml in the repository root, flags and environment
variables. The following environment variables have an effect on agentbuild:
  <light_blue>AGENTBUILD_REPO_ROOT</>  Contains the path of the repository. Can also be set using --repo.
                        Defaults to the closest parent directory containing agentbuild.yaml or go.mod.
     <light_blue>AGENTBUILD_CONFIG</>  Contains the path of the config file. Can also be set using --config.
`),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&repoRoot, "repo", "r", os.Getenv(EnvvarRepoRoot), "Repository root")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv(EnvvarConfig), "Config file (defaults to agentbuild.yaml in the repository root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enables verbose logging")
	rootCmd.PersistentFlags().BoolVar(&useTTY, "tty", term.IsTerminal(int(os.Stdout.Fd())), "run the compiler and tests on a pseudo terminal (defaults to true if stdout is a terminal)")
}

func getConfig() (agentbuild.Config, error) {
	root := repoRoot
	if root == "" {
		var err error
		root, err = agentbuild.DiscoverRepoRoot()
		if err != nil {
			return agentbuild.Config{}, err
		}
	}
	log.WithField("root", root).Debug("using repository")

	return agentbuild.LoadConfig(root, configFile)
}

func getRunner() (*agentbuild.Runner, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}

	return agentbuild.NewRunner(cfg, agentbuild.EnvironmentFromOS(),
		agentbuild.WithExecutor(agentbuild.ShellExecutor{TTY: useTTY}),
	), nil
}
