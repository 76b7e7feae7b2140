package agentbuild

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// RenderedCommand is a shell command ready to be executed in its environment
type RenderedCommand struct {
	Command string         `json:"command" yaml:"command"`
	Dir     string         `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env     EnvironmentMap `json:"-" yaml:"-"`

	// Interactive commands may run on a terminal, see ShellExecutor.TTY
	Interactive bool `json:"-" yaml:"-"`
}

// FunctionalTestOptions are the user facing knobs of a functional test run
type FunctionalTestOptions struct {
	Verbose bool
	// Pattern limits the run to tests matching this regular expression
	Pattern string
	// Output makes go test compile the test binary to this path instead of running it
	Output string
}

// CommandBuilder renders the shell commands for the build and test tasks
type CommandBuilder struct {
	Config Config
}

// CompileCommand renders the go build invocation for the agent
func (b CommandBuilder) CompileCommand(flags BuildFlags, linkVars LinkVariables, tags BuildTagSet, env EnvironmentMap, req BuildRequest) RenderedCommand {
	var (
		raceOpt  string
		buildOpt string
	)
	if req.Race {
		raceOpt = "-race"
	}
	if !req.Incremental {
		buildOpt = "-a"
	}
	ldflags := AppendLinkFlags(flags.LinkFlags, linkVars, b.Config.SymbolPrefix)

	return RenderedCommand{
		Command: joinFragments(
			"go build",
			moduleModeOpt(req.ModuleMode),
			raceOpt,
			buildOpt,
			fmt.Sprintf(`-tags "%s"`, strings.Join(tags.Sorted(), " ")),
			"-o "+shellQuote(b.Config.BinPath()),
			fmt.Sprintf(`-gcflags="%s"`, flags.CompileFlags),
			fmt.Sprintf(`-ldflags="%s"`, ldflags),
			b.packagePath(b.Config.MainPackage),
		),
		Dir:         b.Config.Root,
		Env:         env,
		Interactive: true,
	}
}

// GenerateCommand renders the go generate invocation which runs before each build
func (b CommandBuilder) GenerateCommand(env EnvironmentMap, moduleMode string) RenderedCommand {
	pkgs := make([]string, 0, len(b.Config.GeneratePackages))
	for _, p := range b.Config.GeneratePackages {
		pkgs = append(pkgs, shellQuote(p))
	}

	return RenderedCommand{
		Command:     joinFragments("go generate", moduleModeOpt(moduleMode), strings.Join(pkgs, " ")),
		Dir:         b.Config.Root,
		Env:         env,
		Interactive: true,
	}
}

// MockToolPath is where we expect the mock generator once installed
func (b CommandBuilder) MockToolPath(gopath string) string {
	return filepath.Join(gopath, "bin", b.Config.Mocks.Tool)
}

// MockInstallCommand renders the installation of the mock generator. It runs in GOPATH with modules forced on.
func (b CommandBuilder) MockInstallCommand(gopath string, ambient EnvironmentMap) RenderedCommand {
	return RenderedCommand{
		Command:     b.Config.Mocks.InstallCommand,
		Dir:         gopath,
		Env:         MergeEnvironment(ambient, EnvironmentMap{"GO111MODULE": "on"}),
		Interactive: true,
	}
}

// MockGenerateCommand renders the mock generation script
func (b CommandBuilder) MockGenerateCommand(ambient EnvironmentMap) RenderedCommand {
	return RenderedCommand{
		Command:     b.Config.Mocks.Script,
		Dir:         filepath.Join(b.Config.Root, b.Config.Mocks.Dir),
		Env:         ambient.Copy(),
		Interactive: true,
	}
}

// FunctionalTestCommand renders the privileged go test invocation of the functional tests
func (b CommandBuilder) FunctionalTestCommand(opts FunctionalTestOptions, tags BuildTagSet, env EnvironmentMap) RenderedCommand {
	var outputOpt, verboseOpt, runOpt string
	if opts.Output != "" {
		outputOpt = "-c -o " + shellQuote(opts.Output)
	}
	if opts.Verbose {
		verboseOpt = "-v"
	}
	if opts.Pattern != "" {
		runOpt = "-run " + shellQuote(opts.Pattern)
	}

	cfg := b.Config.FunctionalTests
	return RenderedCommand{
		Command: joinFragments(
			cfg.PrivilegeWrapper,
			"go test",
			"-tags "+strings.Join(tags.Sorted(), ","),
			outputOpt,
			verboseOpt,
			runOpt,
			b.packagePath(cfg.Package),
		),
		Dir:         b.Config.Root,
		Env:         env,
		Interactive: true,
	}
}

func (b CommandBuilder) packagePath(pkg string) string {
	return strings.TrimSuffix(b.Config.RepoPath, "/") + "/" + strings.TrimPrefix(filepath.ToSlash(pkg), "/")
}

func moduleModeOpt(mode string) string {
	if mode == "" {
		return ""
	}
	return "-mod=" + mode
}

// joinFragments joins the non-empty command fragments with a single space
func joinFragments(frags ...string) string {
	res := make([]string, 0, len(frags))
	for _, f := range frags {
		if f == "" {
			continue
		}
		res = append(res, f)
	}
	return strings.Join(res, " ")
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./:=,+@%-]+$`)

// shellQuote quotes s for sh unless it's made of characters the shell leaves alone
func shellQuote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
