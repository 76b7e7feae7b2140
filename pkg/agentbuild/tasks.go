package agentbuild

import (
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Task names as they appear in the console output
const (
	TaskBuild           = "build"
	TaskGenerate        = "generate"
	TaskGenMocks        = "gen-mocks"
	TaskFunctionalTests = "functional-tests"
)

// FileSystem answers questions about files on disk
type FileSystem interface {
	Exists(path string) bool
}

// OSFileSystem is the FileSystem of the host
type OSFileSystem struct{}

// Exists returns true if path exists
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Runner runs the build and test tasks. Each call computes its environment and flags from scratch,
// the git and go metadata is looked up once per runner.
type Runner struct {
	Config   Config
	Ambient  EnvironmentMap
	Invoker  *Invoker
	Metadata MetadataProvider
	Policy   BuildFlagPolicy
	Tags     TagRegistry
	FS       FileSystem
	Reporter Reporter
	Now      func() time.Time
}

// RunnerOption configures a runner
type RunnerOption func(*Runner)

// WithExecutor sets the executor all commands run through
func WithExecutor(e ProcessExecutor) RunnerOption {
	return func(r *Runner) {
		r.Invoker.Executor = e
	}
}

// WithReporter sets the reporter which is notified about task progress
func WithReporter(rep Reporter) RunnerOption {
	return func(r *Runner) {
		r.Reporter = rep
		r.Invoker.Reporter = rep
	}
}

// WithMetadata replaces the git/go based metadata lookups
func WithMetadata(m MetadataProvider) RunnerOption {
	return func(r *Runner) {
		r.Metadata = m
	}
}

// WithBuildFlagPolicy replaces the default build flag policy
func WithBuildFlagPolicy(p BuildFlagPolicy) RunnerOption {
	return func(r *Runner) {
		r.Policy = p
	}
}

// WithTagRegistry replaces the configured build profiles
func WithTagRegistry(t TagRegistry) RunnerOption {
	return func(r *Runner) {
		r.Tags = t
	}
}

// WithFileSystem replaces the host file system
func WithFileSystem(fs FileSystem) RunnerOption {
	return func(r *Runner) {
		r.FS = fs
	}
}

// WithClock sets the clock used for the build date
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.Now = now
	}
}

// NewRunner creates a runner for the repository described by cfg. ambient is the environment
// child processes inherit; the process environment itself is never read or modified.
func NewRunner(cfg Config, ambient EnvironmentMap, opts ...RunnerOption) *Runner {
	rep := NewConsoleReporter()
	ambient = ambient.Copy()
	r := &Runner{
		Config:   cfg,
		Ambient:  ambient,
		Invoker:  &Invoker{Executor: ShellExecutor{}, Reporter: rep},
		Metadata: GitMetadata{Dir: cfg.Root, Env: ambient},
		Tags:     cfg.Profiles,
		FS:       OSFileSystem{},
		Reporter: rep,
		Now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Metadata = newMetadataCache(r.Metadata)
	if r.Policy == nil {
		r.Policy = DefaultBuildFlagPolicy{
			RepoPath:       cfg.RepoPath,
			Metadata:       r.Metadata,
			ExtraLinkFlags: cfg.LinkFlags,
			CompileFlags:   cfg.CompileFlags,
		}
	}
	return r
}

func (r *Runner) builder() CommandBuilder {
	return CommandBuilder{Config: r.Config}
}

func (r *Runner) toolchain() *ToolchainResolver {
	return &ToolchainResolver{
		Command: r.Config.ToolchainCommand,
		Invoker: r.Invoker,
		Ambient: r.Ambient,
	}
}

// childEnv layers the toolchain environment over the base environment and merges the result with the ambient environment
func (r *Runner) childEnv(base, toolchain EnvironmentMap) EnvironmentMap {
	return Overlay(base, toolchain).Merge(r.Ambient)
}

func (r *Runner) runtimeMetadata(req BuildRequest) (meta RuntimeMetadata, err error) {
	meta.Version, err = r.Metadata.VersionString(req.MajorVersion)
	if err != nil {
		return
	}
	if req.ToolchainVersion == "" {
		meta.GoVersion, err = r.Metadata.GoVersionString()
		if err != nil {
			return
		}
	}
	meta.GitBranch, err = r.Metadata.GitBranch()
	if err != nil {
		return
	}
	meta.GitCommit, err = r.Metadata.GitCommit()
	if err != nil {
		return
	}
	meta.BuildDate = r.Now()
	return
}

// BuildPlan is everything a build will run, rendered but not executed
type BuildPlan struct {
	Request      BuildRequest    `json:"request" yaml:"request"`
	Flags        BuildFlags      `json:"flags" yaml:"flags"`
	LinkVars     LinkVariables   `json:"linkVars" yaml:"linkVars"`
	Tags         []string        `json:"tags" yaml:"tags"`
	ToolchainEnv EnvironmentMap  `json:"toolchainEnv,omitempty" yaml:"toolchainEnv,omitempty"`
	EnvHash      string          `json:"envHash" yaml:"envHash"`
	Generate     RenderedCommand `json:"generate" yaml:"generate"`
	Compile      RenderedCommand `json:"compile" yaml:"compile"`
}

// PlanBuild renders the build without running code generation or the compiler.
// If a toolchain version is requested the version manager does run.
func (r *Runner) PlanBuild(req BuildRequest) (*BuildPlan, error) {
	flags, err := r.Policy.BaseBuildFlags(req.Arch, req.MajorVersion, r.Config.RuntimeFlavor)
	if err != nil {
		return nil, xerrors.Errorf("cannot get build flags: %w", err)
	}

	meta, err := r.runtimeMetadata(req)
	if err != nil {
		return nil, xerrors.Errorf("cannot get version metadata: %w", err)
	}
	fa := &FlagAssembler{Tags: r.Tags, Now: r.Now}
	linkVars, err := fa.AssembleLinkVars(req, meta)
	if err != nil {
		return nil, err
	}

	goenv, err := r.toolchain().Resolve(req.ToolchainVersion)
	if err != nil {
		return nil, err
	}
	env := r.childEnv(flags.Env, goenv)

	tags, err := fa.AssembleTags(r.Config.BuildProfile)
	if err != nil {
		return nil, err
	}

	envHash, err := env.Hash()
	if err != nil {
		return nil, err
	}

	b := r.builder()
	return &BuildPlan{
		Request:      req,
		Flags:        flags,
		LinkVars:     linkVars,
		Tags:         tags.Sorted(),
		ToolchainEnv: goenv,
		EnvHash:      envHash,
		Generate:     b.GenerateCommand(env, req.ModuleMode),
		Compile:      b.CompileCommand(flags, linkVars, tags, env, req),
	}, nil
}

// Build regenerates derived sources and builds the agent binary
func (r *Runner) Build(req BuildRequest) (err error) {
	logger := log.WithField("invocation", uuid.New().String()).WithField("task", TaskBuild)
	logger.WithField("request", req).Debug("building")

	plan, err := r.PlanBuild(req)
	if err != nil {
		return err
	}

	r.Reporter.TaskStarted(TaskGenerate, plan.Generate)
	_, _, err = r.Invoker.Run(TaskGenerate, plan.Generate)
	if err != nil {
		err = &CodeGenerationError{Err: err}
	}
	r.Reporter.TaskFinished(TaskGenerate, err)
	if err != nil {
		return err
	}

	r.Reporter.TaskStarted(TaskBuild, plan.Compile)
	_, _, err = r.Invoker.Run(TaskBuild, plan.Compile)
	if err != nil {
		err = &CompileError{Err: err}
	}
	r.Reporter.TaskFinished(TaskBuild, err)
	if err != nil {
		return err
	}

	logger.WithField("binary", r.Config.BinPath()).Debug("build done")
	return nil
}

// MockPlan is what mock generation will run
type MockPlan struct {
	GoPath        string           `json:"gopath" yaml:"gopath"`
	ToolPath      string           `json:"toolPath" yaml:"toolPath"`
	ToolInstalled bool             `json:"toolInstalled" yaml:"toolInstalled"`
	Install       *RenderedCommand `json:"install,omitempty" yaml:"install,omitempty"`
	Generate      RenderedCommand  `json:"generate" yaml:"generate"`
}

// PlanMocks renders mock generation. Install is only set if the mock generator is missing.
func (r *Runner) PlanMocks() (*MockPlan, error) {
	gopath, err := r.Metadata.GoPath(r.Ambient)
	if err != nil {
		return nil, xerrors.Errorf("cannot determine GOPATH: %w", err)
	}

	b := r.builder()
	res := &MockPlan{
		GoPath:   gopath,
		ToolPath: b.MockToolPath(gopath),
		Generate: b.MockGenerateCommand(r.Ambient),
	}
	res.ToolInstalled = r.FS.Exists(res.ToolPath)
	if !res.ToolInstalled {
		install := b.MockInstallCommand(gopath, r.Ambient)
		res.Install = &install
	}
	return res, nil
}

// GenerateMocks installs the mock generator if needed and runs the generation script
func (r *Runner) GenerateMocks() (err error) {
	logger := log.WithField("invocation", uuid.New().String()).WithField("task", TaskGenMocks)

	plan, err := r.PlanMocks()
	if err != nil {
		return err
	}

	defer func() {
		r.Reporter.TaskFinished(TaskGenMocks, err)
	}()

	if plan.Install != nil {
		logger.WithField("tool", plan.ToolPath).Debug("mock generator not found - installing")
		r.Reporter.TaskStarted(TaskGenMocks, *plan.Install)
		_, _, err = r.Invoker.Run(TaskGenMocks, *plan.Install)
		if err != nil {
			return &MockToolInstallError{Tool: r.Config.Mocks.Tool, Err: err}
		}
	}

	r.Reporter.TaskStarted(TaskGenMocks, plan.Generate)
	_, _, err = r.Invoker.Run(TaskGenMocks, plan.Generate)
	return err
}

// FunctionalTestRequest describes a functional test run
type FunctionalTestRequest struct {
	Arch             string
	MajorVersion     string
	ToolchainVersion string
	FunctionalTestOptions
}

// FunctionalTestPlan is what a functional test run will execute
type FunctionalTestPlan struct {
	Request      FunctionalTestRequest `json:"request" yaml:"request"`
	Tags         []string              `json:"tags" yaml:"tags"`
	ToolchainEnv EnvironmentMap        `json:"toolchainEnv,omitempty" yaml:"toolchainEnv,omitempty"`
	EnvHash      string                `json:"envHash" yaml:"envHash"`
	Test         RenderedCommand       `json:"test" yaml:"test"`
}

// PlanFunctionalTests renders the functional test invocation without running it
func (r *Runner) PlanFunctionalTests(req FunctionalTestRequest) (*FunctionalTestPlan, error) {
	flags, err := r.Policy.BaseBuildFlags(req.Arch, req.MajorVersion, "")
	if err != nil {
		return nil, xerrors.Errorf("cannot get build flags: %w", err)
	}

	goenv, err := r.toolchain().Resolve(req.ToolchainVersion)
	if err != nil {
		return nil, err
	}
	env := r.childEnv(flags.Env, goenv)
	envHash, err := env.Hash()
	if err != nil {
		return nil, err
	}

	fa := &FlagAssembler{Tags: r.Tags, Now: r.Now}
	tags, err := fa.AssembleTags(r.Config.FunctionalTests.Profile)
	if err != nil {
		return nil, err
	}

	return &FunctionalTestPlan{
		Request:      req,
		Tags:         tags.Sorted(),
		ToolchainEnv: goenv,
		EnvHash:      envHash,
		Test:         r.builder().FunctionalTestCommand(req.FunctionalTestOptions, tags, env),
	}, nil
}

// RunFunctionalTests runs the functional tests with elevated privileges
func (r *Runner) RunFunctionalTests(req FunctionalTestRequest) (err error) {
	log.WithField("invocation", uuid.New().String()).WithField("task", TaskFunctionalTests).WithField("request", req).Debug("running functional tests")

	plan, err := r.PlanFunctionalTests(req)
	if err != nil {
		return err
	}

	r.Reporter.TaskStarted(TaskFunctionalTests, plan.Test)
	_, _, err = r.Invoker.Run(TaskFunctionalTests, plan.Test)
	if err != nil {
		err = &TestInvocationError{Err: err}
	}
	r.Reporter.TaskFinished(TaskFunctionalTests, err)
	return err
}
