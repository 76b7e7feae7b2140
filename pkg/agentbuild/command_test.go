package agentbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Root = "/src/datadog-agent"
	return cfg
}

var testLinkVars = LinkVariables{
	{Key: LinkVarVersion, Value: "7.50.0"},
	{Key: LinkVarGoVersion, Value: "1.21.3"},
	{Key: LinkVarGitBranch, Value: "main"},
	{Key: LinkVarGitCommit, Value: "abc1234"},
	{Key: LinkVarBuildDate, Value: "2024-03-14T15:09:26"},
}

func hasFragment(cmd, frag string) bool {
	for _, f := range strings.Fields(cmd) {
		if f == frag {
			return true
		}
	}
	return false
}

func TestCompileCommand(t *testing.T) {
	b := CommandBuilder{Config: testConfig()}
	flags := BuildFlags{LinkFlags: "-X github.com/DataDog/datadog-agent/pkg/version.Commit=abc1234 ", CompileFlags: "all=-N"}
	env := EnvironmentMap{"GOARCH": "amd64"}

	act := b.CompileCommand(flags, testLinkVars, NewBuildTagSet("zlib", "docker"), env, BuildRequest{
		Arch:         "x64",
		MajorVersion: "7",
		Incremental:  true,
		ModuleMode:   "vendor",
	})

	require.Equal(t, `go build -mod=vendor -tags "docker zlib" -o bin/security-agent/security-agent -gcflags="all=-N" `+
		`-ldflags="-X github.com/DataDog/datadog-agent/pkg/version.Commit=abc1234 `+
		`-X 'main.Version=7.50.0' -X 'main.GoVersion=1.21.3' -X 'main.GitBranch=main' -X 'main.GitCommit=abc1234' -X 'main.BuildDate=2024-03-14T15:09:26'" `+
		`github.com/DataDog/datadog-agent/cmd/security-agent`, act.Command)
	require.Equal(t, "/src/datadog-agent", act.Dir)
	require.Equal(t, env, act.Env)
}

func TestCompileCommandOptionalFlags(t *testing.T) {
	b := CommandBuilder{Config: testConfig()}

	for _, race := range []bool{true, false} {
		for _, incremental := range []bool{true, false} {
			act := b.CompileCommand(BuildFlags{}, testLinkVars, NewBuildTagSet(), nil, BuildRequest{
				Race:        race,
				Incremental: incremental,
				ModuleMode:  "mod",
			})

			assert.Equal(t, race, hasFragment(act.Command, "-race"), "race=%v: %s", race, act.Command)
			assert.Equal(t, !incremental, hasFragment(act.Command, "-a"), "incremental=%v: %s", incremental, act.Command)
			assert.True(t, hasFragment(act.Command, "-mod=mod"))
			assert.NotContains(t, act.Command, "  ")
		}
	}
}

func TestCompileCommandWithoutModuleMode(t *testing.T) {
	b := CommandBuilder{Config: testConfig()}
	act := b.CompileCommand(BuildFlags{}, nil, NewBuildTagSet(), nil, BuildRequest{Incremental: true})
	require.True(t, strings.HasPrefix(act.Command, `go build -tags ""`), act.Command)
}

func TestGenerateCommand(t *testing.T) {
	b := CommandBuilder{Config: testConfig()}
	act := b.GenerateCommand(EnvironmentMap{"PATH": "/go/bin"}, "vendor")

	require.Equal(t, "go generate -mod=vendor ./pkg/status/...", act.Command)
	require.Equal(t, "/src/datadog-agent", act.Dir)
}

var functionalTestTags = NewBuildTagSet("linux_bpf", "functionaltests")

func TestFunctionalTestCommand(t *testing.T) {
	tests := []struct {
		Name        string
		Opts        FunctionalTestOptions
		Expectation string
	}{
		{
			Name:        "defaults",
			Expectation: "sudo -E go test -tags functionaltests,linux_bpf github.com/DataDog/datadog-agent/pkg/security/tests",
		},
		{
			Name:        "pattern only",
			Opts:        FunctionalTestOptions{Pattern: "TestFoo"},
			Expectation: "sudo -E go test -tags functionaltests,linux_bpf -run TestFoo github.com/DataDog/datadog-agent/pkg/security/tests",
		},
		{
			Name:        "compile only",
			Opts:        FunctionalTestOptions{Output: "/tmp/testsuite"},
			Expectation: "sudo -E go test -tags functionaltests,linux_bpf -c -o /tmp/testsuite github.com/DataDog/datadog-agent/pkg/security/tests",
		},
		{
			Name:        "everything",
			Opts:        FunctionalTestOptions{Verbose: true, Pattern: "TestOpen|TestChmod", Output: "testsuite"},
			Expectation: "sudo -E go test -tags functionaltests,linux_bpf -c -o testsuite -v -run 'TestOpen|TestChmod' github.com/DataDog/datadog-agent/pkg/security/tests",
		},
	}

	b := CommandBuilder{Config: testConfig()}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			act := b.FunctionalTestCommand(test.Opts, functionalTestTags, nil)
			require.Equal(t, test.Expectation, act.Command)
		})
	}
}

func TestFunctionalTestCommandOmitsOutputWhenEmpty(t *testing.T) {
	b := CommandBuilder{Config: testConfig()}
	act := b.FunctionalTestCommand(FunctionalTestOptions{Pattern: "TestFoo", Output: ""}, functionalTestTags, nil)

	require.Contains(t, act.Command, "-run TestFoo")
	require.False(t, hasFragment(act.Command, "-c"))
	require.False(t, hasFragment(act.Command, "-o"))
}

func TestMockCommands(t *testing.T) {
	b := CommandBuilder{Config: testConfig()}
	ambient := EnvironmentMap{"GO111MODULE": "off", "HOME": "/root"}

	require.Equal(t, filepath.Join("/go", "bin", "mockery"), b.MockToolPath("/go"))

	install := b.MockInstallCommand("/go", ambient)
	require.Equal(t, "go get -u github.com/vektra/mockery/cmd/mockery", install.Command)
	require.Equal(t, "/go", install.Dir)
	require.Equal(t, EnvironmentMap{"GO111MODULE": "on", "HOME": "/root"}, install.Env)
	require.Equal(t, "off", ambient["GO111MODULE"])

	gen := b.MockGenerateCommand(ambient)
	require.Equal(t, "./gen_mocks.sh", gen.Command)
	require.Equal(t, filepath.Join("/src/datadog-agent", "pkg", "compliance"), gen.Dir)
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"TestFoo":          "TestFoo",
		"bin/agent":        "bin/agent",
		"Test Foo":         "'Test Foo'",
		"TestA|TestB":      "'TestA|TestB'",
		"it's":             `'it'\''s'`,
		"TestFoo/sub_test": "TestFoo/sub_test",
	}
	for in, expectation := range tests {
		assert.Equal(t, expectation, shellQuote(in), "shellQuote(%q)", in)
	}
}

func TestCompileCommandKeepsLinkVariablesLiteral(t *testing.T) {
	meta := testMetadata()
	meta.GitBranch = "feature/foo bar_1.2+x@y!*"

	fa := &FlagAssembler{}
	lv, err := fa.AssembleLinkVars(BuildRequest{}, meta)
	require.NoError(t, err)

	b := CommandBuilder{Config: testConfig()}
	rc := b.CompileCommand(BuildFlags{}, lv, NewBuildTagSet(), nil, BuildRequest{Incremental: true})
	rc.Command = `printf '%s\n'` + strings.TrimPrefix(rc.Command, "go build")
	rc.Dir = t.TempDir()
	rc.Env = EnvironmentMap{"PATH": os.Getenv("PATH")}

	iv := &Invoker{Executor: ShellExecutor{}}
	out, _, err := iv.Run("test", rc)
	require.NoError(t, err)
	require.Contains(t, out, "-X 'main.GitBranch=feature/foo bar_1.2+x@y!*'")
}
