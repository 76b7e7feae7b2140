package testutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gitpod-io/agentbuild/pkg/agentbuild"
)

// Setup describes a throwaway repository
type Setup struct {
	// Config is written to agentbuild.yaml if set
	Config *agentbuild.Config `yaml:"config"`
	// ModulePath produces a go.mod declaring this module if set
	ModulePath string `yaml:"modulePath"`
	// Files maps repository relative paths to their content
	Files map[string]string `yaml:"files"`
}

// LoadFromYAML loads a repository setup from a YAML file
func LoadFromYAML(in io.Reader) (*Setup, error) {
	fc, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}

	var res Setup
	err = yaml.Unmarshal(fc, &res)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// Materialize produces a repository according to the setup in a new temporary directory
func (s Setup) Materialize() (root string, err error) {
	root, err = os.MkdirTemp("", "agentbuild-test-*")
	if err != nil {
		return
	}

	if s.Config != nil {
		var fc []byte
		fc, err = yaml.Marshal(s.Config)
		if err != nil {
			return
		}
		err = os.WriteFile(filepath.Join(root, agentbuild.ConfigFilename), fc, 0644)
		if err != nil {
			return
		}
	}

	if s.ModulePath != "" {
		err = os.WriteFile(filepath.Join(root, "go.mod"), []byte("module "+s.ModulePath+"\n\ngo 1.24\n"), 0644)
		if err != nil {
			return
		}
	}

	for fn, content := range s.Files {
		dst := filepath.Join(root, fn)
		err = os.MkdirAll(filepath.Dir(dst), 0755)
		if err != nil {
			return
		}
		err = os.WriteFile(dst, []byte(content), 0644)
		if err != nil {
			return
		}
	}

	return
}

// Response is the scripted outcome of a command
type Response struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// RecordingExecutor records all commands instead of running them.
// A response applies to every command containing its key. Keys must not overlap.
type RecordingExecutor struct {
	Responses map[string]Response

	mu       sync.Mutex
	Commands []agentbuild.RenderedCommand
}

// Execute implements agentbuild.ProcessExecutor
func (e *RecordingExecutor) Execute(cmd agentbuild.RenderedCommand, stdout, stderr io.Writer) (int, error) {
	e.mu.Lock()
	e.Commands = append(e.Commands, cmd)
	e.mu.Unlock()

	for sub, resp := range e.Responses {
		if !strings.Contains(cmd.Command, sub) {
			continue
		}
		_, _ = io.WriteString(stdout, resp.Stdout)
		_, _ = io.WriteString(stderr, resp.Stderr)
		return resp.ExitStatus, nil
	}
	return 0, nil
}

// CommandLines returns the recorded command strings in order
func (e *RecordingExecutor) CommandLines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := make([]string, 0, len(e.Commands))
	for _, c := range e.Commands {
		res = append(res, c.Command)
	}
	return res
}

// Metadata is a fixed agentbuild.MetadataProvider
type Metadata struct {
	Version   string
	GoVersion string
	Branch    string
	Commit    string
	GOPATH    string
	Err       error
}

// VersionString implements agentbuild.MetadataProvider
func (m Metadata) VersionString(majorVersion string) (string, error) { return m.Version, m.Err }

// GoVersionString implements agentbuild.MetadataProvider
func (m Metadata) GoVersionString() (string, error) { return m.GoVersion, m.Err }

// GitBranch implements agentbuild.MetadataProvider
func (m Metadata) GitBranch() (string, error) { return m.Branch, m.Err }

// GitCommit implements agentbuild.MetadataProvider
func (m Metadata) GitCommit() (string, error) { return m.Commit, m.Err }

// GoPath implements agentbuild.MetadataProvider
func (m Metadata) GoPath(env agentbuild.EnvironmentMap) (string, error) { return m.GOPATH, m.Err }

// FileSystem is an agentbuild.FileSystem where only the listed paths exist
type FileSystem map[string]struct{}

// Exists implements agentbuild.FileSystem
func (fs FileSystem) Exists(path string) bool {
	_, ok := fs[path]
	return ok
}
