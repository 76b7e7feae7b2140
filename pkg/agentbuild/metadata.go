package agentbuild

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
	"golang.org/x/xerrors"
)

// MetadataProvider looks up version information about the checkout and the Go installation
type MetadataProvider interface {
	// VersionString returns the agent version for a major version, e.g. 7.50.0-rc.1+git.12.abc1234
	VersionString(majorVersion string) (string, error)
	// GoVersionString returns the version of the Go on the PATH, e.g. 1.21.3
	GoVersionString() (string, error)
	GitBranch() (string, error)
	GitCommit() (string, error)
	// GoPath returns the GOPATH of the Go installation found in env
	GoPath(env EnvironmentMap) (string, error)
}

// CommandError represents an error that occurred while looking up metadata
type CommandError struct {
	Op  string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// GitMetadata reads metadata from the git working copy at Dir and the go binary on the PATH
type GitMetadata struct {
	Dir string
	// Env is the environment git and go run in. A nil Env inherits the environment of this process.
	Env EnvironmentMap
}

// executeCommand is a helper function to execute lookup commands and handle their output
func executeCommand(dir string, env EnvironmentMap, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env.List()
	}
	out, err := cmd.Output()
	if err != nil {
		return "", &CommandError{
			Op:  strings.Join(append([]string{name}, args...), " "),
			Err: err,
		}
	}
	return strings.TrimSpace(string(out)), nil
}

// VersionString implements MetadataProvider
func (m GitMetadata) VersionString(majorVersion string) (string, error) {
	out, err := executeCommand(m.Dir, m.Env, "git", "describe", "--tags", "--candidates=50", "--match", majorVersion+".*", "--abbrev=7")
	if err != nil {
		return "", err
	}
	return parseGitDescribe(out)
}

// GoVersionString implements MetadataProvider
func (m GitMetadata) GoVersionString() (string, error) {
	out, err := executeCommand(m.Dir, m.Env, "go", "version")
	if err != nil {
		return "", err
	}
	return parseGoVersion(out)
}

// GitBranch implements MetadataProvider
func (m GitMetadata) GitBranch() (string, error) {
	return executeCommand(m.Dir, m.Env, "git", "rev-parse", "--abbrev-ref", "HEAD")
}

// GitCommit implements MetadataProvider
func (m GitMetadata) GitCommit() (string, error) {
	return executeCommand(m.Dir, m.Env, "git", "rev-parse", "--short", "HEAD")
}

// GoPath implements MetadataProvider
func (m GitMetadata) GoPath(env EnvironmentMap) (string, error) {
	return executeCommand(m.Dir, env, "go", "env", "GOPATH")
}

// metadataCache remembers successful lookups so that git and go are asked only once
type metadataCache struct {
	MetadataProvider

	mu     sync.Mutex
	values map[string]string
}

func newMetadataCache(m MetadataProvider) *metadataCache {
	if c, ok := m.(*metadataCache); ok {
		return c
	}
	return &metadataCache{MetadataProvider: m, values: make(map[string]string)}
}

func (c *metadataCache) lookup(key string, fetch func() (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.values[key]; ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return "", err
	}
	c.values[key] = v
	return v, nil
}

// VersionString implements MetadataProvider
func (c *metadataCache) VersionString(majorVersion string) (string, error) {
	return c.lookup("version/"+majorVersion, func() (string, error) { return c.MetadataProvider.VersionString(majorVersion) })
}

// GoVersionString implements MetadataProvider
func (c *metadataCache) GoVersionString() (string, error) {
	return c.lookup("goversion", c.MetadataProvider.GoVersionString)
}

// GitBranch implements MetadataProvider
func (c *metadataCache) GitBranch() (string, error) {
	return c.lookup("branch", c.MetadataProvider.GitBranch)
}

// GitCommit implements MetadataProvider
func (c *metadataCache) GitCommit() (string, error) {
	return c.lookup("commit", c.MetadataProvider.GitCommit)
}

var describeSuffix = regexp.MustCompile(`^(.+)-(\d+)-g([0-9a-f]+)$`)

// parseGitDescribe turns "git describe --tags" output into a version string.
// A checkout sitting on a tag yields the tag, otherwise the distance and commit are added as build metadata.
func parseGitDescribe(out string) (string, error) {
	out = strings.TrimSpace(out)

	tag, meta := out, ""
	if m := describeSuffix.FindStringSubmatch(out); m != nil {
		tag = m[1]
		meta = fmt.Sprintf("git.%s.%s", m[2], m[3])
	}

	if !semver.IsValid("v" + tag) {
		return "", xerrors.Errorf("cannot parse version from tag %q", tag)
	}
	if meta == "" {
		return tag, nil
	}
	if semver.Build("v"+tag) != "" {
		return tag + "." + meta, nil
	}
	return tag + "+" + meta, nil
}

// parseGoVersion extracts the version from "go version" output, e.g. "go version go1.21.3 linux/amd64"
func parseGoVersion(out string) (string, error) {
	segs := strings.Fields(out)
	if len(segs) < 3 || segs[0] != "go" || segs[1] != "version" || !strings.HasPrefix(segs[2], "go") {
		return "", xerrors.Errorf("cannot parse go version output: %s", out)
	}
	return strings.TrimPrefix(segs[2], "go"), nil
}
