package agentbuild

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultToolchainCommand selects a Go version using gimme. {version} is replaced with the requested version.
	DefaultToolchainCommand = "gimme {version}"

	toolchainTask = "toolchain"
)

// toolchainEnvVars are the variables we pick up from the version manager's output
var toolchainEnvVars = []string{"GOROOT", EnvvarPath}

// ToolchainResolver selects a Go toolchain version and reports the environment needed to use it
type ToolchainResolver struct {
	// Command is the version manager invocation, see DefaultToolchainCommand
	Command string
	Invoker *Invoker
	// Ambient is the environment the version manager runs in
	Ambient EnvironmentMap
}

// Resolve returns the environment for the requested toolchain version.
// If no version is requested the result is empty and the caller's environment is used as is.
func (r *ToolchainResolver) Resolve(version string) (EnvironmentMap, error) {
	res := make(EnvironmentMap)
	if version == "" {
		return res, nil
	}

	command := r.Command
	if command == "" {
		command = DefaultToolchainCommand
	}
	rc := RenderedCommand{
		Command: strings.ReplaceAll(command, "{version}", version),
		Env:     r.Ambient.Copy(),
	}
	rep := r.Invoker.Reporter
	if rep == nil {
		rep = NoopReporter{}
	}
	rep.TaskStarted(toolchainTask, rc)
	out, _, err := r.Invoker.Run(toolchainTask, rc)
	if err != nil {
		err = &ToolchainResolutionError{Version: version, Err: err}
	}
	rep.TaskFinished(toolchainTask, err)
	if err != nil {
		return nil, err
	}

	res = ParseToolchainOutput(out)
	log.WithField("version", version).WithField("env", res).Debug("resolved Go toolchain")
	return res, nil
}

// ParseToolchainOutput picks GOROOT and PATH assignments out of the version manager's output, e.g.
//
//	export GOROOT='/home/ci/.gimme/versions/go1.21.3.linux.amd64';
//	export PATH="/home/ci/.gimme/versions/go1.21.3.linux.amd64/bin:${PATH}";
//
// This is a loose substring match: a line mentioning a variable name anywhere sets that variable,
// even when the line does not hold a well-formed assignment.
func ParseToolchainOutput(out string) EnvironmentMap {
	res := make(EnvironmentMap)
	for _, line := range strings.Split(out, "\n") {
		for _, name := range toolchainEnvVars {
			idx := strings.Index(line, name)
			if idx < 0 {
				continue
			}
			res[name] = extractAssignment(line, idx+len(name))
		}
	}
	return res
}

// extractAssignment returns the value assigned after the variable name ending at pos.
// One separator character is skipped and a trailing statement delimiter dropped.
func extractAssignment(line string, pos int) string {
	line = strings.TrimRight(line, " \t\r")
	line = strings.TrimSuffix(line, ";")

	start := pos + 1
	if start > len(line) {
		return ""
	}
	return strings.Trim(line[start:], "'\" \t")
}
