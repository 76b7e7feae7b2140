package agentbuild

import (
	"errors"
	"fmt"
)

// ExecutionError is returned when an external process exits with a non-zero status
type ExecutionError struct {
	Command    string
	ExitStatus int
	Output     string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitStatus)
}

// ToolchainResolutionError means the toolchain version manager could not select the requested version
type ToolchainResolutionError struct {
	Version string
	Err     error
}

func (e *ToolchainResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve Go toolchain %s: %v", e.Version, e.Err)
}

func (e *ToolchainResolutionError) Unwrap() error { return e.Err }

// CodeGenerationError means the pre-build code generation step failed
type CodeGenerationError struct {
	Err error
}

func (e *CodeGenerationError) Error() string {
	return fmt.Sprintf("code generation failed: %v", e.Err)
}

func (e *CodeGenerationError) Unwrap() error { return e.Err }

// CompileError means the compiler exited non-zero
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("build failed: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// TestInvocationError means the test runner exited non-zero
type TestInvocationError struct {
	Err error
}

func (e *TestInvocationError) Error() string {
	return fmt.Sprintf("functional tests failed: %v", e.Err)
}

func (e *TestInvocationError) Unwrap() error { return e.Err }

// MockToolInstallError means we could not install the mock generator
type MockToolInstallError struct {
	Tool string
	Err  error
}

func (e *MockToolInstallError) Error() string {
	return fmt.Sprintf("cannot install %s: %v", e.Tool, e.Err)
}

func (e *MockToolInstallError) Unwrap() error { return e.Err }

// CapturedOutput returns the output of the failed external process somewhere in err's chain, if any
func CapturedOutput(err error) (output string, ok bool) {
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		return "", false
	}
	return execErr.Output, true
}
