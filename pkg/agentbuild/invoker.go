package agentbuild

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// ProcessExecutor runs a rendered command to completion. It returns the exit status of the process;
// err is only set if the process could not be run at all.
type ProcessExecutor interface {
	Execute(cmd RenderedCommand, stdout, stderr io.Writer) (exitStatus int, err error)
}

// ShellExecutor runs commands using "sh -c"
type ShellExecutor struct {
	// TTY runs interactive commands on a pseudo terminal so that tools keep their colored output
	TTY bool
}

// Execute runs the command in its environment and working directory
func (s ShellExecutor) Execute(rc RenderedCommand, stdout, stderr io.Writer) (exitStatus int, err error) {
	cmd := exec.Command("sh", "-c", rc.Command)
	cmd.Dir = rc.Dir
	if rc.Env != nil {
		cmd.Env = rc.Env.List()
	}

	if s.TTY && rc.Interactive {
		err = runOnPTY(cmd, stdout)
	} else {
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		err = cmd.Run()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, xerrors.Errorf("cannot run %q: %w", rc.Command, err)
	}
	return 0, nil
}

func runOnPTY(cmd *exec.Cmd, out io.Writer) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()
	_ = pty.InheritSize(ptmx, os.Stdin)

	done := make(chan struct{})
	go func() {
		// reading from the pty fails with EIO once the child is gone
		_, _ = io.Copy(out, ptmx)
		close(done)
	}()

	err = cmd.Wait()
	<-done
	return err
}

// Invoker executes rendered commands and turns non-zero exits into ExecutionErrors
type Invoker struct {
	Executor ProcessExecutor
	Reporter Reporter
}

// Run executes the command and returns what it wrote to stdout. There are no retries.
func (iv *Invoker) Run(task string, rc RenderedCommand) (stdout string, exitStatus int, err error) {
	log.WithField("task", task).WithField("command", rc.Command).WithField("dir", rc.Dir).Debug("running")

	var (
		outBuf      bytes.Buffer
		combinedBuf bytes.Buffer
		rout        io.Writer = &reporterStream{R: iv.Reporter, Task: task}
		rerr        io.Writer = &reporterStream{R: iv.Reporter, Task: task, IsErr: true}
	)
	exitStatus, err = iv.Executor.Execute(rc,
		io.MultiWriter(&outBuf, &combinedBuf, rout),
		io.MultiWriter(&combinedBuf, rerr),
	)
	if err != nil {
		return "", exitStatus, err
	}
	if exitStatus != 0 {
		return outBuf.String(), exitStatus, &ExecutionError{
			Command:    rc.Command,
			ExitStatus: exitStatus,
			Output:     strings.TrimSpace(combinedBuf.String()),
		}
	}
	return outBuf.String(), 0, nil
}

type reporterStream struct {
	R     Reporter
	Task  string
	IsErr bool
}

func (s *reporterStream) Write(buf []byte) (n int, err error) {
	if s.R != nil {
		s.R.TaskLog(s.Task, s.IsErr, buf)
	}
	return len(buf), nil
}
