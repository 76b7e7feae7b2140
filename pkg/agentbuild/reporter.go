package agentbuild

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/segmentio/textio"
)

// Reporter provides feedback about task progress to the user.
//
// Implementers beware: TaskLog is called while the child process is running. Blocking in there
// blocks the child's output.
type Reporter interface {
	// TaskStarted is called right before a command of a task is executed
	TaskStarted(task string, cmd RenderedCommand)

	// TaskLog is called whenever the running command produced some output
	TaskLog(task string, isErr bool, buf []byte)

	// TaskFinished is called when the task has finished. If an error is passed in the task failed.
	TaskFinished(task string, err error)
}

// ConsoleReporter reports task progress by printing to stdout
type ConsoleReporter struct {
	out    io.Writer
	writer map[string]io.Writer
	times  map[string]time.Time
	mu     sync.Mutex
}

// exclusiveWriter makes a write an exclusive resource by protecting Write calls with a mutex.
type exclusiveWriter struct {
	O  io.Writer
	mu sync.Mutex
}

func (w *exclusiveWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.O.Write(p)
}

// NewConsoleReporter produces a new console reporter which writes to stdout
func NewConsoleReporter() *ConsoleReporter {
	return newConsoleReporter(os.Stdout)
}

func newConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:    out,
		writer: make(map[string]io.Writer),
		times:  make(map[string]time.Time),
	}
}

func (r *ConsoleReporter) getWriter(task string) io.Writer {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.writer[task]
	if !ok {
		res = &exclusiveWriter{O: textio.NewPrefixWriter(r.out, getTaskPrefix(task))}
		r.writer[task] = res
	}
	return res
}

// TaskStarted prints the command that's about to run
func (r *ConsoleReporter) TaskStarted(task string, cmd RenderedCommand) {
	out := r.getWriter(task)

	r.mu.Lock()
	if _, exists := r.times[task]; !exists {
		r.times[task] = time.Now()
	}
	r.mu.Unlock()

	_, _ = io.WriteString(out, color.Sprintf("<fg=yellow>running</> <gray>%s</>\n", cmd.Command))
}

// TaskLog forwards the command output
func (r *ConsoleReporter) TaskLog(task string, isErr bool, buf []byte) {
	out := r.getWriter(task)
	_, _ = out.Write(buf)
}

// TaskFinished prints the outcome of the task
func (r *ConsoleReporter) TaskFinished(task string, err error) {
	out := r.getWriter(task)

	r.mu.Lock()
	dur := time.Since(r.times[task])
	delete(r.writer, task)
	delete(r.times, task)
	r.mu.Unlock()

	// the prefix writer holds back incomplete lines until they end
	if f, ok := out.(*exclusiveWriter); ok {
		f.mu.Lock()
		if pw, ok := f.O.(*textio.PrefixWriter); ok && len(pw.Buffered()) > 0 {
			_, _ = pw.Write([]byte("\n"))
		}
		f.mu.Unlock()
	}

	msg := color.Sprintf("<green>%s succeeded</> <gray>(%.2fs)</>\n", task, dur.Seconds())
	if err != nil {
		msg = color.Sprintf("<red>%s failed</>\n<white>Reason:</> %s\n", task, err)
	}
	_, _ = io.WriteString(out, msg)
}

func getTaskPrefix(task string) string {
	return color.Gray.Render(fmt.Sprintf("[%s] ", task))
}

// NoopReporter discards all progress reports
type NoopReporter struct{}

// TaskStarted does nothing
func (NoopReporter) TaskStarted(task string, cmd RenderedCommand) {}

// TaskLog does nothing
func (NoopReporter) TaskLog(task string, isErr bool, buf []byte) {}

// TaskFinished does nothing
func (NoopReporter) TaskFinished(task string, err error) {}
