package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// stderrTailLines bounds how much stderr is retained for error classification.
const stderrTailLines = 40

// Handle exposes the live subprocess to the process registry.
type Handle interface {
	Kill() error
	PID() int
}

// RunOptions carries per-invocation callbacks.
type RunOptions struct {
	// OnLine receives each stderr line as it is written.
	OnLine func(line string)
	// OnStart receives the process handle after a successful spawn, before
	// any output is consumed.
	OnStart func(h Handle)
}

// RunResult captures one finished transcoder invocation.
type RunResult struct {
	ExitCode   int
	StderrTail string
}

// Runner abstracts transcoder process execution for testability.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts RunOptions) (RunResult, error)
}

// ExecRunner executes commands via os/exec with streamed stderr.
type ExecRunner struct{}

// NewRunner returns the production runner.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

type processHandle struct {
	cmd *exec.Cmd
}

// Kill force-terminates the subprocess without graceful shutdown.
func (h *processHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

// PID returns the OS process id.
func (h *processHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Run spawns one process, streams its stderr lines through opts.OnLine, and
// waits for exit. The returned RunResult is valid even when err is non-nil.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, opts RunOptions) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return RunResult{ExitCode: -1}, err
	}

	if err := cmd.Start(); err != nil {
		return RunResult{ExitCode: -1}, err
	}
	if opts.OnStart != nil {
		opts.OnStart(&processHandle{cmd: cmd})
	}

	tail := make([]string, 0, stderrTailLines)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(splitProgressLines)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			if opts.OnLine != nil {
				opts.OnLine(line)
			}
			tail = append(tail, line)
			if len(tail) > stderrTailLines {
				tail = tail[1:]
			}
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()

	result := RunResult{
		ExitCode:   0,
		StderrTail: strings.Join(tail, "\n"),
	}
	if waitErr != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, waitErr
	}

	return result, nil
}
