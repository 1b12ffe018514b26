package unifw

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Executor provides a consistent interface for executing the external build
// tools (libtool, xcodebuild). It owns context cancellation and process
// group isolation so an interrupted build doesn't leave tool processes
// behind.
type Executor struct {
	Context context.Context // The context to use for cancellation
	Echo    bool            // Echo commands before running them
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx, Echo: true}
}

// Run executes the given command. It wires up stdio, isolates the child in
// its own process group, and kills the whole group when the context is
// cancelled.
func (e *Executor) Run(cmd *exec.Cmd) error {
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	finalCmd := exec.CommandContext(e.Context, cmd.Path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir

	// preserve or inherit the environment
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}

	// carry over stdio
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	// isolate process group for context-based cleanup
	finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if e.Echo {
		colArrow.Print("-> ")
		colInfo.Println("Cmd " + strings.Join(cmd.Args, " "))
	}

	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	pgid := finalCmd.Process.Pid
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-e.Context.Done():
			syscall.Kill(-pgid, syscall.SIGKILL)
		case <-done:
		}
	}()

	if waitErr := finalCmd.Wait(); waitErr != nil {
		if e.Context.Err() != nil {
			// Give the dying child a moment to flush its buffers.
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", e.Context.Err())
		}
		return waitErr
	}
	return nil
}

// RunCapture executes the command with stdout and stderr merged into one
// captured buffer. The output is returned even when the command fails so
// the caller can log it.
func (e *Executor) RunCapture(cmd *exec.Cmd) (string, error) {
	var out bytes.Buffer
	cmd.Stdin = strings.NewReader("")
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := e.Run(cmd)
	return out.String(), err
}
