package unifw

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestRunCapture(t *testing.T) {
	e := NewExecutor(context.Background())
	e.Echo = false

	t.Run("merges stdout and stderr", func(t *testing.T) {
		out, err := e.RunCapture(exec.Command("sh", "-c", "echo out; echo err 1>&2"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "out") || !strings.Contains(out, "err") {
			t.Errorf("captured output = %q", out)
		}
	})

	t.Run("returns output alongside the failure", func(t *testing.T) {
		out, err := e.RunCapture(exec.Command("sh", "-c", "echo partial; exit 3"))
		if err == nil {
			t.Fatal("expected a non-zero exit to surface as an error")
		}
		if !strings.Contains(out, "partial") {
			t.Errorf("output lost on failure: %q", out)
		}
	})
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor(ctx)
	e.Echo = false

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := e.RunCapture(exec.Command("sleep", "30"))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v, the child was not killed", elapsed)
	}
}
