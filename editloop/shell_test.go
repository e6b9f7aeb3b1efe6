package editloop

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestRunShellStreamsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash test")
	}
	var lines []string
	err := RunShell(context.Background(), "echo one; echo two >&2; echo three", t.TempDir(), func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("RunShell: %v", err)
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"one", "two", "three"} {
		if !strings.Contains(joined, want) {
			t.Errorf("output missing %q: %q", want, joined)
		}
	}
}

func TestRunShellFailureCarriesOutputTail(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash test")
	}
	err := RunShell(context.Background(), "echo compile error on line 5 >&2; exit 2", t.TempDir(), nil)
	var sub *SubprocessError
	if !errors.As(err, &sub) {
		t.Fatalf("err = %v, want *SubprocessError", err)
	}
	if sub.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", sub.ExitCode)
	}
	if !strings.Contains(sub.Output, "compile error on line 5") {
		t.Errorf("output = %q", sub.Output)
	}
}

func TestRunShellRunsInDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash test")
	}
	dir := t.TempDir()
	var got string
	err := RunShell(context.Background(), "pwd", dir, func(line string) { got = line })
	if err != nil {
		t.Fatalf("RunShell: %v", err)
	}
	if !strings.Contains(got, dir) && !strings.HasSuffix(got, dir[strings.LastIndex(dir, "/"):]) {
		t.Errorf("pwd = %q, want it under %q", got, dir)
	}
}

func TestRunShellCancellation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := RunShell(ctx, "sleep 30", t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}
