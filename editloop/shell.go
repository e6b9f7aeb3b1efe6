package editloop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
)

// subprocessTailLines bounds how much command output a SubprocessError
// carries back into the conversation.
const subprocessTailLines = 200

// SubprocessError reports a failed shell command together with the tail of
// its combined output, which is what retry prompts quote to the model.
type SubprocessError struct {
	Message  string
	Output   string
	ExitCode int
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("%s (exit %d)", e.Message, e.ExitCode)
}

// RunShell runs command through the shell in dir, streaming each combined
// output line to onLine as it appears. Cancellation kills the whole process
// group, not just the shell.
func RunShell(ctx context.Context, command, dir string, onLine func(string)) error {
	shell, shellArg := "/bin/bash", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("start %q: %w", command, err)
	}

	// Consume output on this goroutine; close the writer once the process
	// exits so the scanner sees EOF.
	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	var tail []string
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if onLine != nil {
			onLine(line)
		}
		tail = append(tail, line)
		if len(tail) > subprocessTailLines {
			tail = tail[1:]
		}
	}

	err := <-waitErr
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		// Kill whatever the shell spawned along with it.
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return ctx.Err()
	}

	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	return &SubprocessError{
		Message:  fmt.Sprintf("command failed: %s", command),
		Output:   strings.Join(tail, "\n"),
		ExitCode: exitCode,
	}
}
