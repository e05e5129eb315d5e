package pm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrCommandFailed marks a package manager process that exited non-zero.
var ErrCommandFailed = errors.New("package manager command failed")

// CommandError carries the failed command line and its exit status.
type CommandError struct {
	Command  string
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %q exited with status %d", ErrCommandFailed, e.Command, e.ExitCode)
}

func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }

// maxLine is the longest output line passed to OnLine. Longer output is
// read and dropped.
const maxLine = 1 << 20

// Runner executes commands synchronously.
type Runner interface {
	Run(cmd Command) error
}

// ExecRunner runs commands as child processes and blocks until they exit.
// By default the child inherits stdin, stdout and stderr. When OnLine is
// set, stdout and stderr are read line by line and passed to it instead.
type ExecRunner struct {
	OnLine func(line string)
	// Tee gets a copy of the child's output when stdio is inherited.
	Tee io.Writer
}

// Run executes cmd. A non-zero exit yields a *CommandError.
func (r *ExecRunner) Run(c Command) error {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = os.Stdin

	var err error
	if r.OnLine == nil {
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		if r.Tee != nil {
			cmd.Stdout = io.MultiWriter(os.Stdout, r.Tee)
			cmd.Stderr = io.MultiWriter(os.Stderr, r.Tee)
		}
		err = cmd.Run()
	} else {
		err = r.stream(cmd)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Command: c.String(), ExitCode: exitErr.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

func (r *ExecRunner) stream(cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	lines := make(chan string)
	done := make(chan struct{}, 2)
	pipe := func(rd io.Reader) {
		scanner := bufio.NewScanner(rd)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
		for scanner.Scan() {
			if line := scanner.Text(); strings.TrimSpace(line) != "" {
				lines <- line
			}
		}
		// keep draining after an oversized line so the child never blocks
		io.Copy(io.Discard, rd)
		done <- struct{}{}
	}
	go pipe(stdout)
	go pipe(stderr)
	go func() {
		<-done
		<-done
		close(lines)
	}()

	// OnLine runs on this goroutine only
	for line := range lines {
		r.OnLine(line)
	}
	return cmd.Wait()
}
