// Package runner is the single gateway to external commands. The process
// manager, container runtime, version control tool and certificate tool are
// all driven through the Runner interface so tests can substitute a
// recording fake and assert on the exact commands issued.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

type Opts struct {
	// Dir is the working directory for the command. Empty means inherit.
	Dir string

	// Check makes a nonzero exit an error.
	Check bool

	// Capture collects stdout/stderr into the Result instead of passing
	// them through to the operator.
	Capture bool
}

type Runner interface {
	Run(ctx context.Context, argv []string, opts Opts) (Result, error)
}

// ExitError reports a checked command that exited nonzero.
type ExitError struct {
	Argv     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", strings.Join(e.Argv, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// OS runs commands on the host.
type OS struct{}

func (OS) Run(ctx context.Context, argv []string, opts Opts) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("empty command")
	}
	zap.L().Info("+ " + strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir

	var stdout, stderr bytes.Buffer
	if opts.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return res, fmt.Errorf("run %q: %w", argv[0], err)
		}
		res.ExitCode = exitErr.ExitCode()
		if opts.Check {
			return res, &ExitError{Argv: argv, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
	}
	return res, nil
}

// DryRunner logs each command without executing it. It backs the apply
// --dry-run flag.
type DryRunner struct{}

func (DryRunner) Run(ctx context.Context, argv []string, opts Opts) (Result, error) {
	zap.L().Info("dry-run: " + strings.Join(argv, " "))
	return Result{}, nil
}
