// Package errs defines the error classes an apply can fail with and how
// they map to process exit codes.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks manifest or configuration problems. Nothing has been
	// mutated when one of these is returned.
	ErrConfig = errors.New("configuration error")

	// ErrBuild marks checkout or pre-install failures. The run stops before
	// any service, proxy or container mutation.
	ErrBuild = errors.New("build error")

	// ErrActivation marks render, write or activation command failures
	// after deploy began. Prior steps are left in place; every applier is
	// idempotent, so re-applying after a fix is the recovery path.
	ErrActivation = errors.New("activation error")
)

func Wrap(class, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", class, err)
}

func WrapMsg(class error, msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", class, msg)
	}
	return fmt.Errorf("%w: %s: %v", class, msg, err)
}

// ExitCode maps an apply error to the publishctl process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfig):
		return 2
	default:
		return 1
	}
}
