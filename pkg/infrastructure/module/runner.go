// Package module runs follow-up scripts against matched URLs.
package module

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

// ExecRunner implements service.ModuleRunner by executing
// <dir>/<target>/<module>.py with the URL as its only argument
type ExecRunner struct {
	dir     string
	timeout time.Duration
}

// NewExecRunner creates a runner for the modules under dir. A timeout of 0
// lets a module run until the context ends.
func NewExecRunner(dir string, timeout time.Duration) *ExecRunner {
	return &ExecRunner{dir: dir, timeout: timeout}
}

// Path returns the script run for module of target
func (r *ExecRunner) Path(target, module string) string {
	return filepath.Join(r.dir, target, module+".py")
}

// Run executes the module and returns its exit code. A module that exits
// with a failure is not an error; one that cannot be started or is killed
// is.
func (r *ExecRunner) Run(ctx context.Context, target, module, url string) (int, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Path(target, module), url)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("module %s/%s: %w", target, module, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("module %s/%s: %w", target, module, err)
}
