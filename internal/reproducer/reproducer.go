// Package reproducer runs a built or downloaded binary against a testcase's
// recorded crash input, the way reproducers.py's Base/LibfuzzerJob/
// LinuxChromeJob classes do.
package reproducer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/crashtest"
	cferrors "github.com/alexisbeaulieu97/clusterfuzz-reproduce/pkg/errors"
)

// Reproducer replays a testcase against a binary. How iterations is used
// depends on the implementation: Base honors it, while LibfuzzerJob and a
// blackbox-wrapped LinuxChromeJob run the binary once.
type Reproducer interface {
	Reproduce(ctx context.Context, iterations int) error
}

// Base runs the binary directly with the testcase's recorded arguments and
// environment, with no sanitizer-specific or windowing behavior.
type Base struct {
	BinaryPath      string
	TestcasePath    string
	Testcase        *crashtest.Testcase
	Sanitizer       string
	TargetArgs      string
	BlackboxPath    string
	GClientPath     string
	XdotoolPath     string
	DisableBlackbox bool
}

// Reproduce runs the binary once per iteration, stopping at the first
// nonzero exit (a reproduced crash) or once iterations completes.
func (b *Base) Reproduce(ctx context.Context, iterations int) error {
	args := b.args()

	for i := 0; i < iterations; i++ {
		cmd := exec.CommandContext(ctx, b.BinaryPath, args...)
		cmd.Env = b.environment()
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		err := cmd.Run()
		if err != nil {
			var exitErr *exec.ExitError
			if isExitError(err, &exitErr) {
				return nil // reproduced: the binary crashed as recorded
			}
			return cferrors.NewExecutionError("run binary", err)
		}
	}
	return nil
}

func (b *Base) args() []string {
	testArgs := b.TargetArgs
	if testArgs == "" {
		testArgs = b.Testcase.ReproductionArgs
	}
	fields := strings.Fields(testArgs)
	return append(fields, b.TestcasePath)
}

func (b *Base) environment() []string {
	env := os.Environ()
	for k, v := range b.Testcase.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// LibfuzzerJob runs the binary in libFuzzer's single-input replay mode. It
// runs the binary exactly once; iterations is not used.
type LibfuzzerJob struct {
	Base
}

func (l *LibfuzzerJob) Reproduce(ctx context.Context, iterations int) error {
	cmd := exec.CommandContext(ctx, l.BinaryPath, l.TestcasePath, "-runs=1")
	cmd.Env = l.environment()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if isExitError(err, &exitErr) {
			return nil
		}
		return cferrors.NewExecutionError("run libfuzzer target", err)
	}
	return nil
}

// LinuxChromeJob runs a Chrome-derived binary under blackbox (to capture a
// consistent window for tests that rely on gestures) and, if requested,
// replays recorded gestures through xdotool. Under blackbox the binary runs
// once and iterations is not used; without a blackbox path it falls back to
// Base.Reproduce, which honors iterations.
type LinuxChromeJob struct {
	Base
	UseGestures bool
}

func (c *LinuxChromeJob) Reproduce(ctx context.Context, iterations int) error {
	if c.BlackboxPath == "" {
		return c.Base.Reproduce(ctx, iterations)
	}

	args := append([]string{c.BinaryPath}, c.args()...)
	cmd := exec.CommandContext(ctx, c.BlackboxPath, args...)
	cmd.Env = c.environment()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if isExitError(err, &exitErr) {
			return nil
		}
		return cferrors.NewExecutionError("run under blackbox", err)
	}

	if c.UseGestures && c.XdotoolPath != "" && len(c.Testcase.Gestures) > 0 {
		for _, gesture := range c.Testcase.Gestures {
			if err := exec.CommandContext(ctx, c.XdotoolPath, strings.Fields(gesture)...).Run(); err != nil {
				return cferrors.NewExecutionError("replay gesture", err)
			}
		}
	}
	return nil
}

func isExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}
