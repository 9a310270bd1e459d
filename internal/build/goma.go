package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	cferrors "github.com/alexisbeaulieu97/clusterfuzz-reproduce/pkg/errors"
)

// ShouldEnableGoma mirrors should_enable_goma: goma only makes sense when it
// hasn't been explicitly disabled and the job actually compiles from source.
func ShouldEnableGoma(disableGoma bool, buildMode string) bool {
	return !disableGoma && buildMode != "download"
}

// GomaDir resolves the goma installation directory, defaulting to ~/goma and
// honoring the GOMA_DIR environment variable, mirroring get_goma_dir.
func GomaDir() (string, error) {
	dir := os.Getenv("GOMA_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", cferrors.NewConfigError("goma_dir", "could not determine home directory", err)
		}
		dir = filepath.Join(home, "goma")
	}

	if _, err := os.Stat(filepath.Join(dir, "goma_ctl.py")); err != nil {
		return "", cferrors.NewConfigError("goma_dir", "goma is not installed at "+dir, err)
	}

	return dir, nil
}

// EnsureGoma starts the goma compiler proxy, mirroring ensure_goma.
func EnsureGoma(ctx context.Context, gomaDir string) error {
	cmd := exec.CommandContext(ctx, "python", "goma_ctl.py", "ensure_start")
	cmd.Dir = gomaDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return cferrors.NewConfigError("goma_ctl.py ensure_start", "failed to start goma", err)
	}
	return nil
}
