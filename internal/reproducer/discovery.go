package reproducer

import (
	"os/exec"

	cferrors "github.com/alexisbeaulieu97/clusterfuzz-reproduce/pkg/errors"
)

// CheckBinary resolves name on PATH, mirroring common.check_binary.
func CheckBinary(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", cferrors.NewConfigError(name, "required binary not found on PATH", err)
	}
	return path, nil
}

// XdotoolPath resolves xdotool only when the testcase actually uses
// gestures, mirroring get_xdotool_path's early return otherwise.
func XdotoolPath(usesGestures bool) (string, error) {
	if !usesGestures {
		return "", nil
	}
	return CheckBinary("xdotool")
}
