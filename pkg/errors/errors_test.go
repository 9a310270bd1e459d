package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("jobs.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "jobs.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "jobs.yaml")
}

func TestValidationErrorIncludesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("jobs[1].binary_name", "required for custom binaries", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "jobs[1].binary_name", validationErr.Field)
	require.Contains(t, validationErr.Message, "required for custom binaries")
}

func TestConfigErrorIncludesSetting(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("not found")
	err := NewConfigError("goma_dir", "directory does not exist", underlying)

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, "goma_dir", configErr.Setting)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestExecutionErrorIncludesStepContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("command failed")
	err := NewExecutionError("build_binary", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "build_binary", executionErr.Step)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestAuthErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("401 Unauthorized")
	err := NewAuthError("session expired", underlying)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "session expired", authErr.Reason)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestJobTypeErrorIncludesJobType(t *testing.T) {
	t.Parallel()

	err := NewJobTypeError("libfuzzer_asan_pdfium", "unknown job type")

	var jobTypeErr *JobTypeError
	require.ErrorAs(t, err, &jobTypeErr)
	require.Equal(t, "libfuzzer_asan_pdfium", jobTypeErr.JobType)
	require.Contains(t, err.Error(), "unknown job type")
}
