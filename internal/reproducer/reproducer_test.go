package reproducer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/crashtest"
)

func TestBaseArgsUsesTargetArgsOverrideBeforeTestcase(t *testing.T) {
	t.Parallel()

	tc := &crashtest.Testcase{AbsolutePath: "/mnt/scratch0/clusterfuzz/testcase.js", ReproductionArgs: "--from-testcase"}
	b := &Base{Testcase: tc, TestcasePath: "/home/user/.clusterfuzz/testcases/1_testcase/testcase.js", TargetArgs: "--override"}

	require.Equal(t, []string{"--override", "/home/user/.clusterfuzz/testcases/1_testcase/testcase.js"}, b.args())
}

func TestBaseArgsFallsBackToTestcaseArgs(t *testing.T) {
	t.Parallel()

	tc := &crashtest.Testcase{AbsolutePath: "/mnt/scratch0/clusterfuzz/testcase.js", ReproductionArgs: "--flag value"}
	b := &Base{Testcase: tc, TestcasePath: "/home/user/.clusterfuzz/testcases/1_testcase/testcase.js"}

	require.Equal(t, []string{"--flag", "value", "/home/user/.clusterfuzz/testcases/1_testcase/testcase.js"}, b.args())
}

func TestBaseReproduceFailsOnMissingBinary(t *testing.T) {
	t.Parallel()

	tc := &crashtest.Testcase{AbsolutePath: "/mnt/scratch0/clusterfuzz/testcase.js"}
	b := &Base{BinaryPath: "/does/not/exist/binary", Testcase: tc, TestcasePath: "/tmp/testcase.js"}

	err := b.Reproduce(context.Background(), 1)
	require.Error(t, err)
}

func TestXdotoolPathSkippedWithoutGestures(t *testing.T) {
	t.Parallel()

	path, err := XdotoolPath(false)
	require.NoError(t, err)
	require.Equal(t, "", path)
}
