package crashtest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "id": 12345,
  "crash_revision": 678,
  "crash_type": "Heap-buffer-overflow",
  "crash_state": "foo\nbar",
  "crash_stacktrace": {
    "lines": [
      {"content": "[Environment] ASAN_OPTIONS = symbolize=0"},
      {"content": "Running command: /bin/testbin --flag testcase.js"}
    ]
  },
  "metadata": {"build_url": "gs://bucket/build.zip"},
  "testcase": {
    "job_type": "libfuzzer_asan_pdfium",
    "absolute_path": "/mnt/scratch0/clusterfuzz/testcase.js",
    "window_argument": "",
    "minimized_arguments": "",
    "one_time_crasher_flag": false,
    "gestures": []
  }
}`

func TestParseTestcaseExtractsEnvironmentAndArgs(t *testing.T) {
	t.Parallel()

	tc, err := ParseTestcase([]byte(sampleResponse))
	require.NoError(t, err)

	require.Equal(t, int64(12345), tc.ID)
	require.Equal(t, "libfuzzer_asan_pdfium", tc.JobType)
	require.True(t, tc.Reproducible)
	require.Equal(t, ".js", tc.FileExtension)
	require.Equal(t, "--flag", tc.ReproductionArgs)
	require.Equal(t, "symbolize=0:symbolize=1", tc.Environment["ASAN_OPTIONS"])
}

func TestParseTestcaseFallsBackToMinimizedArguments(t *testing.T) {
	t.Parallel()

	resp := `{
		"id": 1, "crash_revision": 1, "crash_type": "t", "crash_state": "s",
		"crash_stacktrace": {"lines": []},
		"metadata": {"build_url": ""},
		"testcase": {
			"job_type": "x", "absolute_path": "/a/b/testcase",
			"window_argument": "--headless", "minimized_arguments": "--no-sandbox",
			"one_time_crasher_flag": true, "gestures": null
		}
	}`

	tc, err := ParseTestcase([]byte(resp))
	require.NoError(t, err)
	require.False(t, tc.Reproducible)
	require.Equal(t, "--headless --no-sandbox", tc.ReproductionArgs)
	require.Equal(t, "", tc.FileExtension)
}

func TestExtractZippedArtifactUnzipsAndRenames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "download.zip")

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("testcase.js")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0o644))

	tc := &Testcase{AbsolutePath: "/remote/path/testcase.js", FileExtension: ".js"}
	path, err := tc.ExtractZippedArtifact(dir, "download.zip")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "testcase.js"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "payload", string(content))
}

func TestExtractZippedArtifactRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("../escape.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("pwned"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0o644))

	tc := &Testcase{AbsolutePath: "/remote/path/testcase.js", FileExtension: ".js"}
	_, err = tc.ExtractZippedArtifact(dir, "evil.zip")
	require.Error(t, err)
}
