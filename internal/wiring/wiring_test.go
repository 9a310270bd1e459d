package wiring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/crashtest"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/logger"
)

type fakeFetcher struct {
	tc *crashtest.Testcase
}

func (f *fakeFetcher) FetchTestcase(ctx context.Context, id string) (*crashtest.Testcase, error) {
	return f.tc, nil
}

// fakeDownloader simulates downloading a testcase's (already-unzipped) input
// file: it writes a plain file under destDir, exercising ExtractZippedArtifact's
// non-zip rename path.
type fakeDownloader struct {
	content string
}

func (f *fakeDownloader) DownloadArchive(ctx context.Context, testcaseID int64, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	const downloadedName = "downloaded_testcase"
	if err := os.WriteFile(filepath.Join(destDir, downloadedName), []byte(f.content), 0o644); err != nil {
		return "", err
	}
	return downloadedName, nil
}

type fakeArchiveFetcher struct {
	binaryName string
}

func (f *fakeArchiveFetcher) FetchAndExtract(ctx context.Context, url, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	// Simulates a binary that crashes on the recorded input: reproducer.Base
	// treats a nonzero exit as "crash reproduced", not as an execution error.
	script := "#!/bin/sh\nexit 1\n"
	return os.WriteFile(filepath.Join(destDir, f.binaryName), []byte(script), 0o755)
}

const testCatalog = `
standalone:
  libfuzzer_asan_pdfium:
    builder: Pdfium
    source: pdfium
    reproducer: Base
`

func TestGraphRunDownloadPath(t *testing.T) {
	t.Parallel()

	catalogPath := filepath.Join(t.TempDir(), "supported_job_types.yml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o644))

	tc := &crashtest.Testcase{
		ID:               999,
		JobType:          "libfuzzer_asan_pdfium",
		AbsolutePath:     "/mnt/scratch0/clusterfuzz/testcase.pdf",
		FileExtension:    ".pdf",
		ReproductionArgs: "",
		Reproducible:     true,
	}

	log, err := logger.New(logger.Options{})
	require.NoError(t, err)

	env := Environment{
		Client:         &fakeFetcher{tc: tc},
		Downloader:     &fakeDownloader{content: "crash input"},
		ArchiveFetcher: &fakeArchiveFetcher{binaryName: "pdfium_test"},
		CatalogPath:    catalogPath,
		ClusterfuzzDir: t.TempDir(),
		Log:            log,
	}

	graph := Build(context.Background(), env)

	reproduced, err := graph.Run(Inputs{
		TestcaseID: "999",
		Build:      "download",
		Iterations: 1,
		DisableGoma: true,
	})
	require.NoError(t, err)
	require.True(t, reproduced)
}

func TestGraphRunFailsOnUnknownJobType(t *testing.T) {
	t.Parallel()

	catalogPath := filepath.Join(t.TempDir(), "supported_job_types.yml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o644))

	tc := &crashtest.Testcase{ID: 1, JobType: "unknown_job", AbsolutePath: "/mnt/scratch0/clusterfuzz/t", FileExtension: ""}

	log, err := logger.New(logger.Options{})
	require.NoError(t, err)

	env := Environment{
		Client:         &fakeFetcher{tc: tc},
		Downloader:     &fakeDownloader{content: "crash input"},
		ArchiveFetcher: &fakeArchiveFetcher{binaryName: "bin"},
		CatalogPath:    catalogPath,
		ClusterfuzzDir: t.TempDir(),
		Log:            log,
	}

	graph := Build(context.Background(), env)
	_, err = graph.Run(Inputs{TestcaseID: "1", Build: "download", Iterations: 1, DisableGoma: true})
	require.Error(t, err)
}
