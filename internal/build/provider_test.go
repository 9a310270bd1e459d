package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	fetchedURL string
	fetchedTo  string
	err        error
}

func (f *fakeFetcher) FetchAndExtract(ctx context.Context, url, destDir string) error {
	f.fetchedURL = url
	f.fetchedTo = destDir
	return f.err
}

func TestDownloadedBinaryPathJoinsCacheDirAndName(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	d := &Downloaded{
		TestcaseID: 12345,
		BuildURL:   "gs://bucket/build.zip",
		BinaryName: "pdfium_test",
		Fetcher:    fetcher,
		CacheDir:   "/tmp/cache/12345",
	}

	path, err := d.BinaryPath(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/tmp/cache/12345/pdfium_test", path)
	require.Equal(t, "gs://bucket/build.zip", fetcher.fetchedURL)
}

func TestDownloadedBinaryPathRequiresBinaryName(t *testing.T) {
	t.Parallel()

	d := &Downloaded{Fetcher: &fakeFetcher{}, CacheDir: "/tmp/cache"}
	_, err := d.BinaryPath(context.Background())
	require.Error(t, err)
}

func TestShouldEnableGoma(t *testing.T) {
	t.Parallel()

	require.True(t, ShouldEnableGoma(false, "source"))
	require.False(t, ShouldEnableGoma(true, "source"))
	require.False(t, ShouldEnableGoma(false, "download"))
}
