// Package build resolves a Provider that can hand back the local path to a
// test binary: either a prebuilt archive downloaded from ClusterFuzz, or one
// freshly compiled from a checked-out source tree.
package build

import (
	"context"
	"fmt"
)

// Provider knows how to produce a local binary path for reproduction.
type Provider interface {
	// BinaryPath returns the absolute path to the built or downloaded binary.
	BinaryPath(ctx context.Context) (string, error)
}

// Downloaded is a Provider backed by a prebuilt archive fetched directly from
// ClusterFuzz's storage bucket, used when the caller passes --build=download.
type Downloaded struct {
	TestcaseID int64
	BuildURL   string
	BinaryName string
	Fetcher    ArchiveFetcher
	CacheDir   string
}

// ArchiveFetcher downloads a build archive and extracts it into destDir,
// returning only an error.
type ArchiveFetcher interface {
	FetchAndExtract(ctx context.Context, url, destDir string) error
}

// BinaryPath downloads (if not already cached) the build archive and returns
// the path to the named binary within it.
func (d *Downloaded) BinaryPath(ctx context.Context) (string, error) {
	if d.BinaryName == "" {
		return "", fmt.Errorf("build: downloaded provider requires a binary name")
	}

	destDir := d.CacheDir
	if err := d.Fetcher.FetchAndExtract(ctx, d.BuildURL, destDir); err != nil {
		return "", fmt.Errorf("build: fetch archive for testcase %d: %w", d.TestcaseID, err)
	}

	return destDir + "/" + d.BinaryName, nil
}
