package build

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HTTPFetcher downloads a build archive over plain HTTP(S) and extracts it,
// the way the original tool shells out to wget for prebuilt download builds.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher constructs an HTTPFetcher with a sane default client.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{}}
}

// FetchAndExtract downloads the archive at url and unzips it into destDir,
// skipping the download entirely if destDir already exists and is non-empty.
func (f *HTTPFetcher) FetchAndExtract(ctx context.Context, url, destDir string) error {
	if entries, err := os.ReadDir(destDir); err == nil && len(entries) > 0 {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build: build archive request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("build: download build archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("build: download build archive: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("build: create build cache dir: %w", err)
	}

	archivePath := filepath.Join(destDir, "build.zip")
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("build: write build archive: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("build: write build archive: %w", err)
	}
	out.Close()

	return extractZip(archivePath, destDir)
}

func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("build: open build archive: %w", err)
	}
	defer reader.Close()

	cleanDest := filepath.Clean(destDir)
	for _, f := range reader.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("build: archive entry %q escapes destination", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
