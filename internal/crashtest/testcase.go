// Package crashtest models a downloaded ClusterFuzz testcase: the crash
// metadata returned by the testcase-detail API, and the on-disk artifact the
// reproduction pipeline replays against a built or downloaded binary.
package crashtest

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// StacktraceLine is one line of the crash's recorded stack trace. Some lines
// carry "[Environment] NAME = value" or "Running command: ..." markers that
// ReproductionArgs/Environment parse out.
type StacktraceLine struct {
	Content string `json:"content"`
}

type testcaseDetail struct {
	JobType             string `json:"job_type"`
	AbsolutePath        string `json:"absolute_path"`
	WindowArgument      string `json:"window_argument"`
	MinimizedArguments  string `json:"minimized_arguments"`
	OneTimeCrasherFlag  bool   `json:"one_time_crasher_flag"`
	Gestures            []string `json:"gestures"`
}

type testcaseResponse struct {
	ID             int64  `json:"id"`
	CrashRevision  int    `json:"crash_revision"`
	CrashType      string `json:"crash_type"`
	CrashState     string `json:"crash_state"`
	CrashStacktrace struct {
		Lines []StacktraceLine `json:"lines"`
	} `json:"crash_stacktrace"`
	Metadata struct {
		BuildURL string `json:"build_url"`
	} `json:"metadata"`
	Testcase testcaseDetail `json:"testcase"`
}

// Testcase is the parsed view of a ClusterFuzz crash used throughout the
// reproduction pipeline.
type Testcase struct {
	ID                 int64
	JobType             string
	Revision            int
	BuildURL            string
	AbsolutePath        string
	FileExtension       string
	Reproducible        bool
	Gestures            []string
	CrashType           string
	CrashState          string
	ReproductionArgs    string
	Environment         map[string]string
	StacktraceLines     []StacktraceLine
}

// ParseTestcase decodes a testcase-detail API response body.
func ParseTestcase(body []byte) (*Testcase, error) {
	var resp testcaseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("crashtest: decode testcase response: %w", err)
	}

	env, args := environmentAndArgs(resp.CrashStacktrace.Lines)
	if args == "" {
		args = strings.TrimSpace(resp.Testcase.WindowArgument + " " + resp.Testcase.MinimizedArguments)
	}

	tc := &Testcase{
		ID:               resp.ID,
		JobType:          resp.Testcase.JobType,
		Revision:         resp.CrashRevision,
		BuildURL:         resp.Metadata.BuildURL,
		AbsolutePath:     resp.Testcase.AbsolutePath,
		FileExtension:    fileExtension(resp.Testcase.AbsolutePath),
		Reproducible:     !resp.Testcase.OneTimeCrasherFlag,
		Gestures:         resp.Testcase.Gestures,
		CrashType:        resp.CrashType,
		CrashState:       resp.CrashState,
		ReproductionArgs: args,
		Environment:      env,
		StacktraceLines:  resp.CrashStacktrace.Lines,
	}
	return tc, nil
}

func fileExtension(absolutePath string) string {
	base := filepath.Base(absolutePath)
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}

// environmentAndArgs walks the stacktrace looking for "[Environment] NAME =
// value" assignments and a "Running command: ..." line carrying the
// reproduction arguments, the way get_environment_and_args does.
func environmentAndArgs(lines []StacktraceLine) (map[string]string, string) {
	env := make(map[string]string)
	var args string

	for _, l := range lines {
		content := l.Content
		switch {
		case strings.Contains(content, "[Environment] "):
			rest := strings.Replace(content, "[Environment] ", "", 1)
			parts := strings.SplitN(rest, " = ", 2)
			if len(parts) != 2 {
				continue
			}
			name, value := parts[0], parts[1]
			if strings.Contains(name, "_OPTIONS") {
				value = strings.Replace(value, "symbolize=0", "symbolize=1", 1)
				if !strings.Contains(value, "symbolize=1") {
					value += ":symbolize=1"
				}
			}
			env[name] = value

		case strings.Contains(content, "Running command: "):
			rest := strings.Replace(content, "Running command: ", "", 1)
			fields := strings.Fields(rest)
			if len(fields) > 2 {
				// Strip the leading binary path and the trailing testcase path.
				args = strings.Join(fields[1:len(fields)-1], " ")
			}
		}
	}
	return env, args
}

// LocalDir returns the directory a testcase's downloaded artifacts live in.
func (t *Testcase) LocalDir(clusterfuzzDir string) string {
	return filepath.Join(clusterfuzzDir, "testcases", fmt.Sprintf("%d_testcase", t.ID))
}

// LocalPath returns the canonical on-disk path of this testcase's input
// file once downloaded and unzipped, regardless of whether it exists yet.
func (t *Testcase) LocalPath(clusterfuzzDir string) string {
	return filepath.Join(t.LocalDir(clusterfuzzDir), "testcase"+t.FileExtension)
}

// Downloader fetches a testcase's archive from the remote service into
// destDir, returning the name of the file it wrote there. Satisfied by
// *crashclient.Client.
type Downloader interface {
	DownloadArchive(ctx context.Context, testcaseID int64, destDir string) (string, error)
}

// Download returns the local path to this testcase's input file, downloading
// and unzipping it first if it isn't already cached, mirroring
// get_testcase_path: check the local cache, otherwise fetch the archive over
// the authenticated HTTP client and unzip/rename it into place.
func (t *Testcase) Download(ctx context.Context, downloader Downloader, clusterfuzzDir string) (string, error) {
	localPath := t.LocalPath(clusterfuzzDir)
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	dir := t.LocalDir(clusterfuzzDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("crashtest: create testcase directory: %w", err)
	}

	downloadedName, err := downloader.DownloadArchive(ctx, t.ID, dir)
	if err != nil {
		return "", fmt.Errorf("crashtest: download testcase archive: %w", err)
	}

	return t.ExtractZippedArtifact(dir, downloadedName)
}

// ExtractZippedArtifact unzips a downloaded archive in place and renames the
// extracted testcase file to "testcase<ext>", mirroring get_true_testcase_file.
func (t *Testcase) ExtractZippedArtifact(dir, downloadedName string) (string, error) {
	trueName := filepath.Join(dir, "testcase"+t.FileExtension)

	if !strings.HasSuffix(downloadedName, ".zip") {
		if err := os.Rename(filepath.Join(dir, downloadedName), trueName); err != nil {
			return "", fmt.Errorf("crashtest: rename testcase artifact: %w", err)
		}
		return trueName, nil
	}

	reader, err := zip.OpenReader(filepath.Join(dir, downloadedName))
	if err != nil {
		return "", fmt.Errorf("crashtest: open testcase archive: %w", err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if err := extractZipEntry(dir, f); err != nil {
			return "", err
		}
	}

	extracted := filepath.Join(dir, filepath.Base(t.AbsolutePath))
	if err := os.Rename(extracted, trueName); err != nil {
		return "", fmt.Errorf("crashtest: rename extracted testcase: %w", err)
	}
	return trueName, nil
}

func extractZipEntry(dir string, f *zip.File) error {
	target := filepath.Join(dir, f.Name)
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return fmt.Errorf("crashtest: zip entry %q escapes testcase directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

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
