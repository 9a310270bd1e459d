package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	git "github.com/go-git/go-git/v5"

	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/crashtest"
	cferrors "github.com/alexisbeaulieu97/clusterfuzz-reproduce/pkg/errors"
)

// Kind names one of the supported_job_types.yml builder classes.
type Kind string

const (
	Pdfium            Kind = "Pdfium"
	V8                Kind = "V8"
	Chromium          Kind = "Chromium"
	LibfuzzerMsan     Kind = "LibfuzzerMsan"
	MsanChromium      Kind = "MsanChromium"
	CfiChromium       Kind = "CfiChromium"
	UbsanVptrChromium Kind = "UbsanVptrChromium"
)

// repoURLs maps each builder kind to the upstream checkout it builds from.
var repoURLs = map[Kind]string{
	Pdfium:            "https://pdfium.googlesource.com/pdfium",
	V8:                "https://chromium.googlesource.com/v8/v8",
	Chromium:          "https://chromium.googlesource.com/chromium/src",
	LibfuzzerMsan:     "https://chromium.googlesource.com/chromium/src",
	MsanChromium:      "https://chromium.googlesource.com/chromium/src",
	CfiChromium:       "https://chromium.googlesource.com/chromium/src",
	UbsanVptrChromium: "https://chromium.googlesource.com/chromium/src",
}

// buildTargets maps each builder kind to the ninja target it compiles.
var buildTargets = map[Kind]string{
	Pdfium:            "pdfium_test",
	V8:                "d8",
	Chromium:          "chrome",
	LibfuzzerMsan:     "libfuzzer_target",
	MsanChromium:      "chrome",
	CfiChromium:       "chrome",
	UbsanVptrChromium: "chrome",
}

// SourceBuilder is a Provider that checks out (or reuses) a source tree at
// the testcase's crash revision and compiles the job's target binary,
// optionally accelerated by goma.
type SourceBuilder struct {
	Kind       Kind
	Testcase   *crashtest.Testcase
	SourceDir  string
	GomaDir    string // empty when goma is disabled
	Jobs       int
	NoGClient  bool
	Target     string // overrides buildTargets[Kind] when set
	runCommand func(ctx context.Context, dir, name string, args ...string) error
}

// NewSourceBuilder constructs a SourceBuilder for kind, defaulting its
// command runner to os/exec.
func NewSourceBuilder(kind Kind, tc *crashtest.Testcase, sourceDir, gomaDir string, jobs int, noGClient bool) *SourceBuilder {
	return &SourceBuilder{
		Kind:       kind,
		Testcase:   tc,
		SourceDir:  sourceDir,
		GomaDir:    gomaDir,
		Jobs:       jobs,
		NoGClient:  noGClient,
		runCommand: runCommand,
	}
}

// BinaryPath checks out the source at the testcase's crash revision if
// needed, syncs dependencies, compiles the target, and returns its path.
func (b *SourceBuilder) BinaryPath(ctx context.Context) (string, error) {
	if err := b.checkout(ctx); err != nil {
		return "", err
	}
	if !b.NoGClient {
		if err := b.runCommand(ctx, b.SourceDir, "gclient", "sync"); err != nil {
			return "", cferrors.NewExecutionError("gclient sync", err)
		}
	}
	if err := b.compile(ctx); err != nil {
		return "", err
	}

	target := b.target()
	return filepath.Join(b.SourceDir, "out", "Release", target), nil
}

func (b *SourceBuilder) target() string {
	if b.Target != "" {
		return b.Target
	}
	return buildTargets[b.Kind]
}

func (b *SourceBuilder) checkout(ctx context.Context) error {
	url, ok := repoURLs[b.Kind]
	if !ok {
		return fmt.Errorf("build: unknown builder kind %q", b.Kind)
	}

	if _, err := os.Stat(filepath.Join(b.SourceDir, ".git")); err == nil {
		return b.fetchAndCheckoutRevision(ctx)
	}

	if _, err := git.PlainCloneContext(ctx, b.SourceDir, false, &git.CloneOptions{
		URL: url,
	}); err != nil {
		return cferrors.NewExecutionError("clone "+string(b.Kind), err)
	}

	return b.fetchAndCheckoutRevision(ctx)
}

func (b *SourceBuilder) fetchAndCheckoutRevision(ctx context.Context) error {
	repo, err := git.PlainOpen(b.SourceDir)
	if err != nil {
		return cferrors.NewExecutionError("open source tree", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return cferrors.NewExecutionError("open worktree", err)
	}

	// The crash revision is passed to "git checkout" as a plain decimal
	// number. No commit-position-to-SHA lookup is performed, so the checkout
	// succeeds only where that number names a ref git can resolve.
	if err := b.runCommand(ctx, b.SourceDir, "git", "checkout", fmt.Sprintf("%d", b.Testcase.Revision)); err != nil {
		return cferrors.NewExecutionError("checkout revision", err)
	}
	_ = worktree
	return nil
}

func (b *SourceBuilder) compile(ctx context.Context) error {
	args := []string{string(b.target())}
	if b.Jobs > 0 {
		args = append(args, "-j", fmt.Sprintf("%d", b.Jobs))
	}

	env := os.Environ()
	if b.GomaDir != "" {
		env = append(env, "GOMA_DIR="+b.GomaDir)
	}

	cmd := exec.CommandContext(ctx, "ninja", args...)
	cmd.Dir = filepath.Join(b.SourceDir, "out", "Release")
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return cferrors.NewExecutionError("ninja build", err)
	}
	return nil
}

func runCommand(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
