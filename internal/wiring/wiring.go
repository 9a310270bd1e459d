// Package wiring assembles the reproduce command's dependency graph: each
// node from reproduce.py becomes one engine.Registry.Bind call, wired
// together exactly as the original functions declared their dependencies.
package wiring

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/build"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/crashtest"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/engine"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/job"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/logger"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/reproducer"
	cferrors "github.com/alexisbeaulieu97/clusterfuzz-reproduce/pkg/errors"
)

// TestcaseFetcher retrieves testcase metadata. Satisfied by *crashclient.Client;
// kept as a narrow interface here so the graph can be wired against a fake
// in tests without a live ClusterFuzz session.
type TestcaseFetcher interface {
	FetchTestcase(ctx context.Context, id string) (*crashtest.Testcase, error)
}

// TestcaseDownloader retrieves a testcase's recorded input archive. Satisfied
// by *crashclient.Client; kept narrow for the same reason as TestcaseFetcher.
type TestcaseDownloader interface {
	DownloadArchive(ctx context.Context, testcaseID int64, destDir string) (string, error)
}

// Environment bundles the collaborators every node needs that aren't
// supplied as engine inputs: the HTTP client, the job catalog location, and
// the logger.
type Environment struct {
	Client         TestcaseFetcher
	Downloader     TestcaseDownloader
	ArchiveFetcher build.ArchiveFetcher
	CatalogPath    string
	ClusterfuzzDir string
	Log            *logger.Logger
}

// Graph is the fully-wired registry plus the handle to its terminal node.
type Graph struct {
	Registry *engine.Registry
	Target   *engine.Descriptor
}

// Build constructs the reproduce command's dependency graph.
func Build(ctx context.Context, env Environment) *Graph {
	reg := engine.NewRegistry()

	getTestcase := reg.Bind(func(testcaseID string) (*crashtest.Testcase, error) {
		return env.Client.FetchTestcase(ctx, testcaseID)
	}, engine.Deps(engine.NewInput("testcase_id")), engine.Priority(20))

	getTestcasePath := reg.Bind(func(tc *crashtest.Testcase) (string, error) {
		return tc.Download(ctx, env.Downloader, env.ClusterfuzzDir)
	}, engine.Deps(getTestcase), engine.Priority(20))

	shouldEnableGoma := reg.Bind(func(disableGoma bool, buildMode string) (bool, error) {
		return build.ShouldEnableGoma(disableGoma, buildMode), nil
	}, engine.Deps(engine.NewInput("disable_goma"), engine.NewInput("build")))

	getGomaDir := reg.Bind(func(gomaEnabled bool) (string, error) {
		if !gomaEnabled {
			return "", nil
		}
		return build.GomaDir()
	}, engine.Deps(shouldEnableGoma), engine.Priority(20))

	ensureGoma := reg.Bind(func(gomaEnabled bool, gomaDir string) (bool, error) {
		if !gomaEnabled {
			return false, nil
		}
		if err := build.EnsureGoma(ctx, gomaDir); err != nil {
			return false, err
		}
		return true, nil
	}, engine.Deps(shouldEnableGoma, getGomaDir))

	getSupportedJobs := reg.Bind(func() (*job.Catalog, error) {
		return job.ParseCatalog(env.CatalogPath)
	}, nil)

	getBinaryDefinition := reg.Bind(func(tc *crashtest.Testcase, buildMode string, catalog *job.Catalog) (job.Definition, error) {
		def, ok := catalog.Lookup(tc.JobType, buildMode)
		if !ok {
			return job.Definition{}, cferrors.NewJobTypeError(tc.JobType, "not present in the supported job catalog")
		}
		return def, nil
	}, engine.Deps(getTestcase, engine.NewInput("build"), getSupportedJobs))

	printWarning := reg.Bind(func(tc *crashtest.Testcase) (bool, error) {
		if !tc.Reproducible {
			env.Log.Warn("testcase is marked unreproducible; it might not reproduce correctly here")
		}
		if len(tc.Gestures) > 0 {
			env.Log.Warn("testcase uses gestures and is not guaranteed to reproduce correctly")
		}
		return true, nil
	}, engine.Deps(getTestcase), engine.Priority(0))

	getBinaryProvider := reg.Bind(func(
		def job.Definition, tc *crashtest.Testcase, gomaDir string, gomaStarted bool,
		disableGClient bool, jobs int, buildMode string, sourceDir string,
	) (build.Provider, error) {
		if buildMode == "download" {
			binaryName := def.BinaryName
			if binaryName == "" {
				binaryName = defaultBinaryName(tc)
			}
			return &build.Downloaded{
				TestcaseID: tc.ID,
				BuildURL:   tc.BuildURL,
				BinaryName: binaryName,
				Fetcher:    env.ArchiveFetcher,
				CacheDir:   tc.LocalDir(env.ClusterfuzzDir),
			}, nil
		}
		kind := build.Kind(def.Builder)
		return build.NewSourceBuilder(kind, tc, sourceDir, gomaDir, jobs, disableGClient), nil
	}, engine.Deps(
		getBinaryDefinition, getTestcase, getGomaDir, ensureGoma,
		engine.NewInput("disable_gclient"), engine.NewInput("j"),
		engine.NewInput("build"), engine.NewInput("current"),
	))

	getBlackboxPath := reg.Bind(func() (string, error) {
		return reproducer.CheckBinary("blackbox")
	}, nil)

	getGclientPath := reg.Bind(func() (string, error) {
		return reproducer.CheckBinary("gclient")
	}, nil)

	getXdotoolPath := reg.Bind(func(tc *crashtest.Testcase) (string, error) {
		return reproducer.XdotoolPath(len(tc.Gestures) > 0)
	}, engine.Deps(getTestcase))

	getBinaryPath := reg.Bind(func(provider build.Provider) (string, error) {
		return provider.BinaryPath(ctx)
	}, engine.Deps(getBinaryProvider))

	reproduce := reg.Bind(func(
		provider build.Provider, binaryPath string, tc *crashtest.Testcase, testcasePath string, def job.Definition,
		_ bool, blackboxPath, gclientPath, xdotoolPath string,
		disableBlackbox bool, targetArgs string, iterations int,
	) (bool, error) {
		_ = gclientPath
		r := buildReproducer(def, binaryPath, testcasePath, tc, disableBlackbox, targetArgs, blackboxPath, xdotoolPath)
		err := r.Reproduce(ctx, iterations)
		env.Log.Info(fmt.Sprintf("reproduction finished for testcase %d", tc.ID))
		return err == nil, err
	}, engine.Deps(
		getBinaryProvider, getBinaryPath, getTestcase, getTestcasePath, getBinaryDefinition, printWarning,
		getBlackboxPath, getGclientPath, getXdotoolPath,
		engine.NewInput("disable_blackbox"), engine.NewInput("target_args"), engine.NewInput("iterations"),
	))

	return &Graph{Registry: reg, Target: reproduce}
}

func buildReproducer(def job.Definition, binaryPath, testcasePath string, tc *crashtest.Testcase, disableBlackbox bool, targetArgs, blackboxPath, xdotoolPath string) reproducer.Reproducer {
	base := reproducer.Base{
		BinaryPath:      binaryPath,
		TestcasePath:    testcasePath,
		Testcase:        tc,
		Sanitizer:       def.Sanitizer,
		TargetArgs:      targetArgs,
		BlackboxPath:    blackboxPath,
		XdotoolPath:     xdotoolPath,
		DisableBlackbox: disableBlackbox,
	}

	switch def.Reproducer {
	case "LibfuzzerJob":
		return &reproducer.LibfuzzerJob{Base: base}
	case "LinuxChromeJob":
		effectiveBlackbox := blackboxPath
		if disableBlackbox {
			effectiveBlackbox = ""
		}
		base.BlackboxPath = effectiveBlackbox
		return &reproducer.LinuxChromeJob{Base: base, UseGestures: len(tc.Gestures) > 0}
	default:
		return &base
	}
}

func defaultBinaryName(tc *crashtest.Testcase) string {
	return filepath.Base(tc.AbsolutePath)
}

// Inputs is the set of externally supplied parameters the reproduce command
// accepts, mirroring execute()'s cmd.Input list.
type Inputs struct {
	TestcaseID      string
	Current         string
	Build           string
	DisableGoma     bool
	Jobs            int
	DisableGClient  bool
	Iterations      int
	DisableBlackbox bool
	TargetArgs      string
}

// Run executes the graph to completion against the supplied inputs. It
// reports true whenever the reproduce node finished without an execution
// error, including a run in which the binary exited cleanly on every
// iteration; it does not distinguish a crash from a clean exit.
func (g *Graph) Run(in Inputs) (bool, error) {
	result, err := engine.Execute(g.Registry, engine.Func(g.Target),
		engine.NewInput("testcase_id").With(in.TestcaseID),
		engine.NewInput("current").With(in.Current),
		engine.NewInput("build").With(in.Build),
		engine.NewInput("disable_goma").With(in.DisableGoma),
		engine.NewInput("j").With(in.Jobs),
		engine.NewInput("disable_gclient").With(in.DisableGClient),
		engine.NewInput("iterations").With(in.Iterations),
		engine.NewInput("disable_blackbox").With(in.DisableBlackbox),
		engine.NewInput("target_args").With(in.TargetArgs),
	)
	if err != nil {
		return false, err
	}
	reproduced, _ := result.(bool)
	return reproduced, nil
}
