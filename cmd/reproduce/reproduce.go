package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/build"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/crashclient"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/logger"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/wiring"
)

const clusterfuzzDomain = "clusterfuzz.com"

type reproduceOptions struct {
	current         string
	build           string
	disableGoma     bool
	jobs            int
	disableGClient  bool
	iterations      int
	disableBlackbox bool
	targetArgs      string
}

func newReproduceCmd(root *rootFlags) *cobra.Command {
	opts := &reproduceOptions{}

	cmd := &cobra.Command{
		Use:   "reproduce <testcase-id>",
		Short: "Download a testcase and replay it against a built or downloaded binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReproduce(cmd.Context(), root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.current, "current", "", "path to an existing source checkout to reuse")
	cmd.Flags().StringVar(&opts.build, "build", "chromium", `build mode: "download" or a source-checkout build group ("chromium", "standalone")`)
	cmd.Flags().BoolVar(&opts.disableGoma, "disable-goma", false, "do not accelerate the build with goma")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "parallel build job count (0 selects the builder's default)")
	cmd.Flags().BoolVar(&opts.disableGClient, "disable-gclient", false, "skip gclient sync before building")
	cmd.Flags().IntVar(&opts.iterations, "iterations", 10, "number of times to replay the testcase")
	cmd.Flags().BoolVar(&opts.disableBlackbox, "disable-blackbox", false, "do not run the reproduction under blackbox")
	cmd.Flags().StringVar(&opts.targetArgs, "target-args", "", "override the testcase's recorded reproduction arguments")

	return cmd
}

func runReproduce(ctx context.Context, root *rootFlags, opts *reproduceOptions, testcaseID string) error {
	level := "info"
	if root.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return fmt.Errorf("reproduce: create logger: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("reproduce: resolve home directory: %w", err)
	}
	clusterfuzzDir := filepath.Join(home, ".clusterfuzz")
	authCachePath := filepath.Join(clusterfuzzDir, "auth_header")
	catalogPath := filepath.Join(clusterfuzzDir, "resources", "supported_job_types.yml")

	client := crashclient.New(clusterfuzzDomain, authCachePath, log)

	env := wiring.Environment{
		Client:         client,
		Downloader:     client,
		ArchiveFetcher: build.NewHTTPFetcher(),
		CatalogPath:    catalogPath,
		ClusterfuzzDir: clusterfuzzDir,
		Log:            log,
	}

	graph := wiring.Build(ctx, env)

	reproduced, err := graph.Run(wiring.Inputs{
		TestcaseID:      testcaseID,
		Current:         opts.current,
		Build:           opts.build,
		DisableGoma:     opts.disableGoma,
		Jobs:            opts.jobs,
		DisableGClient:  opts.disableGClient,
		Iterations:      opts.iterations,
		DisableBlackbox: opts.disableBlackbox,
		TargetArgs:      opts.targetArgs,
	})
	if err != nil {
		return err
	}

	if reproduced {
		log.Info("crash reproduced")
	} else {
		log.Info("reproduction completed without reproducing the crash")
	}
	return nil
}
