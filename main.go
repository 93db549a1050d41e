package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cortado/api"
	"cortado/command/segment"
	"cortado/config"
	"cortado/engine"
	"cortado/ffmpeg"
	"cortado/ffprobe"
	"cortado/history"
	"cortado/internal/logging"
	"cortado/internal/timeutil"
	"cortado/models"
	"cortado/orchestrator"
	"cortado/planner"
)

const version = "0.1.0"

func main() {
	// Step 1: Load configuration (CLI flags > config file > defaults)
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.EffectiveLogLevel())

	// Step 2: Ctrl+C and SIGTERM cancel the running job
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DryRun {
		if err := runDryRun(ctx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, log); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\n⚠️  Cut cancelled by user")
			os.Exit(130) // Standard exit code for SIGINT
		}
		fmt.Fprintf(os.Stderr, "\n❌ %v\n", err)
		os.Exit(1)
	}
}

// run boots the engine once and either serves the local API or cuts
// cfg.Input.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	session := engine.NewSession(ffmpeg.New(), logging.WithComponent(log, "engine"))
	defer func() {
		if err := session.Dispose(); err != nil {
			log.WithError(err).Warn("Failed to dispose engine session")
		}
	}()

	if err := session.Boot(ctx, engine.LoadConfig{BinaryPath: cfg.FFmpegPath, WorkDir: cfg.WorkDir}); err != nil {
		return fmt.Errorf("engine unavailable: %w", err)
	}

	// History is best effort; a broken database must not block cutting
	var recorder orchestrator.Recorder
	var lister api.JobLister
	store, err := history.Open(cfg.HistoryPath(), logging.WithComponent(log, "history"))
	if err != nil {
		log.WithError(err).Warn("Job history disabled")
	} else {
		defer store.Close()
		recorder = store
		lister = store
	}

	orch := orchestrator.New(session, ffprobe.NewProber(cfg.FFprobePath), log, orchestrator.Options{
		InputName:  cfg.InputName,
		ClipPrefix: cfg.ClipPrefix,
		Context:    ctx,
		Recorder:   recorder,
	})

	if cfg.Serve {
		return serve(ctx, cfg, orch, lister, log)
	}
	return cutFile(ctx, cfg, orch)
}

func serve(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, lister api.JobLister, log *logrus.Logger) error {
	server := api.NewServer(api.ServerConfig{
		Port:                 cfg.Port,
		Jobs:                 orch,
		History:              lister,
		DefaultSegmentLength: cfg.SegmentLength,
		Logger:               log,
		StartTime:            time.Now(),
		Version:              version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// cutFile runs one job on cfg.Input and writes the clips to cfg.OutputDir.
func cutFile(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator) error {
	startTime := time.Now()

	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                        CORTADO - CUT                           ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Printf("Input:   %s\n", cfg.Input)
	fmt.Printf("Output:  %s\n", cfg.OutputDir)
	fmt.Printf("Clips:   %ds each\n", cfg.SegmentLength)
	fmt.Println()

	source, err := models.NewVideoSourceFromFile(cfg.Input)
	if err != nil {
		return err
	}

	stream, err := orch.StartJob(ctx, source, cfg.SegmentLength)
	if err != nil {
		return fmt.Errorf("failed to start job: %w", err)
	}

	var final models.JobState
	lastPhase := models.PhaseIdle
	for state := range stream {
		final = state
		if state.Phase != lastPhase && state.Phase.IsActive() {
			if lastPhase == models.PhaseExecuting {
				fmt.Println()
			}
			fmt.Printf("  • %s\n", phaseLabel(state.Phase))
			lastPhase = state.Phase
		}
		if state.Phase == models.PhaseExecuting {
			fmt.Printf("\r    %s", progressBar(state.ProgressPercent, 40))
		}
	}
	if lastPhase == models.PhaseExecuting {
		fmt.Println()
	}

	if final.Phase != models.PhaseDone {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("cut failed: %s", final.LastError)
	}

	written, err := writeArtifacts(cfg.OutputDir, final.Artifacts)
	if err != nil {
		return err
	}

	printReport(final, written, time.Since(startTime))
	return nil
}

// writeArtifacts stores every clip under its download name and returns
// the written paths in clip order.
func writeArtifacts(dir string, artifacts []models.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(dir, a.DownloadName)
		if err := os.WriteFile(path, a.Payload, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", a.DownloadName, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printReport(final models.JobState, written []string, elapsed time.Duration) {
	var cuts []int
	if plan, err := planner.Plan(final.DurationSeconds, final.SegmentLength); err == nil {
		cuts = plan.CutTimestamps
	}

	var totalSize int
	for _, a := range final.Artifacts {
		totalSize += a.Size
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	if final.Incomplete() {
		fmt.Println("                  ⚠️  DONE WITH MISSING CLIPS")
	} else {
		fmt.Println("                       ✅ SUCCESS!")
	}
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Source:      %s (%s)\n", final.SourceName, timeutil.FormatSeconds(final.DurationSeconds))
	fmt.Printf("  Clips:       %d of %d\n", len(final.Artifacts), final.ClipCount)
	fmt.Printf("  Size:        %.2f MB\n", float64(totalSize)/(1024*1024))
	fmt.Printf("  Total time:  %.2fs\n", elapsed.Seconds())
	fmt.Println()
	for i, a := range final.Artifacts {
		path := a.DownloadName
		if i < len(written) {
			path = written[i]
		}
		fmt.Printf("  %3d  %s  %s\n", a.Index, timeutil.ClipRange(a.Index, cuts, final.DurationSeconds), path)
	}
	for _, name := range final.Missing {
		fmt.Printf("   --  missing: %s\n", name)
	}
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// runDryRun probes the input and prints the plan and the engine command
// without booting the engine.
func runDryRun(ctx context.Context, cfg *config.Config) error {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("                      DRY RUN MODE")
	fmt.Println("═══════════════════════════════════════════════════════════")
	cfg.PrintConfig(os.Stdout)

	if cfg.Serve {
		fmt.Println("\n✓ Configuration is valid. The server was not started.")
		return nil
	}

	source, err := models.NewVideoSourceFromFile(cfg.Input)
	if err != nil {
		return err
	}
	duration, err := ffprobe.NewProber(cfg.FFprobePath).Probe(ctx, source)
	if err != nil {
		return fmt.Errorf("%w: %w", orchestrator.ErrDurationProbe, err)
	}

	naming := planner.NamingForSource(cfg.ClipPrefix, source.Name)
	plan, err := planner.PlanWithNaming(duration, cfg.SegmentLength, naming)
	if err != nil {
		return err
	}

	cmd := segment.NewCommand(cfg.InputName+naming.Extension, plan)
	fmt.Printf("\nDuration: %s, %d clip(s)\n", timeutil.FormatSeconds(duration), plan.ClipCount)
	for i, name := range plan.ExpectedFilenames {
		fmt.Printf("  %3d  %s  %s\n", i+1, timeutil.ClipRange(i+1, plan.CutTimestamps, duration), name)
	}
	fmt.Printf("\nCommand:\n  %s\n", cmd.DryRun())
	fmt.Println("\n✓ No clips were written.")
	return nil
}

func phaseLabel(p models.Phase) string {
	switch p {
	case models.PhaseProbingDuration:
		return "Measuring duration"
	case models.PhaseLoadingInput:
		return "Loading input into engine"
	case models.PhaseExecuting:
		return "Cutting"
	case models.PhaseCollectingOutputs:
		return "Collecting clips"
	default:
		return string(p)
	}
}

// progressBar renders percent as a fixed-width bar, e.g. [#####.....]  50%.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(".", width-filled), percent)
}
