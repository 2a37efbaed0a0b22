package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"odmcheck/internal/acquire"
	"odmcheck/internal/browser"
	"odmcheck/internal/catalog"
	"odmcheck/internal/config"
	"odmcheck/internal/manifest"
	"odmcheck/internal/report"
	"odmcheck/internal/validate"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download every tab's artifacts and validate against the manifest",
	Long: `Runs the full pipeline: clean the output tree, open an authenticated
browser session, acquire each section's artifacts, validate the output tree
against the expected-files manifest and print the reconciliation report.

Exit code 0 when every section is complete, 1 when files are missing,
2 on fatal setup errors (bad config, unreadable manifest, dead session).`,
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	started := time.Now()
	runID := uuid.NewString()[:8]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	edition := catalog.For(cfg.Edition)

	// Nothing downstream is meaningful without a manifest, so load it
	// before any browser work.
	store := manifest.NewStore(cfg.ManifestDir, logger)
	m, err := store.Load(cfg.Edition, edition.SectionNames())
	if err != nil {
		return err
	}

	countries, err := catalog.LoadCountries(cfg.DataDir, cfg.Edition)
	if err != nil {
		return err
	}

	if err := cleanOutput(cfg.OutputDir, edition); err != nil {
		return err
	}

	logger.Info("starting run",
		zap.String("run_id", runID),
		zap.String("edition", cfg.Edition),
		zap.String("environment", cfg.Environment),
		zap.String("url", cfg.PortalURL()))

	session, err := browser.NewSession(cfg, edition, countries, logger)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	orch := acquire.NewOrchestrator(edition, session, logger)
	runs, err := orch.Run(cmd.Context())
	if err != nil {
		// A lost session ends acquisition early, but the report over
		// the partial output is still the run's source of truth.
		logger.Error("acquisition aborted", zap.Error(err))
	}
	logAttempts(runs)

	results, verr := validate.Validate(m, edition, cfg.OutputDir)
	if verr != nil {
		return verr
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Render(runID, results))
	printVerdict(cmd, validate.Complete(results))
	logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Duration("took", time.Since(started)))

	if err != nil {
		return err
	}
	if !validate.Complete(results) {
		return errIncomplete
	}
	return nil
}

// cleanOutput removes the regular files directly under every section
// directory so artifacts from a previous run cannot mask missing downloads.
// Subdirectories and unknown directories are left alone.
func cleanOutput(outputRoot string, edition catalog.Edition) error {
	for _, section := range edition.Sections {
		dir := filepath.Join(outputRoot, section.DirName())
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("clean %s: %w", dir, err)
		}
		for _, de := range entries {
			if !de.Type().IsRegular() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, de.Name())); err != nil {
				return fmt.Errorf("clean %s: %w", dir, err)
			}
		}
	}
	return nil
}

// logAttempts summarizes the acquisition phase into the structured log.
func logAttempts(runs []acquire.SectionRun) {
	for _, run := range runs {
		ok, failed := 0, 0
		for _, a := range run.Attempts {
			if a.OK() {
				ok++
			} else {
				failed++
			}
		}
		logger.Info("section acquisition summary",
			zap.String("section", run.Section.Name),
			zap.String("state", run.State.String()),
			zap.Int("requests_ok", ok),
			zap.Int("requests_failed", failed),
			zap.Bool("open_failed", run.OpenErr != nil))
	}
}
