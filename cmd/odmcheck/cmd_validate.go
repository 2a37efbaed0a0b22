package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"odmcheck/internal/catalog"
	"odmcheck/internal/config"
	"odmcheck/internal/manifest"
	"odmcheck/internal/report"
	"odmcheck/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an existing output tree without touching the browser",
	Long: `Reconciles the files already on disk against the expected-files manifest
and prints the report. No browser is launched and no credentials are needed;
use this to re-check a previous run's output.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	edition := catalog.For(cfg.Edition)
	store := manifest.NewStore(cfg.ManifestDir, logger)
	m, err := store.Load(cfg.Edition, edition.SectionNames())
	if err != nil {
		return err
	}

	results, err := validate.Validate(m, edition, cfg.OutputDir)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Render("", results))
	printVerdict(cmd, validate.Complete(results))

	if !validate.Complete(results) {
		return errIncomplete
	}
	return nil
}

var (
	passStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("15")).Background(lipgloss.Color("160"))
)

func printVerdict(cmd *cobra.Command, complete bool) {
	if complete {
		fmt.Fprintln(cmd.OutOrStdout(), passStyle.Render("COMPLETE"))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), failStyle.Render("INCOMPLETE"))
}
