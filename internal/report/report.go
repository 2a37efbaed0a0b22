// Package report renders validation results as human-readable text. It is a
// pure function of its input: no filesystem, no network, no clock.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"odmcheck/internal/validate"
)

const rule = "================================================================================"

// Render produces the full reconciliation report. Missing entries come
// first per section (highest signal), then extras, then counts; a global
// summary closes the report. An all-empty manifest still renders usably.
func Render(runID string, results []validate.SectionResult) string {
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("DOWNLOAD VALIDATION REPORT\n")
	if runID != "" {
		fmt.Fprintf(&b, "run %s\n", runID)
	}
	b.WriteString(rule + "\n")

	if len(results) == 0 {
		b.WriteString("\nNo expected files declared.\n")
	}

	var totalExpected, totalFound, totalMissing, totalExtra int
	for _, r := range results {
		expected, found, missing, extra := r.Counts()
		totalExpected += expected
		totalFound += found
		totalMissing += missing
		totalExtra += extra
		renderSection(&b, r)
	}

	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&b, "TOTAL   expected %d  found %d  missing %d  extra %d\n",
		totalExpected, totalFound, totalMissing, totalExtra)
	if validate.Complete(results) {
		b.WriteString("RESULT  COMPLETE: every section matched its manifest\n")
	} else {
		b.WriteString("RESULT  INCOMPLETE: missing files listed above\n")
	}
	b.WriteString(rule + "\n")

	return b.String()
}

func renderSection(b *strings.Builder, r validate.SectionResult) {
	expected, found, missing, extra := r.Counts()

	fmt.Fprintf(b, "\n%s\n", r.Section.Name)
	b.WriteString(strings.Repeat("-", len(rule)) + "\n")

	if len(r.Missing) > 0 {
		fmt.Fprintf(b, "  missing (%d):\n", len(r.Missing))
		for i, miss := range r.Missing {
			line := fmt.Sprintf("    %d. %s (%s)", i+1, miss.Entry.Filename, miss.Reason)
			if miss.Reason == validate.Undersized && miss.Artifact != nil {
				line += fmt.Sprintf(" - on disk %s, wanted at least %s",
					humanize.Bytes(uint64(miss.Artifact.Size)),
					humanize.Bytes(uint64(miss.Entry.MinSizeBytes)))
			}
			if miss.Entry.SubEntity != "" {
				line += " [" + miss.Entry.SubEntity + "]"
			}
			b.WriteString(line + "\n")
		}
	}

	if len(r.Extra) > 0 {
		fmt.Fprintf(b, "  extra (%d):\n", len(r.Extra))
		for i, a := range r.Extra {
			fmt.Fprintf(b, "    %d. %s (%s)\n", i+1, a.Name, humanize.Bytes(uint64(a.Size)))
		}
	}

	fmt.Fprintf(b, "  expected %d  found %d  missing %d  extra %d\n",
		expected, found, missing, extra)
	if expected > 0 {
		fmt.Fprintf(b, "  success  %.1f%%\n", float64(len(r.Matched))/float64(expected)*100)
	}

	renderSizeStats(b, r)
}

// renderSizeStats summarizes the artifacts that exist on disk for the
// section: matched files, extras and undersized rejects.
func renderSizeStats(b *strings.Builder, r validate.SectionResult) {
	var artifacts []validate.Artifact
	for _, m := range r.Matched {
		artifacts = append(artifacts, m.Artifact)
	}
	artifacts = append(artifacts, r.Extra...)
	for _, miss := range r.Missing {
		if miss.Artifact != nil {
			artifacts = append(artifacts, *miss.Artifact)
		}
	}
	if len(artifacts) == 0 {
		return
	}

	var total int64
	zeroSize := 0
	formats := make(map[string]int)
	for _, a := range artifacts {
		total += a.Size
		// Empty PDFs are placeholders for proxied resources, not
		// truncation.
		if a.Size == 0 && a.Format() != "pdf" {
			zeroSize++
		}
		name := a.Format()
		if name == "" {
			name = "no extension"
		}
		formats[name]++
	}

	fmt.Fprintf(b, "  total size %s  avg %s\n",
		humanize.Bytes(uint64(total)),
		humanize.Bytes(uint64(total/int64(len(artifacts)))))
	if zeroSize > 0 {
		fmt.Fprintf(b, "  zero-size (non-pdf): %d\n", zeroSize)
	}

	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, "    %-12s %3d file(s)\n", name+":", formats[name])
	}
}
