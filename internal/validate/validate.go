// Package validate reconciles the on-disk output tree against a manifest of
// expected artifacts. It is the single authority on run completeness: the
// orchestrator records what it attempted, the validator decides what exists.
package validate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"odmcheck/internal/catalog"
	"odmcheck/internal/manifest"
)

// Reason explains why an expected entry is reported missing.
type Reason string

const (
	// NotFound means no on-disk artifact matched the entry.
	NotFound Reason = "MISSING"
	// Undersized means an artifact matched but was smaller than the
	// entry's declared minimum, so it is not accepted as present. This
	// keeps zero-byte or truncated downloads from counting as success.
	Undersized Reason = "UNDERSIZED"
)

// Artifact is an observed file directly under a section's output directory.
type Artifact struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Format returns the lowercase extension without the dot, or "" if none.
func (a Artifact) Format() string {
	ext := filepath.Ext(a.Name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// Match pairs an expected entry with the artifact that satisfied it.
type Match struct {
	Entry    manifest.Entry
	Artifact Artifact
}

// Missing is an expected entry with no accepted artifact.
type Missing struct {
	Entry  manifest.Entry
	Reason Reason
	// Artifact is set for Undersized: the file that was rejected.
	Artifact *Artifact
}

// SectionResult is the per-section reconciliation outcome. Matched, Missing
// and Extra are disjoint.
type SectionResult struct {
	Section  catalog.Section
	Matched  []Match
	Missing  []Missing
	Extra    []Artifact
	Complete bool
}

// Counts returns (expected, found, missing, extra) for the section.
func (r SectionResult) Counts() (expected, found, missing, extra int) {
	expected = len(r.Matched) + len(r.Missing)
	found = len(r.Matched) + len(r.Extra)
	for _, m := range r.Missing {
		if m.Artifact != nil {
			found++ // undersized files exist on disk even though rejected
		}
	}
	return expected, found, len(r.Missing), len(r.Extra)
}

// Complete reports whether every section's result is complete.
func Complete(results []SectionResult) bool {
	for _, r := range results {
		if !r.Complete {
			return false
		}
	}
	return true
}

// Validate compares the manifest's expectations against the files under
// outputRoot. Sections follow manifest declaration order; files are sorted by
// name before matching, so two runs over the same disk state are identical.
// A section directory that does not exist yields zero artifacts, not an
// error.
func Validate(m *manifest.Manifest, edition catalog.Edition, outputRoot string) ([]SectionResult, error) {
	results := make([]SectionResult, 0, len(m.Sections()))

	for _, name := range m.Sections() {
		section, ok := edition.Section(name)
		if !ok {
			section = catalog.Section{Name: name}
		}

		artifacts, err := listArtifacts(filepath.Join(outputRoot, section.DirName()))
		if err != nil {
			return nil, fmt.Errorf("validate %q: %w", name, err)
		}

		results = append(results, reconcile(section, m.Entries(name), artifacts))
	}

	return results, nil
}

// listArtifacts returns the regular files directly under dir, sorted by
// name. Subdirectories are not descended into.
func listArtifacts(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, de := range entries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue // removed between listing and stat
			}
			return nil, err
		}
		artifacts = append(artifacts, artifactFromInfo(filepath.Join(dir, de.Name()), info))
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

func artifactFromInfo(path string, info fs.FileInfo) Artifact {
	return Artifact{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// reconcile matches expected entries against artifacts. Exact filename wins;
// a declared pattern is the fallback. Each artifact is claimed at most once,
// in entry declaration order.
func reconcile(section catalog.Section, entries []manifest.Entry, artifacts []Artifact) SectionResult {
	result := SectionResult{Section: section}
	claimed := make([]bool, len(artifacts))

	for _, entry := range entries {
		idx := findMatch(entry, artifacts, claimed)
		if idx < 0 {
			result.Missing = append(result.Missing, Missing{Entry: entry, Reason: NotFound})
			continue
		}
		claimed[idx] = true
		artifact := artifacts[idx]

		if entry.MinSizeBytes > 0 && artifact.Size < entry.MinSizeBytes {
			a := artifact
			result.Missing = append(result.Missing, Missing{Entry: entry, Reason: Undersized, Artifact: &a})
			continue
		}
		result.Matched = append(result.Matched, Match{Entry: entry, Artifact: artifact})
	}

	for i, artifact := range artifacts {
		if !claimed[i] {
			result.Extra = append(result.Extra, artifact)
		}
	}

	result.Complete = len(result.Missing) == 0
	return result
}

// findMatch returns the index of the first unclaimed artifact satisfying the
// entry, or -1. Patterns were compile-checked at manifest load; a pattern
// must cover the whole filename.
func findMatch(entry manifest.Entry, artifacts []Artifact, claimed []bool) int {
	for i, a := range artifacts {
		if !claimed[i] && a.Name == entry.Filename {
			return i
		}
	}
	if entry.Pattern == "" {
		return -1
	}

	re, err := regexp.Compile("^(?:" + entry.Pattern + ")$")
	if err != nil {
		return -1
	}
	for i, a := range artifacts {
		if !claimed[i] && re.MatchString(a.Name) {
			return i
		}
	}
	return -1
}
