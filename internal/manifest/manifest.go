// Package manifest loads the declared ground truth of expected artifacts per
// section for a given edition of the portal.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"
)

// Entry is one expected-file declaration inside a manifest.
type Entry struct {
	Filename     string `json:"filename"`
	Pattern      string `json:"pattern,omitempty"`
	MinSizeBytes int64  `json:"minSizeBytes,omitempty"`
	SubEntity    string `json:"subEntity,omitempty"`
}

// Manifest is the immutable expected-file set for one edition. Sections keep
// the order they were declared in; entries keep their in-section order.
type Manifest struct {
	Edition  string
	sections []string
	entries  map[string][]Entry
}

// Sections returns section names in declaration order.
func (m *Manifest) Sections() []string {
	out := make([]string, len(m.sections))
	copy(out, m.sections)
	return out
}

// Entries returns the expected entries for a section, in declaration order.
// A section absent from the manifest yields nil.
func (m *Manifest) Entries(section string) []Entry {
	src, ok := m.entries[section]
	if !ok {
		return nil
	}
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// TotalEntries counts expected files across all sections.
func (m *Manifest) TotalEntries() int {
	n := 0
	for _, es := range m.entries {
		n += len(es)
	}
	return n
}

// NotFoundError reports a missing manifest document for an edition.
type NotFoundError struct {
	Edition string
	Path    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("manifest: no document for edition %s at %s", e.Edition, e.Path)
}

// ParseError reports a structurally invalid manifest document.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest: invalid document %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Store locates and loads manifest documents from a directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore returns a store reading from dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Path returns the document path for an edition.
func (s *Store) Path(edition string) string {
	return filepath.Join(s.dir, fmt.Sprintf("expected_files_%s.json", edition))
}

// Load reads the manifest for an edition. Top-level keys not present in
// knownSections are dropped with a warning so manifest drift does not fail
// the run. Loading never touches the output tree.
func (s *Store) Load(edition string, knownSections []string) (*Manifest, error) {
	path := s.Path(edition)

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Edition: edition, Path: path}
		}
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	var doc map[string][]Entry
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	known := make(map[string]bool, len(knownSections))
	for _, name := range knownSections {
		known[name] = true
	}

	m := &Manifest{
		Edition: edition,
		entries: make(map[string][]Entry, len(doc)),
	}

	// JSON object keys decode in map order; present sections in the
	// caller's declared order so loading stays deterministic.
	for _, name := range knownSections {
		entries, ok := doc[name]
		if !ok {
			continue
		}
		if err := checkUnique(name, entries); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		m.sections = append(m.sections, name)
		m.entries[name] = entries
		delete(doc, name)
	}

	unknown := make([]string, 0, len(doc))
	for name := range doc {
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		s.logger.Warn("ignoring unknown manifest section",
			zap.String("edition", edition),
			zap.String("section", name),
			zap.Int("entries", len(doc[name])))
	}

	return m, nil
}

// checkUnique enforces that (subEntity, filename) is unique within a
// section, that every entry declares a filename, and that declared patterns
// compile, so downstream matching never has to second-guess the document.
func checkUnique(section string, entries []Entry) error {
	seen := make(map[[2]string]bool, len(entries))
	for i, e := range entries {
		if e.Filename == "" {
			return fmt.Errorf("section %q entry %d: missing filename", section, i)
		}
		if e.Pattern != "" {
			if _, err := regexp.Compile(e.Pattern); err != nil {
				return fmt.Errorf("section %q entry %q: bad pattern: %w", section, e.Filename, err)
			}
		}
		key := [2]string{e.SubEntity, e.Filename}
		if seen[key] {
			return fmt.Errorf("section %q: duplicate entry %q (sub-entity %q)", section, e.Filename, e.SubEntity)
		}
		seen[key] = true
	}
	return nil
}
