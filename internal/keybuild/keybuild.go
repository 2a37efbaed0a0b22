// Package keybuild derives canonical sort/group keys from raw UI labels and
// filename fragments, so that artifacts are produced and validated in a
// stable, human-predictable order regardless of how the portal renders them.
package keybuild

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key is an opaque comparable key. Keys order correctly under the natural
// string ordering: lexical comparison of two keys equals the visually
// expected ordering of the labels they were built from.
type Key string

// Less reports whether k sorts before other.
func (k Key) Less(other Key) bool { return k < other }

// InvalidLabelError reports a label that no key can be derived from.
type InvalidLabelError struct {
	Label string
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("keybuild: invalid label %q: empty or whitespace-only", e.Label)
}

// digitRunWidth is the zero-pad width applied to digit runs so numeric
// order equals lexical order ("Chart 2" sorts before "Chart 10").
const digitRunWidth = 12

// stripMarks removes Unicode combining marks after NFD decomposition,
// turning e.g. "Österreich" into "Osterreich".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var digitRun = regexp.MustCompile(`\d+`)

// Build derives the canonical key for a raw label.
//
// The key ignores case, diacritics, surrounding punctuation and internal
// whitespace runs; two labels differing only in those produce an equal key
// and are treated as the same group by callers. Digit runs are zero-padded
// so numeric ordering is preserved under lexical comparison. Build is pure
// and deterministic; empty or whitespace-only input is the only error.
func Build(raw string) (Key, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &InvalidLabelError{Label: raw}
	}

	s, _, err := transform.String(stripMarks, raw)
	if err != nil {
		// Remove cannot fail on valid UTF-8; fall back to the raw label.
		s = raw
	}
	s = strings.ToLower(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
	s = strings.Join(strings.Fields(s), "_")

	s = digitRun.ReplaceAllStringFunc(s, func(d string) string {
		d = strings.TrimLeft(d, "0")
		if len(d) >= digitRunWidth {
			return d
		}
		return strings.Repeat("0", digitRunWidth-len(d)) + d
	})

	if s == "" {
		return "", &InvalidLabelError{Label: raw}
	}
	return Key(s), nil
}

// MustBuild is Build for static catalog labels known to be valid.
func MustBuild(raw string) Key {
	k, err := Build(raw)
	if err != nil {
		panic(err)
	}
	return k
}

// resourceName matches ODM resource filenames of the form
// "2024_odm_factsheet_austria_0.pdf".
var (
	resourceName    = regexp.MustCompile(`(?i)^\d{4}_odm_(factsheet|questionnaire)_(.+)$`)
	trailingCounter = regexp.MustCompile(`_[a-z]*\d[a-z0-9]*$`)
)

// ResourceKey derives the ordering key for an ODM resource URL: resources
// group by country and, within a country, factsheet precedes questionnaire.
// URLs that do not follow the portal naming convention sort after all that
// do, keyed by their whole stem.
func ResourceKey(rawURL string) (Key, error) {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	stem := strings.TrimSuffix(name, path.Ext(name))

	m := resourceName.FindStringSubmatch(stem)
	if m == nil {
		k, err := Build(stem)
		if err != nil {
			return "", err
		}
		return k + "/9", nil
	}

	docType := strings.ToLower(m[1])
	country := strings.ToLower(m[2])
	// Trailing counters like "_0" are upload artifacts, not identity.
	country = trailingCounter.ReplaceAllString(country, "")

	k, err := Build(country)
	if err != nil {
		return "", err
	}
	order := "0"
	if docType == "questionnaire" {
		order = "1"
	}
	return k + "/" + Key(order), nil
}
