package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var knownSections = []string{"Recommendations", "Dimensions", "Country profiles"}

func writeManifest(t *testing.T, dir, edition, body string) {
	t.Helper()
	path := filepath.Join(dir, "expected_files_"+edition+".json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "2024", `{
		"Recommendations": [
			{"filename": "resource1.pdf", "minSizeBytes": 1000}
		],
		"Dimensions": [
			{"filename": "policy.xlsx", "subEntity": "policy"},
			{"filename": "portal.xlsx", "subEntity": "portal"}
		]
	}`)

	store := NewStore(dir, zap.NewNop())
	m, err := store.Load("2024", knownSections)
	require.NoError(t, err)

	assert.Equal(t, "2024", m.Edition)
	assert.Equal(t, []string{"Recommendations", "Dimensions"}, m.Sections())
	assert.Equal(t, 3, m.TotalEntries())

	recs := m.Entries("Recommendations")
	require.Len(t, recs, 1)
	assert.Equal(t, "resource1.pdf", recs[0].Filename)
	assert.Equal(t, int64(1000), recs[0].MinSizeBytes)

	assert.Nil(t, m.Entries("Country profiles"))
}

func TestLoad_NotFound(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())
	_, err := store.Load("2031", knownSections)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "2031", notFound.Edition)
}

func TestLoad_ParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "2024", `{"Recommendations": [{`)

	store := NewStore(dir, zap.NewNop())
	_, err := store.Load("2024", knownSections)
	var parse *ParseError
	require.ErrorAs(t, err, &parse)
}

func TestLoad_DuplicateEntry(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "2024", `{
		"Recommendations": [
			{"filename": "a.pdf"},
			{"filename": "a.pdf"}
		]
	}`)

	store := NewStore(dir, zap.NewNop())
	_, err := store.Load("2024", knownSections)
	var parse *ParseError
	require.ErrorAs(t, err, &parse)
	assert.Contains(t, parse.Error(), "duplicate")
}

func TestLoad_SameFilenameDifferentSubEntity(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "2024", `{
		"Country profiles": [
			{"filename": "factsheet.pdf", "subEntity": "austria"},
			{"filename": "factsheet.pdf", "subEntity": "belgium"}
		]
	}`)

	store := NewStore(dir, zap.NewNop())
	m, err := store.Load("2024", knownSections)
	require.NoError(t, err)
	assert.Len(t, m.Entries("Country profiles"), 2)
}

func TestLoad_UnknownSectionWarnsAndDrops(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "2024", `{
		"Recommendations": [{"filename": "a.pdf"}],
		"Retired tab": [{"filename": "b.pdf"}]
	}`)

	core, logs := observer.New(zap.WarnLevel)
	store := NewStore(dir, zap.New(core))
	m, err := store.Load("2024", knownSections)
	require.NoError(t, err)

	assert.Equal(t, []string{"Recommendations"}, m.Sections())
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Contains(t, entry.Message, "unknown manifest section")
	assert.Equal(t, "Retired tab", entry.ContextMap()["section"])
}

func TestLoad_MissingFilename(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "2024", `{"Recommendations": [{"minSizeBytes": 5}]}`)

	store := NewStore(dir, zap.NewNop())
	_, err := store.Load("2024", knownSections)
	var parse *ParseError
	require.ErrorAs(t, err, &parse)
	assert.Contains(t, parse.Error(), "missing filename")
}
