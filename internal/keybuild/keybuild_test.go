package keybuild

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Deterministic(t *testing.T) {
	labels := []string{"Country profiles", "Österreich", "Chart 10", "  padded  "}
	for _, label := range labels {
		a, err := Build(label)
		require.NoError(t, err)
		b, err := Build(label)
		require.NoError(t, err)
		assert.Equal(t, a, b, "two calls on %q must agree", label)
	}
}

func TestBuild_InvalidLabel(t *testing.T) {
	for _, label := range []string{"", "   ", "\t\n"} {
		_, err := Build(label)
		var invalid *InvalidLabelError
		require.ErrorAs(t, err, &invalid, "label %q", label)
		assert.Equal(t, label, invalid.Label)
	}
}

func TestBuild_IgnoresCaseDiacriticsPunctuation(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"case", "Germany", "germany"},
		{"diacritics", "Österreich", "Osterreich"},
		{"surrounding punctuation", "(Austria)", "Austria"},
		{"whitespace runs", "Bosnia  and   Herzegovina", "Bosnia and Herzegovina"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, err := Build(tt.a)
			require.NoError(t, err)
			kb, err := Build(tt.b)
			require.NoError(t, err)
			assert.Equal(t, ka, kb)
		})
	}
}

func TestBuild_CountryOrdering(t *testing.T) {
	type labeled struct {
		raw string
		key Key
	}
	items := []labeled{{raw: "Germany"}, {raw: "Austria"}, {raw: "Belgium"}}
	for i := range items {
		k, err := Build(items[i].raw)
		require.NoError(t, err)
		items[i].key = k
	}
	sort.Slice(items, func(i, j int) bool { return items[i].key.Less(items[j].key) })

	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.raw
	}
	assert.Equal(t, []string{"Austria", "Belgium", "Germany"}, got)
}

func TestBuild_NumericAwareOrdering(t *testing.T) {
	k2 := MustBuild("Chart 2")
	k10 := MustBuild("Chart 10")
	assert.True(t, k2.Less(k10), "Chart 2 must sort before Chart 10")
}

func TestResourceKey_FactsheetBeforeQuestionnaire(t *testing.T) {
	fact, err := ResourceKey("https://data.europa.eu/files/2024_odm_factsheet_austria_0.pdf")
	require.NoError(t, err)
	quest, err := ResourceKey("https://data.europa.eu/files/2024_odm_questionnaire_austria_0.pdf")
	require.NoError(t, err)
	assert.True(t, fact.Less(quest))
}

func TestResourceKey_GroupsByCountry(t *testing.T) {
	type keyed struct {
		url string
		key Key
	}
	items := []keyed{
		{url: "https://x/2024_odm_questionnaire_belgium_0.pdf"},
		{url: "https://x/2024_odm_factsheet_germany_0.pdf"},
		{url: "https://x/2024_odm_factsheet_austria_0.pdf"},
		{url: "https://x/2024_odm_factsheet_belgium_0.pdf"},
	}
	for i := range items {
		k, err := ResourceKey(items[i].url)
		require.NoError(t, err)
		items[i].key = k
	}
	sort.Slice(items, func(i, j int) bool { return items[i].key.Less(items[j].key) })

	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.url
	}
	assert.Equal(t, []string{
		"https://x/2024_odm_factsheet_austria_0.pdf",
		"https://x/2024_odm_factsheet_belgium_0.pdf",
		"https://x/2024_odm_questionnaire_belgium_0.pdf",
		"https://x/2024_odm_factsheet_germany_0.pdf",
	}, got)
}

func TestResourceKey_UnconventionalNameSortsLast(t *testing.T) {
	conventional, err := ResourceKey("https://x/2024_odm_factsheet_sweden_0.pdf")
	require.NoError(t, err)
	odd, err := ResourceKey("https://x/yearly-summary.pdf")
	require.NoError(t, err)
	assert.Contains(t, string(odd), "/9")
	assert.True(t, conventional.Less(odd))
}

func TestResourceKey_MultiWordCountry(t *testing.T) {
	k, err := ResourceKey("https://x/2024_odm_factsheet_bosnia_and_herzegovina.pdf")
	require.NoError(t, err)
	assert.Equal(t, Key("bosnia_and_herzegovina/0"), k)
}
