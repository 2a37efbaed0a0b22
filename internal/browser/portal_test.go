package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterBySubEntity(t *testing.T) {
	links := []resourceLink{
		{href: "https://x/f/2024_odm_factsheet_austria_0.pdf", filename: "2024_odm_factsheet_austria_0.pdf"},
		{href: "https://x/f/2024_odm_questionnaire_austria_0.pdf", filename: "2024_odm_questionnaire_austria_0.pdf"},
		{href: "https://x/f/2024_odm_factsheet_belgium_0.pdf", filename: "2024_odm_factsheet_belgium_0.pdf"},
		{href: "https://x/f/2024_odm_report.pdf", filename: "2024_odm_report.pdf"},
	}

	got := filterBySubEntity(links, "Austria")
	assert.Len(t, got, 2)
	for _, link := range got {
		assert.Contains(t, link.filename, "austria")
	}
}

func TestFilterBySubEntity_Dimension(t *testing.T) {
	links := []resourceLink{
		{href: "https://x/f/2024_odm_policy_recommendations.pdf", filename: "2024_odm_policy_recommendations.pdf"},
		{href: "https://x/f/2024_odm_portal_recommendations.pdf", filename: "2024_odm_portal_recommendations.pdf"},
	}

	got := filterBySubEntity(links, "Policy")
	assert.Len(t, got, 1)
	assert.Contains(t, got[0].filename, "policy")
}

func TestFilterBySubEntity_MultiWordCountry(t *testing.T) {
	links := []resourceLink{
		{href: "https://x/f/2024_odm_factsheet_bosnia_and_herzegovina_0.pdf", filename: "2024_odm_factsheet_bosnia_and_herzegovina_0.pdf"},
	}
	got := filterBySubEntity(links, "Bosnia and Herzegovina")
	assert.Len(t, got, 1)
}

func TestLinkStem(t *testing.T) {
	assert.Equal(t, "report", linkStem(resourceLink{href: "https://x/a/report.pdf"}))
	assert.Equal(t, "named", linkStem(resourceLink{href: "https://x/a/other.pdf", filename: "named.pdf"}))
}

func TestSubEntityFilename(t *testing.T) {
	// Already attributed: left alone.
	assert.Equal(t, "2024_odm_factsheet_austria_0.pdf",
		subEntityFilename("Austria", "2024_odm_factsheet_austria_0.pdf"))

	// Unattributed chart export: prefixed with the derived identifier.
	assert.Equal(t, "austria_chart.png", subEntityFilename("Austria", "chart.png"))

	// No sub-entity scope: untouched.
	assert.Equal(t, "chart.png", subEntityFilename("", "chart.png"))
}
