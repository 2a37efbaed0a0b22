// Package catalog defines the static per-edition structure of the ODM
// portal: the tabs in visiting order, each tab's acquisition policy and the
// participant-country listing.
package catalog

import (
	"fmt"
	"strings"
)

// Policy selects what the orchestrator acquires for a section.
type Policy int

const (
	// ChartsOnly acquires chart exports directly.
	ChartsOnly Policy = iota
	// ResourcesOnly acquires linked resource files directly.
	ResourcesOnly
	// Both acquires chart exports and resources directly.
	Both
	// PerSubEntity iterates the section's sub-entities (dimensions,
	// countries) and acquires charts and resources for each.
	PerSubEntity
)

func (p Policy) String() string {
	switch p {
	case ChartsOnly:
		return "charts_only"
	case ResourcesOnly:
		return "resources_only"
	case Both:
		return "both"
	case PerSubEntity:
		return "per_sub_entity"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Section is one top-level tab of the portal. Sections are defined per
// edition and never mutated at runtime.
type Section struct {
	Name   string
	Policy Policy
}

// DirName is the on-disk directory name for the section's artifacts.
func (s Section) DirName() string {
	return strings.ReplaceAll(s.Name, " ", "_")
}

// Edition describes one year of the portal.
type Edition struct {
	Year     string
	Sections []Section
	// Dimensions are the sub-entities of the Dimensions tab. They are
	// fixed across editions so far; the country sub-entities come from
	// the participant CSV instead.
	Dimensions []string
}

// SectionNames returns the tab names in visiting order.
func (e Edition) SectionNames() []string {
	names := make([]string, len(e.Sections))
	for i, s := range e.Sections {
		names[i] = s.Name
	}
	return names
}

// Section returns the section with the given name.
func (e Edition) Section(name string) (Section, bool) {
	for _, s := range e.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// For returns the edition definition for a year.
func For(year string) Edition {
	return Edition{
		Year: year,
		Sections: []Section{
			{Name: "Open Data in Europe " + year, Policy: Both},
			{Name: "Recommendations", Policy: ResourcesOnly},
			{Name: "Dimensions", Policy: PerSubEntity},
			{Name: "Country profiles", Policy: PerSubEntity},
			{Name: "Method and resources", Policy: ResourcesOnly},
		},
		Dimensions: []string{"Policy", "Portal", "Quality", "Impact"},
	}
}
