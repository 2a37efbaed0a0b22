package acquire

import (
	"context"
	"errors"
	"fmt"

	"odmcheck/internal/catalog"
)

// ErrSessionLost marks an unrecoverable browser-session failure (rejected
// auth, dead connection). The orchestrator aborts remaining sections when a
// request error wraps it; every other error stays scoped to its artifact.
var ErrSessionLost = errors.New("browser session lost")

// Kind distinguishes the two artifact families the portal offers.
type Kind int

const (
	// Chart is an exported chart rendering or data file.
	Chart Kind = iota
	// Resource is a linked downloadable document.
	Resource
)

func (k Kind) String() string {
	if k == Chart {
		return "chart"
	}
	return "resource"
}

// Chart export options offered by the portal's Save & share menu.
var ChartExportOptions = []string{
	"Download image - PNG",
	"Download image - JPEG",
	"Download data - XLSX",
	"Download data - JSON",
}

// ArtifactDescriptor identifies one acquisition request within a section: a
// whole artifact kind, optionally scoped to one sub-entity. A single request
// may save several files (a chart request saves every export option).
type ArtifactDescriptor struct {
	Kind Kind
	// SubEntity is the raw sub-entity label the request is scoped to,
	// empty for section-level requests.
	SubEntity string
}

func (d ArtifactDescriptor) String() string {
	if d.SubEntity == "" {
		return d.Kind.String()
	}
	return fmt.Sprintf("%s/%s", d.SubEntity, d.Kind)
}

// Collaborator is the browser-side capability the orchestrator drives. It
// owns a single shared page, so calls are never issued concurrently.
type Collaborator interface {
	// OpenSection navigates the shared page to a section's tab.
	OpenSection(ctx context.Context, section catalog.Section) error

	// ListSubEntities enumerates the raw sub-entity labels a PerSubEntity
	// section offers, in UI-encounter order.
	ListSubEntities(ctx context.Context, section catalog.Section) ([]string, error)

	// AcquireArtifact executes one acquisition request and returns the
	// paths of the files it saved.
	AcquireArtifact(ctx context.Context, section catalog.Section, desc ArtifactDescriptor) ([]string, error)
}
