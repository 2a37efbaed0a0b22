// Package acquire orchestrates per-section artifact acquisition against the
// browser collaborator. The orchestrator isolates per-artifact failures --
// one missing chart must never prevent the rest of the run, because the
// validator, not the orchestrator, is the authority on completeness.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"odmcheck/internal/catalog"
	"odmcheck/internal/keybuild"
)

// State tracks a section through its acquisition lifecycle.
type State int

const (
	NotStarted State = iota
	InProgress
	// Done means every planned request was attempted, success or caught
	// failure. There is no retry state; retries belong to the
	// collaborator's own requests.
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Attempt records the outcome of one acquisition request.
type Attempt struct {
	Descriptor ArtifactDescriptor
	Saved      []string
	Err        error
}

// OK reports whether the request succeeded.
func (a Attempt) OK() bool { return a.Err == nil }

// SectionRun is the retained per-section outcome: the state reached and the
// list of (request, success) records. Files on disk are the real result.
type SectionRun struct {
	Section  catalog.Section
	State    State
	Attempts []Attempt
	// OpenErr is set when the section's tab could not be opened; no
	// requests are planned in that case.
	OpenErr error
}

// Orchestrator drives the collaborator through every section of an edition,
// strictly sequentially: sections share a single browser page.
type Orchestrator struct {
	edition catalog.Edition
	collab  Collaborator
	logger  *zap.Logger
}

// NewOrchestrator wires an orchestrator for one edition.
func NewOrchestrator(edition catalog.Edition, collab Collaborator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{edition: edition, collab: collab, logger: logger}
}

// Run visits every section in catalog order and executes its acquisition
// policy. Per-artifact failures are recorded and logged, never propagated.
// Only a session-fatal error (wrapping ErrSessionLost) aborts the remaining
// sections; the runs collected so far are still returned so validation can
// proceed over partial output.
func (o *Orchestrator) Run(ctx context.Context) ([]SectionRun, error) {
	runs := make([]SectionRun, len(o.edition.Sections))
	for i, section := range o.edition.Sections {
		runs[i] = SectionRun{Section: section, State: NotStarted}
	}

	for i := range runs {
		section := runs[i].Section
		runs[i].State = InProgress
		o.logger.Info("section started",
			zap.String("section", section.Name),
			zap.String("policy", section.Policy.String()))

		if err := o.runSection(ctx, &runs[i]); err != nil {
			return runs, fmt.Errorf("section %q: %w", section.Name, err)
		}

		runs[i].State = Done
		o.logger.Info("section done",
			zap.String("section", section.Name),
			zap.Int("attempts", len(runs[i].Attempts)))
	}

	return runs, nil
}

// runSection executes one section. The returned error is non-nil only for
// session-fatal conditions.
func (o *Orchestrator) runSection(ctx context.Context, run *SectionRun) error {
	section := run.Section

	if err := o.collab.OpenSection(ctx, section); err != nil {
		if errors.Is(err, ErrSessionLost) {
			return err
		}
		// The tab never opened; nothing can be planned for it. The
		// validator will report its expected files as missing.
		run.OpenErr = err
		o.logger.Warn("could not open section",
			zap.String("section", section.Name),
			zap.Error(err))
		return nil
	}

	var descriptors []ArtifactDescriptor
	switch section.Policy {
	case catalog.ChartsOnly:
		descriptors = []ArtifactDescriptor{{Kind: Chart}}
	case catalog.ResourcesOnly:
		descriptors = []ArtifactDescriptor{{Kind: Resource}}
	case catalog.Both:
		descriptors = []ArtifactDescriptor{{Kind: Chart}, {Kind: Resource}}
	case catalog.PerSubEntity:
		labels, err := o.sortedSubEntities(ctx, section)
		if err != nil {
			if errors.Is(err, ErrSessionLost) {
				return err
			}
			run.OpenErr = err
			o.logger.Warn("could not list sub-entities",
				zap.String("section", section.Name),
				zap.Error(err))
			return nil
		}
		for _, label := range labels {
			descriptors = append(descriptors,
				ArtifactDescriptor{Kind: Chart, SubEntity: label},
				ArtifactDescriptor{Kind: Resource, SubEntity: label})
		}
	}

	for _, desc := range descriptors {
		saved, err := o.collab.AcquireArtifact(ctx, section, desc)
		run.Attempts = append(run.Attempts, Attempt{Descriptor: desc, Saved: saved, Err: err})
		if err != nil {
			if errors.Is(err, ErrSessionLost) {
				return err
			}
			o.logger.Warn("artifact acquisition failed",
				zap.String("section", section.Name),
				zap.Stringer("artifact", desc),
				zap.Error(err))
			continue
		}
		o.logger.Info("artifacts acquired",
			zap.String("section", section.Name),
			zap.Stringer("artifact", desc),
			zap.Int("files", len(saved)))
	}

	return nil
}

// sortedSubEntities lists a section's sub-entities and orders them by their
// derived key, never by UI-encounter order, so re-runs and reports are
// reproducible regardless of how the portal renders the listing.
func (o *Orchestrator) sortedSubEntities(ctx context.Context, section catalog.Section) ([]string, error) {
	labels, err := o.collab.ListSubEntities(ctx, section)
	if err != nil {
		return nil, err
	}

	type keyed struct {
		label string
		key   keybuild.Key
	}
	items := make([]keyed, 0, len(labels))
	for _, label := range labels {
		k, err := keybuild.Build(label)
		if err != nil {
			o.logger.Warn("skipping malformed sub-entity label",
				zap.String("section", section.Name),
				zap.String("label", label),
				zap.Error(err))
			continue
		}
		items = append(items, keyed{label: label, key: k})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].key.Less(items[j].key) })

	sorted := make([]string, len(items))
	for i, it := range items {
		sorted[i] = it.label
	}
	return sorted, nil
}
