package store

import (
	"context"
	"encoding/json"

	"github.com/gemologic/lattice/internal/apperror"
	"github.com/gemologic/lattice/internal/eventlog"
)

// ListSpecSections returns all six sections of a project's spec in display
// order.
func (s *Store) ListSpecSections(ctx context.Context, slug string) ([]SpecSection, error) {
	normalized := lookupSlug(slug)
	if _, err := s.getProject(normalized); err != nil {
		return nil, err
	}

	sections := make([]SpecSection, 0, len(specSections))
	for _, name := range specSections {
		var record SpecSection
		found, err := s.getJSON(keySpecSection(normalized, name), &record)
		if err != nil {
			return nil, err
		}
		if found {
			sections = append(sections, record)
		}
	}
	return sections, nil
}

// GetSpecSection returns one named section.
func (s *Store) GetSpecSection(ctx context.Context, slug, section string) (*SpecSection, error) {
	if err := validateSpecSection(section); err != nil {
		return nil, err
	}
	normalized := lookupSlug(slug)
	if _, err := s.getProject(normalized); err != nil {
		return nil, err
	}

	var record SpecSection
	found, err := s.getJSON(keySpecSection(normalized, section), &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("spec section '%s' not found for project '%s'", section, normalized)
	}
	return &record, nil
}

// UpdateSpecSection replaces a section's content, snapshots a revision, and
// emits spec.updated. Every update writes a revision, even when the content
// is unchanged.
func (s *Store) UpdateSpecSection(ctx context.Context, slug, section, content, editedBy string) (*SpecSection, error) {
	if err := validateSpecSection(section); err != nil {
		return nil, err
	}
	normalized := lookupSlug(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.getProject(normalized)
	if err != nil {
		return nil, err
	}

	var record SpecSection
	found, err := s.getJSON(keySpecSection(normalized, section), &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("spec section '%s' not found for project '%s'", section, normalized)
	}

	now := s.timestamp()
	record.Content = content
	record.UpdatedAt = now

	revision := SpecRevision{
		ID:        s.newID(),
		ProjectID: project.ID,
		Section:   section,
		Content:   content,
		EditedBy:  editedBy,
		CreatedAt: now,
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := batchSetJSON(b, keySpecSection(normalized, section), &record); err != nil {
		return nil, err
	}
	if err := batchSetJSON(b, keySpecRevision(normalized, section, revision.ID), &revision); err != nil {
		return nil, err
	}
	err = s.events.Stage(b, &eventlog.Event{
		ProjectSlug: normalized,
		Actor:       editedBy,
		Action:      eventlog.ActionSpecUpdated,
		Detail: encodeDetail(map[string]any{
			"section": section,
		}),
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListSpecHistory returns a section's revisions, newest first.
func (s *Store) ListSpecHistory(ctx context.Context, slug, section string, limit, offset int64) ([]SpecRevision, error) {
	if err := validateSpecSection(section); err != nil {
		return nil, err
	}
	normalized := lookupSlug(slug)
	if _, err := s.getProject(normalized); err != nil {
		return nil, err
	}

	revisions := []SpecRevision{}
	err := s.scanPrefixReverse(keySpecRevisionPrefix(normalized, section), func(value []byte) error {
		var revision SpecRevision
		if err := json.Unmarshal(value, &revision); err != nil {
			return apperror.Internal("decode revision: %v", err)
		}
		revisions = append(revisions, revision)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slicePage(revisions, limit, offset), nil
}
