package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/obras/internal/domain"
	"github.com/vbonduro/obras/internal/query"
	"github.com/vbonduro/obras/internal/recordstore"
)

type InspectionStore struct {
	inspections *recordstore.Collection[domain.Inspection]
	sites       *recordstore.Collection[domain.Site]
	now         func() time.Time
	newID       func() string
}

func NewInspectionStore(rs *recordstore.Store) *InspectionStore {
	return &InspectionStore{
		inspections: recordstore.NewCollection[domain.Inspection](rs, recordstore.Inspections),
		sites:       recordstore.NewCollection[domain.Site](rs, recordstore.Sites),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (s *InspectionStore) List(ctx context.Context) ([]domain.Inspection, error) {
	inspections, err := s.inspections.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	return inspections, nil
}

func (s *InspectionStore) ListBySite(ctx context.Context, siteID string) ([]domain.Inspection, error) {
	inspections, err := s.inspections.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	return query.FilterBySite(inspections, siteID), nil
}

func (s *InspectionStore) GetByID(ctx context.Context, id string) (*domain.Inspection, error) {
	inspections, err := s.inspections.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	for i := range inspections {
		if inspections[i].ID == id {
			return &inspections[i], nil
		}
	}
	return nil, fmt.Errorf("inspection %s: %w", id, domain.ErrNotFound)
}

// Create validates draft, checks that draft.SiteID names an existing site and
// appends the new inspection. The check and the append run while the sites
// collection is locked, so a concurrent site delete either sees the new
// inspection or runs after it.
func (s *InspectionStore) Create(ctx context.Context, draft domain.InspectionDraft) (*domain.Inspection, error) {
	if err := validateInspectionDraft(draft, true); err != nil {
		return nil, err
	}

	insp := applyInspectionDraft(domain.Inspection{
		ID:        s.newID(),
		SiteID:    draft.SiteID,
		CreatedAt: s.now().UTC(),
	}, draft)

	// Lock order is sites then inspections, the same order Cascade uses.
	err := s.sites.Update(ctx, func(sites []domain.Site) ([]domain.Site, error) {
		if !hasSite(sites, draft.SiteID) {
			return nil, fmt.Errorf("site %s: %w", draft.SiteID, domain.ErrNotFound)
		}
		err := s.inspections.Update(ctx, func(inspections []domain.Inspection) ([]domain.Inspection, error) {
			return append(inspections, insp), nil
		})
		if err != nil {
			return nil, err
		}
		return nil, recordstore.ErrNoChange
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create inspection: %w", err)
	}

	return &insp, nil
}

// Update replaces the editable fields of inspection id. The id, owning site
// and creation time are kept from the stored record.
func (s *InspectionStore) Update(ctx context.Context, id string, draft domain.InspectionDraft) (*domain.Inspection, error) {
	if err := validateInspectionDraft(draft, false); err != nil {
		return nil, err
	}

	var updated domain.Inspection
	err := s.inspections.Update(ctx, func(inspections []domain.Inspection) ([]domain.Inspection, error) {
		for i := range inspections {
			if inspections[i].ID == id {
				updated = applyInspectionDraft(inspections[i], draft)
				inspections[i] = updated
				return inspections, nil
			}
		}
		return nil, fmt.Errorf("inspection %s: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update inspection: %w", err)
	}

	return &updated, nil
}

// Delete removes inspection id. Deleting an id that is not stored succeeds
// without writing.
func (s *InspectionStore) Delete(ctx context.Context, id string) error {
	err := s.inspections.Update(ctx, func(inspections []domain.Inspection) ([]domain.Inspection, error) {
		kept := removeInspections(inspections, func(i domain.Inspection) bool { return i.ID == id })
		if len(kept) == len(inspections) {
			return nil, recordstore.ErrNoChange
		}
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete inspection: %w", err)
	}
	return nil
}

func validateInspectionDraft(d domain.InspectionDraft, requireSite bool) error {
	err := domain.Validate(d)
	if !requireSite || d.SiteID != "" {
		return err
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		verr.Fields["siteId"] = "required"
		return verr
	}
	if err != nil {
		return err
	}
	return &domain.ValidationError{Fields: map[string]string{"siteId": "required"}}
}

func applyInspectionDraft(insp domain.Inspection, d domain.InspectionDraft) domain.Inspection {
	insp.Date = d.Date.UTC()
	insp.Status = d.Status
	insp.Notes = d.Notes
	insp.Location = d.Location
	insp.Photo = d.Photo
	return insp
}

func hasSite(sites []domain.Site, id string) bool {
	for _, s := range sites {
		if s.ID == id {
			return true
		}
	}
	return false
}

func removeInspections(inspections []domain.Inspection, match func(domain.Inspection) bool) []domain.Inspection {
	kept := make([]domain.Inspection, 0, len(inspections))
	for _, i := range inspections {
		if !match(i) {
			kept = append(kept, i)
		}
	}
	return kept
}
