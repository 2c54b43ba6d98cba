package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/obras/internal/domain"
	"github.com/vbonduro/obras/internal/recordstore"
)

type SiteStore struct {
	sites   *recordstore.Collection[domain.Site]
	cascade *Cascade
	now     func() time.Time
	newID   func() string
}

func NewSiteStore(rs *recordstore.Store, logger *slog.Logger) *SiteStore {
	return &SiteStore{
		sites:   recordstore.NewCollection[domain.Site](rs, recordstore.Sites),
		cascade: NewCascade(rs, logger),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *SiteStore) List(ctx context.Context) ([]domain.Site, error) {
	sites, err := s.sites.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return sites, nil
}

func (s *SiteStore) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	sites, err := s.sites.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	for i := range sites {
		if sites[i].ID == id {
			return &sites[i], nil
		}
	}
	return nil, fmt.Errorf("site %s: %w", id, domain.ErrNotFound)
}

// Create validates draft and appends it as a new site with a fresh id. An
// invalid draft leaves the collection untouched.
func (s *SiteStore) Create(ctx context.Context, draft domain.SiteDraft) (*domain.Site, error) {
	if err := domain.Validate(draft); err != nil {
		return nil, err
	}

	site := applySiteDraft(domain.Site{
		ID:        s.newID(),
		CreatedAt: s.now().UTC(),
	}, draft)

	err := s.sites.Update(ctx, func(sites []domain.Site) ([]domain.Site, error) {
		return append(sites, site), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	return &site, nil
}

// Update replaces every editable field of site id with draft. The id and
// creation time are kept from the stored record.
func (s *SiteStore) Update(ctx context.Context, id string, draft domain.SiteDraft) (*domain.Site, error) {
	if err := domain.Validate(draft); err != nil {
		return nil, err
	}

	var updated domain.Site
	err := s.sites.Update(ctx, func(sites []domain.Site) ([]domain.Site, error) {
		for i := range sites {
			if sites[i].ID == id {
				updated = applySiteDraft(sites[i], draft)
				sites[i] = updated
				return sites, nil
			}
		}
		return nil, fmt.Errorf("site %s: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update site: %w", err)
	}

	return &updated, nil
}

// Delete removes the site and all of its inspections.
func (s *SiteStore) Delete(ctx context.Context, id string) error {
	return s.cascade.DeleteSite(ctx, id)
}

func applySiteDraft(site domain.Site, d domain.SiteDraft) domain.Site {
	site.Name = d.Name
	site.Owner = d.Owner
	site.Address = d.Address
	site.Description = d.Description
	site.StartDate = d.StartDate.UTC()
	site.EndDate = d.EndDate.UTC()
	site.Photo = d.Photo
	return site
}
