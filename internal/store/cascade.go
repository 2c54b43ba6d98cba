package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/obras/internal/domain"
	"github.com/vbonduro/obras/internal/recordstore"
)

// Cascade deletes a site together with its inspections. The two collections
// are separate keys, so the delete happens in two writes: the site first,
// then its inspections. If the second write fails the site is gone and its
// inspections remain as orphans; that outcome is reported as a
// *domain.PartialFailure and is not rolled back. Repeating the delete
// removes the orphans, since the second step runs even when the site is
// already absent.
type Cascade struct {
	sites       *recordstore.Collection[domain.Site]
	inspections *recordstore.Collection[domain.Inspection]
	logger      *slog.Logger
}

func NewCascade(rs *recordstore.Store, logger *slog.Logger) *Cascade {
	return &Cascade{
		sites:       recordstore.NewCollection[domain.Site](rs, recordstore.Sites),
		inspections: recordstore.NewCollection[domain.Inspection](rs, recordstore.Inspections),
		logger:      logger,
	}
}

func (c *Cascade) DeleteSite(ctx context.Context, siteID string) error {
	err := c.sites.Update(ctx, func(sites []domain.Site) ([]domain.Site, error) {
		kept := make([]domain.Site, 0, len(sites))
		for _, s := range sites {
			if s.ID != siteID {
				kept = append(kept, s)
			}
		}
		if len(kept) == len(sites) {
			return nil, recordstore.ErrNoChange
		}
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}

	removed := 0
	err = c.inspections.Update(ctx, func(inspections []domain.Inspection) ([]domain.Inspection, error) {
		kept := removeInspections(inspections, func(i domain.Inspection) bool { return i.SiteID == siteID })
		removed = len(inspections) - len(kept)
		if removed == 0 {
			return nil, recordstore.ErrNoChange
		}
		return kept, nil
	})
	if err != nil {
		c.logger.Error("site deleted but inspections remain", "site_id", siteID, "error", err)
		return &domain.PartialFailure{SiteID: siteID, Err: err}
	}

	c.logger.Info("site deleted", "site_id", siteID, "inspections_removed", removed)
	return nil
}
