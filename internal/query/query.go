// Package query derives list views from whole collections in memory.
package query

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/vbonduro/obras/internal/domain"
)

// FilterSites returns the sites whose name, owner or formatted address
// contains q, ignoring case. A blank q returns sites itself.
func FilterSites(sites []domain.Site, q string) []domain.Site {
	if strings.TrimSpace(q) == "" {
		return sites
	}

	needle := strings.ToLower(q)
	filtered := make([]domain.Site, 0, len(sites))
	for _, s := range sites {
		if containsFold(s.Name, needle) ||
			containsFold(s.Owner, needle) ||
			containsFold(s.Address.FormattedAddress, needle) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}

// FilterBySite keeps the inspections of one site in their stored order.
func FilterBySite(inspections []domain.Inspection, siteID string) []domain.Inspection {
	filtered := make([]domain.Inspection, 0)
	for _, i := range inspections {
		if i.SiteID == siteID {
			filtered = append(filtered, i)
		}
	}
	return filtered
}

// ByStatus keeps inspections with the given status. An empty status keeps all.
func ByStatus(inspections []domain.Inspection, status domain.Status) []domain.Inspection {
	if status == "" {
		return inspections
	}
	filtered := make([]domain.Inspection, 0, len(inspections))
	for _, i := range inspections {
		if i.Status == status {
			filtered = append(filtered, i)
		}
	}
	return filtered
}

// NearSites keeps sites whose address lies within radiusMeters of origin,
// by great-circle distance.
func NearSites(sites []domain.Site, origin orb.Point, radiusMeters float64) []domain.Site {
	filtered := make([]domain.Site, 0, len(sites))
	for _, s := range sites {
		if geo.Distance(origin, s.Address.Point()) <= radiusMeters {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
