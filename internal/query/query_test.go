package query

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/vbonduro/obras/internal/domain"
)

func testSites() []domain.Site {
	return []domain.Site{
		{ID: "s1", Name: "Bridge A", Owner: "J. Doe", Address: domain.Location{FormattedAddress: "Main St 1", Latitude: -8.0476, Longitude: -34.8770}},
		{ID: "s2", Name: "School Annex", Owner: "Maria Silva", Address: domain.Location{FormattedAddress: "Rua da Aurora, Recife", Latitude: -8.0630, Longitude: -34.8711}},
		{ID: "s3", Name: "Depot", Owner: "ACME", Address: domain.Location{FormattedAddress: "Av. Paulista, São Paulo", Latitude: -23.5614, Longitude: -46.6559}},
	}
}

func ids(sites []domain.Site) []string {
	out := make([]string, 0, len(sites))
	for _, s := range sites {
		out = append(out, s.ID)
	}
	return out
}

func TestFilterSitesBlankQueryIsIdentity(t *testing.T) {
	sites := testSites()

	for _, q := range []string{"", "   ", "\t"} {
		got := FilterSites(sites, q)
		assert.Equal(t, sites, got)
		assert.Same(t, &sites[0], &got[0])
	}
}

func TestFilterSitesMatchesAnyField(t *testing.T) {
	sites := testSites()

	tests := []struct {
		q    string
		want []string
	}{
		{"bridge", []string{"s1"}},
		{"SILVA", []string{"s2"}},
		{"recife", []string{"s2"}},
		{"a", []string{"s1", "s2", "s3"}},
		{"nowhere", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ids(FilterSites(sites, tt.q)), tt.q)
	}
}

func TestFilterSitesIsSubset(t *testing.T) {
	sites := testSites()
	for _, q := range []string{"e", "St", "x", "ã"} {
		for _, s := range FilterSites(sites, q) {
			assert.Contains(t, sites, s)
		}
	}
}

func TestFilterBySitePreservesOrder(t *testing.T) {
	inspections := []domain.Inspection{
		{ID: "i1", SiteID: "s1"},
		{ID: "i2", SiteID: "s2"},
		{ID: "i3", SiteID: "s1"},
	}

	got := FilterBySite(inspections, "s1")
	assert.Equal(t, []domain.Inspection{{ID: "i1", SiteID: "s1"}, {ID: "i3", SiteID: "s1"}}, got)
	assert.Empty(t, FilterBySite(inspections, "s9"))
	assert.NotNil(t, FilterBySite(nil, "s1"))
}

func TestByStatus(t *testing.T) {
	inspections := []domain.Inspection{
		{ID: "i1", Status: domain.StatusOnTrack},
		{ID: "i2", Status: domain.StatusStopped},
	}

	assert.Len(t, ByStatus(inspections, ""), 2)
	got := ByStatus(inspections, domain.StatusStopped)
	assert.Len(t, got, 1)
	assert.Equal(t, "i2", got[0].ID)
}

func TestNearSites(t *testing.T) {
	recife := orb.Point{-34.8770, -8.0476}

	assert.Equal(t, []string{"s1"}, ids(NearSites(testSites(), recife, 100)))
	assert.Equal(t, []string{"s1", "s2"}, ids(NearSites(testSites(), recife, 5000)))
	assert.Len(t, NearSites(testSites(), recife, 3_000_000), 3)
}
