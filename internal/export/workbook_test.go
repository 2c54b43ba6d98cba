package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/obras/internal/domain"
	"github.com/xuri/excelize/v2"
)

func TestBytesRoundTrip(t *testing.T) {
	sites := []domain.Site{{
		ID:        "s1",
		Name:      "Bridge A",
		Owner:     "J. Doe",
		Address:   domain.Location{FormattedAddress: "Main St 1"},
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	inspections := []domain.Inspection{
		{ID: "i1", SiteID: "s1", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Status: domain.StatusDelayed, Notes: "late", Photo: &domain.Photo{URI: "/photos/x.jpg"}},
		{ID: "i2", SiteID: "gone", Status: domain.StatusStopped},
	}

	data, err := Bytes(sites, inspections, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SitesSheet, InspectionsSheet}, f.GetSheetList())

	v, err := f.GetCellValue(SitesSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Generated: 2024-07-01 12:00:00", v)

	v, err = f.GetCellValue(SitesSheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Name", v)

	v, err = f.GetCellValue(SitesSheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "Bridge A", v)

	v, err = f.GetCellValue(SitesSheet, "H5")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", v)

	v, err = f.GetCellValue(InspectionsSheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "Bridge A", v)

	v, err = f.GetCellValue(InspectionsSheet, "D5")
	require.NoError(t, err)
	assert.Equal(t, "Atrasada", v)

	v, err = f.GetCellValue(InspectionsSheet, "G5")
	require.NoError(t, err)
	assert.Equal(t, "/photos/x.jpg", v)

	v, err = f.GetCellValue(InspectionsSheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "gone", v)
}

func TestBuildEmpty(t *testing.T) {
	f, err := Build(nil, nil, time.Now())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(InspectionsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, headerRow)
}
