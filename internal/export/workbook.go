// Package export renders sites and their inspections as an .xlsx workbook,
// used both for downloads and as the attachment of emailed reports.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/vbonduro/obras/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SitesSheet       = "Sites"
	InspectionsSheet = "Inspections"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	headerRow = 4
	dateFmt   = "2006-01-02"
)

type column struct {
	Label string
	Width float64
}

var siteColumns = []column{
	{"ID", 38}, {"Name", 28}, {"Owner", 24}, {"Address", 40},
	{"Latitude", 12}, {"Longitude", 12}, {"Start", 12}, {"End", 12},
	{"Description", 40}, {"Created", 20},
}

var inspectionColumns = []column{
	{"ID", 38}, {"Site", 28}, {"Date", 12}, {"Status", 12},
	{"Notes", 48}, {"Location", 40}, {"Photo", 30},
}

// Build returns a workbook with one sheet of sites and one of inspections.
// Inspections whose site is not in sites are still listed, with the raw
// site id in the Site column.
func Build(sites []domain.Site, inspections []domain.Inspection, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SitesSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(InspectionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	siteRows := make([][]any, 0, len(sites))
	siteNames := make(map[string]string, len(sites))
	for _, s := range sites {
		siteNames[s.ID] = s.Name
		siteRows = append(siteRows, []any{
			s.ID, s.Name, s.Owner, s.Address.FormattedAddress,
			s.Address.Latitude, s.Address.Longitude,
			s.StartDate.Format(dateFmt), s.EndDate.Format(dateFmt),
			s.Description, s.CreatedAt.Format(time.DateTime),
		})
	}

	inspRows := make([][]any, 0, len(inspections))
	for _, i := range inspections {
		site, ok := siteNames[i.SiteID]
		if !ok {
			site = i.SiteID
		}
		photo := ""
		if i.Photo != nil {
			photo = i.Photo.URI
		}
		inspRows = append(inspRows, []any{
			i.ID, site, i.Date.Format(dateFmt), i.Status.Label(),
			i.Notes, i.Location.FormattedAddress, photo,
		})
	}

	stamp := fmt.Sprintf("Generated: %s", generatedAt.Format(time.DateTime))
	if err := writeSheet(f, styles, SitesSheet, "Construction sites", stamp, siteColumns, siteRows); err != nil {
		return nil, err
	}
	if err := writeSheet(f, styles, InspectionsSheet, "Inspections", stamp, inspectionColumns, inspRows); err != nil {
		return nil, err
	}

	return f, nil
}

// Bytes builds the workbook and serializes it.
func Bytes(sites []domain.Site, inspections []domain.Inspection, generatedAt time.Time) ([]byte, error) {
	f, err := Build(sites, inspections, generatedAt)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	title, header, data int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var st sheetStyles
	var err error

	st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("failed to create title style: %w", err)
	}

	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"F28C28"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return st, fmt.Errorf("failed to create header style: %w", err)
	}

	st.data, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border: []excelize.Border{
			{Type: "left", Color: "CCCCCC", Style: 1},
			{Type: "right", Color: "CCCCCC", Style: 1},
			{Type: "top", Color: "CCCCCC", Style: 1},
			{Type: "bottom", Color: "CCCCCC", Style: 1},
		},
	})
	if err != nil {
		return st, fmt.Errorf("failed to create data style: %w", err)
	}
	return st, nil
}

func writeSheet(f *excelize.File, st sheetStyles, sheet, title, stamp string, cols []column, rows [][]any) error {
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return fmt.Errorf("failed to style title: %w", err)
	}
	if err := f.SetRowHeight(sheet, 1, 28); err != nil {
		return fmt.Errorf("failed to size title row: %w", err)
	}
	if err := f.SetCellValue(sheet, "A2", stamp); err != nil {
		return fmt.Errorf("failed to write timestamp: %w", err)
	}

	for c, col := range cols {
		cell, err := excelize.CoordinatesToCellName(c+1, headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.Label); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, st.header); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, col.Width); err != nil {
			return fmt.Errorf("failed to size column: %w", err)
		}
	}

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, headerRow+1+r)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, st.data); err != nil {
				return fmt.Errorf("failed to style cell %s: %w", cell, err)
			}
		}
	}
	return nil
}
