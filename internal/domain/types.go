package domain

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Location is a captured position plus the human-readable address the
// location provider resolved for it.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress" validate:"required"`
}

// Point returns the location as an orb point (longitude, latitude).
func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// FormatAddress joins the non-empty address parts with ", ".
func FormatAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// Photo references a locally captured image. The image bytes are never
// part of a record.
type Photo struct {
	URI      string `json:"uri" validate:"required"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

type Site struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	Address     Location  `json:"address"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Photo       *Photo    `json:"photo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SiteDraft is the form shape of a site before it is promoted to a record.
type SiteDraft struct {
	Name        string    `json:"name" validate:"required"`
	Owner       string    `json:"owner" validate:"required"`
	Address     Location  `json:"address"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
	Photo       *Photo    `json:"photo,omitempty" validate:"omitempty"`
}

// Draft returns the editable fields of s, for callers that patch a stored
// record and send it back whole.
func (s Site) Draft() SiteDraft {
	return SiteDraft{
		Name:        s.Name,
		Owner:       s.Owner,
		Address:     s.Address,
		Description: s.Description,
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		Photo:       s.Photo,
	}
}

type Inspection struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"siteId"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes"`
	Location  Location  `json:"location"`
	Photo     *Photo    `json:"photo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// InspectionDraft is the form shape of an inspection. SiteID is only read on
// create; an update never moves an inspection to another site.
type InspectionDraft struct {
	SiteID   string    `json:"siteId"`
	Date     time.Time `json:"date" validate:"required"`
	Status   Status    `json:"status" validate:"required,status"`
	Notes    string    `json:"notes" validate:"required"`
	Location Location  `json:"location"`
	Photo    *Photo    `json:"photo" validate:"required"`
}

func (i Inspection) Draft() InspectionDraft {
	return InspectionDraft{
		SiteID:   i.SiteID,
		Date:     i.Date,
		Status:   i.Status,
		Notes:    i.Notes,
		Location: i.Location,
		Photo:    i.Photo,
	}
}
