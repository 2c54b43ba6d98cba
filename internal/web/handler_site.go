package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/vbonduro/obras/internal/domain"
	"github.com/vbonduro/obras/internal/service"
)

const defaultNearRadius = 5000.0

type siteDetail struct {
	domain.Site
	Inspections []domain.Inspection `json:"inspections"`
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	near, err := parseNear(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sites, err := s.service.ListSites(r.Context(), r.URL.Query().Get("q"), near)
	if err != nil {
		if s.degraded(w, err) {
			writeJSON(w, http.StatusOK, []domain.Site{})
			return
		}
		s.writeError(w, r, err, "failed to list sites")
		return
	}
	writeJSON(w, http.StatusOK, sites)
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var draft domain.SiteDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	site, err := s.service.CreateSite(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err, "failed to create site")
		return
	}
	writeJSON(w, http.StatusCreated, site)
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, inspections, err := s.service.GetSiteWithInspections(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, "failed to get site")
		return
	}
	writeJSON(w, http.StatusOK, siteDetail{Site: *site, Inspections: inspections})
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	var draft domain.SiteDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	site, err := s.service.UpdateSite(r.Context(), r.PathValue("id"), draft)
	if err != nil {
		s.writeError(w, r, err, "failed to update site")
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSite(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, "failed to delete site")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseNear reads near=lat,lon and an optional radius in meters. It returns
// nil when near is absent.
func parseNear(r *http.Request) (*service.Near, error) {
	raw := r.URL.Query().Get("near")
	if raw == "" {
		return nil, nil
	}

	latStr, lonStr, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, errors.New("near must be lat,lon")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, errors.New("invalid near latitude")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, errors.New("invalid near longitude")
	}

	radius := defaultNearRadius
	if v := r.URL.Query().Get("radius"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			return nil, errors.New("invalid radius")
		}
	}

	return &service.Near{Origin: orb.Point{lon, lat}, RadiusMeters: radius}, nil
}
