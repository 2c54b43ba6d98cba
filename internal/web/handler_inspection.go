package web

import (
	"net/http"

	"github.com/vbonduro/obras/internal/domain"
)

func (s *Server) handleListInspections(w http.ResponseWriter, r *http.Request) {
	var status domain.Status
	if v := r.URL.Query().Get("status"); v != "" {
		parsed, err := domain.ParseStatus(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		status = parsed
	}

	inspections, err := s.service.ListInspections(r.Context(), r.PathValue("id"), status)
	if err != nil {
		if s.degraded(w, err) {
			writeJSON(w, http.StatusOK, []domain.Inspection{})
			return
		}
		s.writeError(w, r, err, "failed to list inspections")
		return
	}
	writeJSON(w, http.StatusOK, inspections)
}

func (s *Server) handleCreateInspection(w http.ResponseWriter, r *http.Request) {
	var draft domain.InspectionDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	draft.SiteID = r.PathValue("id")

	insp, err := s.service.CreateInspection(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err, "failed to create inspection")
		return
	}
	writeJSON(w, http.StatusCreated, insp)
}

func (s *Server) handleGetInspection(w http.ResponseWriter, r *http.Request) {
	insp, err := s.service.GetInspection(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, "failed to get inspection")
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

func (s *Server) handleUpdateInspection(w http.ResponseWriter, r *http.Request) {
	var draft domain.InspectionDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	insp, err := s.service.UpdateInspection(r.Context(), r.PathValue("id"), draft)
	if err != nil {
		s.writeError(w, r, err, "failed to update inspection")
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

func (s *Server) handleDeleteInspection(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteInspection(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, "failed to delete inspection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
