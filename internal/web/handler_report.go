package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vbonduro/obras/internal/export"
)

type reportRequest struct {
	Recipient string `json:"recipient"`
}

func (s *Server) handleSiteReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.service.SendSiteReport(r.Context(), r.PathValue("id"), req.Recipient); err != nil {
		s.writeError(w, r, err, "failed to send report")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleInspectionReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.service.SendInspectionReport(r.Context(), r.PathValue("id"), req.Recipient); err != nil {
		s.writeError(w, r, err, "failed to send report")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleExportSite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := s.service.ExportWorkbook(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "failed to export site")
		return
	}
	s.writeWorkbook(w, fmt.Sprintf("site-%s.xlsx", id), data)
}

func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportWorkbook(r.Context(), "")
	if err != nil {
		s.writeError(w, r, err, "failed to export")
		return
	}
	s.writeWorkbook(w, fmt.Sprintf("obras-%s.xlsx", time.Now().Format("20060102")), data)
}

func (s *Server) writeWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write workbook failed", "filename", filename, "error", err)
	}
}
