package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/formlens/internal/extract"
)

type extractResponse struct {
	Parsed *extract.Result `json:"parsed"`
	Cached bool            `json:"cached"`
}

// handleExtract is the same-origin proxy to the extraction endpoint. The
// credential is injected server-side.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extract.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		jsonError(w, "pdfImages is required", http.StatusBadRequest)
		return
	}

	res, err := s.extractor.Extract(r.Context(), req)
	if err != nil {
		s.log.Warn("extract request failed", "error", err, "images", len(req.Images))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Parsed: res, Cached: res.Cached})
}
