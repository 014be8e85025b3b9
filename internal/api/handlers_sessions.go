package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/formlens/internal/form"
	"github.com/dgallion1/formlens/internal/geometry"
	"github.com/dgallion1/formlens/internal/overlay"
	"github.com/dgallion1/formlens/internal/pipeline"
	"github.com/dgallion1/formlens/internal/raster"
	"github.com/dgallion1/formlens/internal/session"
)

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) snapshot(sess *session.Session) session.Snapshot {
	return sess.Snapshot(func(page int) string {
		return fmt.Sprintf("/api/sessions/%s/pages/%d.png", sess.ID, page)
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.log.Info("session created", "session_id", sess.ID)
	writeJSON(w, http.StatusCreated, s.snapshot(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "sessionID")) {
		writeError(w, session.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload queues a PDF for analysis. Anything that is not a PDF is
// ignored without an error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	filename := sanitizeFilename(header.Filename)
	if !looksLikePDF(filename, header.Header.Get("Content-Type"), data) {
		s.log.Debug("ignoring non-pdf upload", "session_id", sess.ID, "filename", filename)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.orchestrator.Submit(pipeline.NewJob(sess, filename, data)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.snapshot(sess))
}

func looksLikePDF(filename, contentType string, data []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return raster.IsPDF(data)
}

func pageParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || n < 0 {
		return 0, session.ErrNoPage
	}
	return n, nil
}

func (s *Server) handlePageImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	n, err := pageParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, ok := sess.Page(n)
	if !ok {
		writeError(w, session.ErrNoPage)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(page.PNG)
}

// handleOverlay returns the page image with every field box drawn and
// the selected one highlighted.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	n, err := pageParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, ok := sess.Page(n)
	if !ok {
		writeError(w, session.ErrNoPage)
		return
	}
	entries, sel := sess.PageEntries(n)
	highlighted, _ := sel.Field()

	out, err := overlay.Render(page.PNG, entries, highlighted)
	if err != nil {
		s.log.Error("overlay failed", "session_id", sess.ID, "page", n, "error", err)
		jsonError(w, "overlay failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(out)
}

type clickRequest struct {
	Page          int     `json:"page"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	DisplayWidth  float64 `json:"displayWidth,omitempty"`
	DisplayHeight float64 `json:"displayHeight,omitempty"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	page, ok := sess.Page(req.Page)
	if !ok {
		writeError(w, session.ErrNoPage)
		return
	}

	x, y := req.X, req.Y
	if req.DisplayWidth > 0 && req.DisplayHeight > 0 {
		x, y = geometry.ToNatural(x, y, req.DisplayWidth, req.DisplayHeight, page.Dims.RenderWidth, page.Dims.RenderHeight)
	}
	sel := sess.Click(req.Page, x, y)
	writeJSON(w, http.StatusOK, map[string]any{"selection": sel})
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Field string `json:"field"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.Focus(req.Field); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selection": sess.Selection()})
}

func (s *Server) handleBlur(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Blur()
	writeJSON(w, http.StatusOK, map[string]any{"selection": form.None()})
}

type setFieldRequest struct {
	Value string `json:"value"`
	// Control marks the value as coming from the field's input control,
	// so date fields arrive as YYYY-MM-DD.
	Control bool `json:"control,omitempty"`
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	// chi matches on RawPath when one is set, leaving the parameter escaped.
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			jsonError(w, "invalid field name", http.StatusBadRequest)
			return
		}
		name = unescaped
	}
	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var applied bool
	if req.Control {
		applied = sess.EditField(name, req.Value)
	} else {
		applied = sess.SetField(name, req.Value)
	}
	if !applied {
		writeError(w, session.ErrUnknownField)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(sess))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Submit(s.cfg.SubmitDelay, s.cfg.NoticeDuration); err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("form submitted", "session_id", sess.ID)
	writeJSON(w, http.StatusAccepted, s.snapshot(sess))
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
