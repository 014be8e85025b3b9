package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/formlens/internal/extract"
	"github.com/dgallion1/formlens/internal/pipeline"
	"github.com/dgallion1/formlens/internal/raster"
	"github.com/dgallion1/formlens/internal/session"
)

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps a pipeline or session error to a response status and
// optional details.
func errorStatus(err error) (int, any) {
	var (
		cfgErr    *extract.ConfigError
		upErr     *extract.UpstreamError
		formatErr *extract.ResponseFormatError
		renderErr *raster.RenderError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, nil
	case errors.As(err, &upErr):
		if upErr.StatusCode >= 400 && upErr.StatusCode <= 599 {
			return upErr.StatusCode, upErr.Body
		}
		return http.StatusBadGateway, upErr.Body
	case errors.As(err, &formatErr):
		return http.StatusInternalServerError, formatErr.Raw
	case errors.As(err, &renderErr):
		return http.StatusUnprocessableEntity, nil
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrNoPage):
		return http.StatusNotFound, nil
	case errors.Is(err, session.ErrUnknownField):
		return http.StatusNotFound, nil
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrSubmitting):
		return http.StatusConflict, nil
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		return http.StatusServiceUnavailable, nil
	default:
		return http.StatusInternalServerError, nil
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, details := errorStatus(err)
	writeJSON(w, code, errorBody{Error: err.Error(), Details: details})
}
