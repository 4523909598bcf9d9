package server

import (
	"encoding/json"
	"errors"
	"net/http"

	rberr "github.com/matzehuels/rankbars/pkg/errors"
	"github.com/matzehuels/rankbars/pkg/store"
)

type errorResponse struct {
	Error string     `json:"error"`
	Code  rberr.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSVG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// writeError maps err to a status code and writes it as JSON. Errors
// without a code are reported as internal and their text is not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	code := rberr.GetCode(err)
	msg := rberr.UserMessage(err)
	if errors.Is(err, store.ErrNotFound) && code == "" {
		code, msg = rberr.ErrCodeNotFound, "not found"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		if code == "" {
			code, msg = rberr.ErrCodeInternal, "internal server error"
		}
	}
	recordError(r, err)
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func statusOf(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	switch rberr.GetCode(err) {
	case rberr.ErrCodeInvalidInput, rberr.ErrCodeInvalidYear, rberr.ErrCodeInvalidFormat,
		rberr.ErrCodeInvalidField, rberr.ErrCodeInvalidKey:
		return http.StatusBadRequest
	case rberr.ErrCodeNotFound, rberr.ErrCodeFileNotFound:
		return http.StatusNotFound
	case rberr.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case rberr.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case rberr.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return rberr.Wrap(rberr.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
