package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeText writes a plain-text response.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(body))
}

// writeNotFound writes the 404 reply for an unknown path.
func writeNotFound(w http.ResponseWriter, path string) {
	writeText(w, http.StatusNotFound, path+" not found\n")
}

// writeMethodNotSupported writes the 405 reply for a known path.
func writeMethodNotSupported(w http.ResponseWriter, method, path string) {
	writeText(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not supported on %s\n", method, path))
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeText(w, http.StatusBadRequest, message+"\n")
}

// writeInternalError writes a generic 500 error response.
func writeInternalError(w http.ResponseWriter) {
	writeText(w, http.StatusInternalServerError, "500 - Internal Error")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeNotFound(w, r.URL.Path)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMethodNotSupported(w, r.Method, r.URL.Path)
}
