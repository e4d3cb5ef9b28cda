package metrics

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	json.NewEncoder(w).Encode(v)
}
