package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/nerrad567/solarpower/internal/device"
)

// defaultMaxBodyBytes is the largest accepted request body.
const defaultMaxBodyBytes = 1_000_000

// decodeBody reads the request body and decodes exactly one JSON value.
//
// A body longer than the configured cap is refused with 413 and the
// connection is marked for closing. Anything other than a single JSON value
// is refused with 400. In both cases the reply has been written and ok is
// false; otherwise the caller owns the response.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (v device.Value, ok bool) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer body.Close() //nolint:errcheck // Request body close errors are not actionable

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger.Warn("request body too large",
				"path", r.URL.Path,
				"limit", tooLarge.Limit,
				"request_id", r.Context().Value(ctxKeyRequestID),
			)
			w.Header().Set("Connection", "close")
			writeText(w, http.StatusRequestEntityTooLarge, "Payload too large\n")
			return nil, false
		}
		writeBadRequest(w, "Could not read request body")
		return nil, false
	}

	v, err = device.DecodeValue(data)
	if err != nil {
		s.logger.Debug("malformed request body", "path", r.URL.Path, "error", err)
		writeBadRequest(w, "Malformed request body")
		return nil, false
	}
	return v, true
}
