package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/solarpower/internal/device"
)

// defaultObserveTimeoutSeconds bounds a long-poll observe request.
const defaultObserveTimeoutSeconds = 60

// propertyHandlers serves one property under all of its paths.
type propertyHandlers struct {
	get     http.HandlerFunc
	set     http.HandlerFunc
	observe http.HandlerFunc
}

func (s *Server) propertyHandlers(spec device.Spec) propertyHandlers {
	code := spec.Code
	return propertyHandlers{
		get: func(w http.ResponseWriter, r *http.Request) {
			s.handleGetProperty(w, r, code)
		},
		set: func(w http.ResponseWriter, r *http.Request) {
			s.handleSetProperty(w, r, code)
		},
		observe: func(w http.ResponseWriter, r *http.Request) {
			s.handleObserveProperty(w, r, code)
		},
	}
}

// handleGetProperty reads the property from the device.
func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request, code string) {
	v, err := s.device.Get(r.Context(), code)
	if err != nil {
		s.writeDeviceError(w, r, err, code, "read")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSetProperty writes the JSON value in the body to the device.
func (s *Server) handleSetProperty(w http.ResponseWriter, r *http.Request, code string) {
	v, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	if err := s.device.Set(r.Context(), code, v); err != nil {
		s.writeDeviceError(w, r, err, code, "set")
		return
	}

	s.logger.Info("property set", "property", code, "value", device.FormatValue(v))
	writeText(w, http.StatusOK, fmt.Sprintf("Device[%d].%s = %s", s.device.Index(), code, device.FormatValue(v)))
}

// handleObserveProperty waits for the next change of the property.
// If none happens within the observe timeout the reply is 204 and the
// pending observation is withdrawn.
func (s *Server) handleObserveProperty(w http.ResponseWriter, r *http.Request, code string) {
	obs, err := s.device.Observe(code)
	if err != nil {
		s.writeDeviceError(w, r, err, code, "observe")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GetObserveTimeout())
	defer cancel()

	v, err := obs.Wait(ctx)
	if err != nil {
		obs.Cancel()
		if r.Context().Err() != nil {
			// Client went away.
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// writeDeviceError maps a device error onto an HTTP reply.
func (s *Server) writeDeviceError(w http.ResponseWriter, r *http.Request, err error, code, op string) {
	switch {
	case errors.Is(err, device.ErrPropertyNotFound):
		writeNotFound(w, r.URL.Path)
	case errors.Is(err, device.ErrNotReadable),
		errors.Is(err, device.ErrNotWritable),
		errors.Is(err, device.ErrNotObservable):
		writeMethodNotSupported(w, r.Method, r.URL.Path)
	case errors.Is(err, device.ErrInvalidValue):
		writeBadRequest(w, fmt.Sprintf("Invalid value for %s", code))
	default:
		s.recorder.DeviceError(code, op)
		s.logger.Error("device operation failed",
			"property", code,
			"op", op,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeText(w, http.StatusInternalServerError, fmt.Sprintf("Internal error - could not %s %s", op, code))
	}
}
