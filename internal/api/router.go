package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.normalizePathMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	// Documents
	r.Get("/", s.handleRoot)
	r.Get("/desc", s.handleDescription)
	r.Get("/api", s.handleThingDescription)

	// Properties, each reachable by code and by alias
	for _, spec := range s.device.Properties() {
		h := s.propertyHandlers(spec)
		for _, name := range []string{spec.Code, spec.Alias} {
			if name == "" {
				continue
			}
			path := "/api/" + strings.ToLower(name)
			if spec.Capabilities.Readable {
				r.Get(path, h.get)
			}
			if spec.Capabilities.Writable {
				r.Put(path, h.set)
				r.Post(path, h.set)
			}
			if spec.Capabilities.Observable {
				r.Get(path+"/observe", h.observe)
			}
		}
	}

	return r
}

// routePath lower-cases p and drops one trailing slash.
func routePath(p string) string {
	p = strings.ToLower(p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}
