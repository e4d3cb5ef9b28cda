package api

import (
	"io/fs"
	"net/http"

	"github.com/nerrad567/solarpower/internal/assets"
)

// handleRoot serves the one-line service description.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, s.description+"\n")
}

// handleDescription serves the long-form markdown description.
func (s *Server) handleDescription(w http.ResponseWriter, _ *http.Request) {
	data, err := fs.ReadFile(s.assets, assets.DescriptionName)
	if err != nil {
		s.logger.Error("reading service description", "error", err)
		writeInternalError(w)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(data)
}

// handleThingDescription renders and serves the Thing Description.
// The document is generated afresh for every request.
func (s *Server) handleThingDescription(w http.ResponseWriter, _ *http.Request) {
	doc, err := s.generator.Generate()
	if err != nil {
		s.logger.Error("generating thing description", "error", err)
		writeInternalError(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(doc)
}
