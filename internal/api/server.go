// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/clearscribe/notewright/internal/common"
	"github.com/clearscribe/notewright/internal/emr"
	"github.com/clearscribe/notewright/internal/merge"
	"github.com/clearscribe/notewright/internal/sqlite"
)

// DefaultProfileID is used when a request names no EMR profile.
const DefaultProfileID = "plain"

// Server hosts the parsing, validation, and selective-update surface. The
// core packages stay plain libraries; everything network-facing lives here.
type Server struct {
	router   chi.Router
	profiles *emr.Registry
	engine   *merge.Engine
	archive  *sqlite.Store
}

// NewServer wires the HTTP surface. The archive store may be nil, in which
// case merge results are returned but not persisted.
func NewServer(profiles *emr.Registry, engine *merge.Engine, archive *sqlite.Store) (*Server, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile registry required")
	}
	if engine == nil {
		return nil, fmt.Errorf("merge engine required")
	}
	srv := &Server{
		router:   chi.NewRouter(),
		profiles: profiles,
		engine:   engine,
		archive:  archive,
	}
	srv.routes()
	common.Logger().Info("api: server ready", "profiles", profiles.IDs(), "archive", archive != nil)
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Handle("/debug/vars", expvar.Handler())

	s.router.Post("/v1/parse", s.handleParse)
	s.router.Post("/v1/validate", s.handleValidate)
	s.router.Post("/v1/sanitize", s.handleSanitize)
	s.router.Post("/v1/merge", s.handleMerge)
	s.router.Get("/v1/profiles", s.handleProfiles)
	s.router.Get("/v1/notes", s.handleNotes)
	s.router.Get("/v1/notes/{id}", s.handleNote)
	s.router.Get("/v1/logs", s.handleLogs)
}

func (s *Server) lookupProfile(id string) (*emr.Profile, error) {
	if id == "" {
		id = DefaultProfileID
	}
	return s.profiles.Lookup(id)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	type profileInfo struct {
		ID               string `json:"id"`
		DisplayName      string `json:"display_name"`
		RequireStructure bool   `json:"require_structure"`
		ForbiddenClasses int    `json:"forbidden_token_classes"`
	}
	var out []profileInfo
	for _, id := range s.profiles.IDs() {
		p, err := s.profiles.Lookup(id)
		if err != nil {
			continue
		}
		out = append(out, profileInfo{
			ID:               p.ID,
			DisplayName:      p.DisplayName,
			RequireStructure: p.RequiresCanonicalStructure,
			ForbiddenClasses: len(p.ForbiddenTokens),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": out})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("api: request failed", "status", status, "error", err)
	} else {
		logger.Warn("api: request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
