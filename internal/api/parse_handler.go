// File path: internal/api/parse_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/clearscribe/notewright/internal/common"
	"github.com/clearscribe/notewright/internal/common/telemetry"
	"github.com/clearscribe/notewright/internal/emr"
	"github.com/clearscribe/notewright/internal/note"
)

type noteRequest struct {
	Text      string `json:"text"`
	ProfileID string `json:"profile_id"`
}

func (s *Server) decodeNoteRequest(w http.ResponseWriter, r *http.Request) (noteRequest, *emr.Profile, bool) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return noteRequest{}, nil, false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("text required"))
		return noteRequest{}, nil, false
	}
	profile, err := s.lookupProfile(req.ProfileID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return noteRequest{}, nil, false
	}
	return req, profile, true
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, profile, ok := s.decodeNoteRequest(w, r)
	if !ok {
		return
	}
	telemetry.RecordParse()
	parsed := note.Parse(req.Text, profile.ParseOptions()...)
	common.Logger().Info("api: parse request",
		"profile", profile.ID,
		"sections", len(parsed.Sections),
		"standardized", parsed.Metadata.StandardizedSectionCount)
	writeJSON(w, http.StatusOK, parsed)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, profile, ok := s.decodeNoteRequest(w, r)
	if !ok {
		return
	}
	result := emr.Validate(req.Text, profile)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	req, profile, ok := s.decodeNoteRequest(w, r)
	if !ok {
		return
	}
	clean := emr.Sanitize(req.Text, profile)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"text":       clean,
		"changed":    clean != req.Text,
		"profile_id": profile.ID,
	})
}
