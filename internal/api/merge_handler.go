// File path: internal/api/merge_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/clearscribe/notewright/internal/common"
	"github.com/clearscribe/notewright/internal/merge"
	"github.com/clearscribe/notewright/internal/note"
)

type mergeRequest struct {
	PreviousNote string                            `json:"previous_note"`
	Transcript   string                            `json:"transcript"`
	ProfileID    string                            `json:"profile_id"`
	Selection    map[string]merge.SectionSelection `json:"selection"`
}

type mergeResponse struct {
	NoteID int64             `json:"note_id,omitempty"`
	Result *merge.MergedNote `json:"result"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.PreviousNote) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("previous_note required"))
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("transcript required"))
		return
	}
	profile, err := s.lookupProfile(req.ProfileID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	selection := make(merge.SelectionConfig, len(req.Selection))
	for raw, sel := range req.Selection {
		selection[note.SectionType(strings.TrimSpace(raw))] = sel
	}

	prev := note.Parse(req.PreviousNote, profile.ParseOptions()...)
	logger.Info("api: merge request",
		"profile", profile.ID,
		"prev_sections", len(prev.Sections),
		"selected", len(selection))

	result, err := s.engine.MergeUpdate(r.Context(), prev, req.Transcript, selection, profile)
	if err != nil {
		var cfgErr *merge.ConfigurationError
		var provErr *merge.BothProvidersFailed
		switch {
		case errors.As(err, &cfgErr):
			writeError(w, http.StatusBadRequest, err)
		case errors.As(err, &provErr):
			writeError(w, http.StatusBadGateway, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	resp := mergeResponse{Result: result}
	if s.archive != nil {
		noteID, saveErr := s.archive.SaveMerge(r.Context(), profile.ID, result)
		if saveErr != nil {
			logger.Error("api: failed to archive merge", "error", saveErr)
		} else {
			resp.NoteID = noteID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
