// File path: internal/sqlite/archive.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clearscribe/notewright/internal/merge"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS merged_notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		used_fallback INTEGER NOT NULL DEFAULT 0,
		retried INTEGER NOT NULL DEFAULT 0,
		sanitized INTEGER NOT NULL DEFAULT 0,
		is_valid INTEGER NOT NULL DEFAULT 0,
		final_text TEXT NOT NULL,
		validation_json TEXT NOT NULL,
		warnings_json TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS note_sections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id INTEGER NOT NULL REFERENCES merged_notes(id) ON DELETE CASCADE,
		section_type TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		position INTEGER NOT NULL,
		confidence REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS change_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id INTEGER NOT NULL REFERENCES merged_notes(id) ON DELETE CASCADE,
		section_type TEXT NOT NULL,
		action TEXT NOT NULL,
		original_content TEXT NOT NULL,
		new_content TEXT NOT NULL,
		reason TEXT NOT NULL,
		confidence REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_note_sections_note ON note_sections(note_id)`,
	`CREATE INDEX IF NOT EXISTS idx_change_records_note ON change_records(note_id)`,
}

// NoteSummary is the list-view row of an archived merge.
type NoteSummary struct {
	ID           int64     `db:"id" json:"id"`
	ProfileID    string    `db:"profile_id" json:"profile_id"`
	Provider     string    `db:"provider" json:"provider"`
	UsedFallback bool      `db:"used_fallback" json:"used_fallback"`
	Retried      bool      `db:"retried" json:"retried"`
	Sanitized    bool      `db:"sanitized" json:"sanitized"`
	IsValid      bool      `db:"is_valid" json:"is_valid"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ArchivedNote is a full archived merge: the summary plus the final text and
// the reconstructed result payload.
type ArchivedNote struct {
	NoteSummary
	FinalText string            `json:"final_text"`
	Result    *merge.MergedNote `json:"result"`
}

// SaveMerge archives one merge result with its sections and change ledger in
// a single transaction and returns the new note ID.
func (s *Store) SaveMerge(ctx context.Context, profileID string, result *merge.MergedNote) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("archive store not initialised")
	}
	if result == nil {
		return 0, errors.New("merge result required")
	}
	validationJSON, err := json.Marshal(result.Validation)
	if err != nil {
		return 0, fmt.Errorf("encode validation: %w", err)
	}
	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return 0, fmt.Errorf("encode warnings: %w", err)
	}

	var noteID int64
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO merged_notes
				(profile_id, provider, used_fallback, retried, sanitized, is_valid, final_text, validation_json, warnings_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			profileID, result.Provider, result.UsedFallback, result.Retried,
			result.Sanitized, result.Validation.IsValid, result.FinalText,
			string(validationJSON), string(warningsJSON), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("insert merged note: %w", err)
		}
		noteID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("resolve note id: %w", err)
		}
		for _, section := range result.Sections {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO note_sections (note_id, section_type, title, content, position, confidence)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				noteID, string(section.Type), section.Title, section.Content,
				section.Order, section.Confidence); err != nil {
				return fmt.Errorf("insert section %s: %w", section.Type, err)
			}
		}
		for _, record := range result.Ledger {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO change_records (note_id, section_type, action, original_content, new_content, reason, confidence)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				noteID, string(record.SectionType), string(record.Action),
				record.OriginalContent, record.NewContent, record.Reason,
				record.Confidence); err != nil {
				return fmt.Errorf("insert change record %s: %w", record.SectionType, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return noteID, nil
}

// ListNotes returns the most recent archived merges, newest first.
func (s *Store) ListNotes(ctx context.Context, limit int) ([]NoteSummary, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("archive store not initialised")
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []NoteSummary
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, profile_id, provider, used_fallback, retried, sanitized, is_valid, created_at
		 FROM merged_notes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return rows, nil
}

// ErrNoteNotFound is returned when an archived note ID does not exist.
var ErrNoteNotFound = errors.New("archived note not found")

// GetNote loads one archived merge with its sections and change ledger.
func (s *Store) GetNote(ctx context.Context, id int64) (*ArchivedNote, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("archive store not initialised")
	}
	var head struct {
		NoteSummary
		FinalText      string `db:"final_text"`
		ValidationJSON string `db:"validation_json"`
		WarningsJSON   sql.NullString `db:"warnings_json"`
	}
	err := s.db.GetContext(ctx, &head,
		`SELECT id, profile_id, provider, used_fallback, retried, sanitized, is_valid,
		        created_at, final_text, validation_json, warnings_json
		 FROM merged_notes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load note %d: %w", id, err)
	}

	result := &merge.MergedNote{
		FinalText:    head.FinalText,
		Provider:     head.Provider,
		UsedFallback: head.UsedFallback,
		Retried:      head.Retried,
		Sanitized:    head.Sanitized,
	}
	if err := json.Unmarshal([]byte(head.ValidationJSON), &result.Validation); err != nil {
		return nil, fmt.Errorf("decode validation for note %d: %w", id, err)
	}
	if head.WarningsJSON.Valid && head.WarningsJSON.String != "" {
		if err := json.Unmarshal([]byte(head.WarningsJSON.String), &result.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings for note %d: %w", id, err)
		}
	}

	var sectionRows []struct {
		SectionType string  `db:"section_type"`
		Title       string  `db:"title"`
		Content     string  `db:"content"`
		Position    int     `db:"position"`
		Confidence  float64 `db:"confidence"`
	}
	if err := s.db.SelectContext(ctx, &sectionRows,
		`SELECT section_type, title, content, position, confidence
		 FROM note_sections WHERE note_id = ? ORDER BY position`, id); err != nil {
		return nil, fmt.Errorf("load sections for note %d: %w", id, err)
	}
	for _, row := range sectionRows {
		result.Sections = append(result.Sections, sectionFromRow(row.SectionType, row.Title, row.Content, row.Position, row.Confidence))
	}

	var changeRows []struct {
		SectionType     string  `db:"section_type"`
		Action          string  `db:"action"`
		OriginalContent string  `db:"original_content"`
		NewContent      string  `db:"new_content"`
		Reason          string  `db:"reason"`
		Confidence      float64 `db:"confidence"`
	}
	if err := s.db.SelectContext(ctx, &changeRows,
		`SELECT section_type, action, original_content, new_content, reason, confidence
		 FROM change_records WHERE note_id = ? ORDER BY id`, id); err != nil {
		return nil, fmt.Errorf("load change records for note %d: %w", id, err)
	}
	for _, row := range changeRows {
		result.Ledger = append(result.Ledger, recordFromRow(row.SectionType, row.Action, row.OriginalContent, row.NewContent, row.Reason, row.Confidence))
	}

	return &ArchivedNote{NoteSummary: head.NoteSummary, FinalText: head.FinalText, Result: result}, nil
}
