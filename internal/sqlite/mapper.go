// File path: internal/sqlite/mapper.go
package sqlite

import (
	"strings"

	"github.com/clearscribe/notewright/internal/merge"
	"github.com/clearscribe/notewright/internal/note"
)

func sectionFromRow(sectionType, title, content string, position int, confidence float64) note.Section {
	return note.Section{
		Type:       note.SectionType(sectionType),
		Title:      title,
		Content:    content,
		Order:      position,
		Confidence: confidence,
		Metadata: note.SectionMetadata{
			WordCount:      len(strings.Fields(content)),
			IsStandardized: confidence >= note.ConfidenceAlias,
		},
	}
}

func recordFromRow(sectionType, action, original, updated, reason string, confidence float64) merge.ChangeRecord {
	return merge.ChangeRecord{
		SectionType:     note.SectionType(sectionType),
		Action:          merge.Action(action),
		OriginalContent: original,
		NewContent:      updated,
		Reason:          reason,
		Confidence:      confidence,
	}
}
