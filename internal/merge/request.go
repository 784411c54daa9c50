// File path: internal/merge/request.go
package merge

import (
	"github.com/clearscribe/notewright/internal/emr"
	"github.com/clearscribe/notewright/internal/llm"
	"github.com/clearscribe/notewright/internal/note"
)

// buildRequestSpec assembles the scoped generation request: the full previous
// note for continuity context, the new transcript, the profile's syntax
// rules, and the section types eligible to change. Strict marks the single
// narrower retry after a compliance violation.
func buildRequestSpec(prev *note.ParsedNote, transcript string, updated []note.SectionType, profile *emr.Profile, strict bool) llm.RequestSpec {
	allowed := make([]string, 0, len(updated))
	for _, t := range updated {
		allowed = append(allowed, note.CanonicalHeading(t))
	}
	return llm.RequestSpec{
		FullContextText:     prev.Text(),
		TranscriptText:      transcript,
		AllowedSections:     allowed,
		ComplianceProfileID: profile.ID,
		SyntaxRules:         profile.SyntaxRules(),
		Strict:              strict,
	}
}
