// File path: internal/emr/validator.go
package emr

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clearscribe/notewright/internal/common"
	"github.com/clearscribe/notewright/internal/note"
)

// ValidationResult reports hard errors and soft warnings for a note body
// checked against a profile.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validate checks noteText against the profile's syntax rules. Forbidden
// placeholder tokens and missing required structure are errors; length bounds
// and absence of any structure markers are warnings. Validate is pure and
// safe for concurrent use.
func Validate(noteText string, profile *Profile) ValidationResult {
	result := ValidationResult{IsValid: true}
	if profile == nil {
		result.IsValid = false
		result.Errors = append(result.Errors, "emr profile required")
		return result
	}

	for _, tok := range profile.ForbiddenTokens {
		matches := tok.Pattern.FindAllString(noteText, -1)
		if len(matches) == 0 {
			continue
		}
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf(
			"forbidden %s token present (%d occurrence(s), first %q)",
			tok.Class, len(matches), strings.TrimSpace(matches[0])))
	}

	parsed := note.Parse(noteText, profile.ParseOptions()...)
	if profile.RequiresCanonicalStructure {
		present := make(map[note.SectionType]bool)
		for _, s := range parsed.Sections {
			if s.Metadata.IsStandardized {
				present[s.Type] = true
			}
		}
		for _, required := range profile.CanonicalStructureSections {
			if !present[required] {
				result.IsValid = false
				result.Errors = append(result.Errors,
					"missing required section: "+note.CanonicalHeading(required))
			}
		}
	}

	if parsed.Metadata.StandardizedSectionCount == 0 {
		result.Warnings = append(result.Warnings, "no recognized section structure in note")
	}
	if profile.MaxNoteRunes > 0 && utf8.RuneCountInString(noteText) > profile.MaxNoteRunes {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"note exceeds %d characters for profile %s", profile.MaxNoteRunes, profile.ID))
	}

	if !result.IsValid {
		common.Logger().Debug("validator: note failed compliance",
			"profile", profile.ID, "errors", len(result.Errors))
	}
	return result
}

// Sanitize strips every forbidden token from noteText by pattern replacement.
// It is deliberately dumb: a deterministic last-resort compliance guarantee,
// not a quality improvement. Pure function; no-op for a nil profile.
func Sanitize(noteText string, profile *Profile) string {
	if profile == nil {
		return noteText
	}
	out := noteText
	for _, tok := range profile.ForbiddenTokens {
		if tok.Replacement != "" {
			out = tok.Pattern.ReplaceAllString(out, tok.Replacement)
			continue
		}
		// Preserve the leading whitespace captured by patterns anchored on it.
		out = tok.Pattern.ReplaceAllStringFunc(out, func(m string) string {
			if len(m) > 0 && (m[0] == ' ' || m[0] == '\t' || m[0] == '\n') {
				return string(m[0])
			}
			return ""
		})
	}
	return out
}
