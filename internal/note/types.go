// File path: internal/note/types.go
package note

import "strings"

// SectionType identifies a canonical clinical note section. The set is closed;
// section types are never inferred dynamically.
type SectionType string

const (
	SectionChiefComplaint     SectionType = "chief_complaint"
	SectionHPI                SectionType = "hpi"
	SectionSubjective         SectionType = "subjective"
	SectionReviewOfSystems    SectionType = "review_of_systems"
	SectionPastMedicalHistory SectionType = "past_medical_history"
	SectionMedications        SectionType = "medications"
	SectionAllergies          SectionType = "allergies"
	SectionSocialHistory      SectionType = "social_history"
	SectionFamilyHistory      SectionType = "family_history"
	SectionVitals             SectionType = "vitals"
	SectionObjective          SectionType = "objective"
	SectionPhysicalExam       SectionType = "physical_exam"
	SectionPsychiatricExam    SectionType = "psychiatric_exam"
	SectionResults            SectionType = "results"
	SectionAssessment         SectionType = "assessment"
	SectionPlan               SectionType = "plan"
	SectionAssessmentAndPlan  SectionType = "assessment_and_plan"
	SectionMedicationsPlan    SectionType = "medications_plan"
	SectionFollowUp           SectionType = "follow_up"
	SectionOther              SectionType = "other"
	SectionUnstructured       SectionType = "unstructured"
)

// Confidence tiers assigned by the parser.
const (
	ConfidenceExact     = 1.0
	ConfidenceAlias     = 0.8
	ConfidenceHeuristic = 0.5
	ConfidenceUnknown   = 0.3
)

// SectionMetadata carries provenance details for a parsed section.
type SectionMetadata struct {
	OriginalHeading string `json:"original_heading"`
	WordCount       int    `json:"word_count"`
	IsStandardized  bool   `json:"is_standardized"`
}

// Section is one typed, ordered slice of a clinical note. Sections are
// immutable once produced by a parse call.
type Section struct {
	Type       SectionType     `json:"type"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Order      int             `json:"order"`
	Confidence float64         `json:"confidence"`
	Metadata   SectionMetadata `json:"metadata"`
}

// ParseMetadata summarizes a parse call.
type ParseMetadata struct {
	OverallConfidence        float64  `json:"overall_confidence"`
	StandardizedSectionCount int      `json:"standardized_section_count"`
	Warnings                 []string `json:"warnings,omitempty"`
}

// ParsedNote is the ordered section decomposition of a note. Section order is
// document order and is preserved through all downstream transformations.
type ParsedNote struct {
	Sections []Section     `json:"sections"`
	Metadata ParseMetadata `json:"parse_metadata"`
}

// Types returns the ordered section-type sequence of the note.
func (n *ParsedNote) Types() []SectionType {
	out := make([]SectionType, 0, len(n.Sections))
	for _, s := range n.Sections {
		out = append(out, s.Type)
	}
	return out
}

// Section returns the first section of the given type, if present.
func (n *ParsedNote) Section(t SectionType) (Section, bool) {
	for _, s := range n.Sections {
		if s.Type == t {
			return s, true
		}
	}
	return Section{}, false
}

// Render reassembles sections into note text. Each section contributes its
// original heading line (or the canonical heading when the section was
// synthesized without one) followed by its content. Heading text round-trips
// through Parse.
func Render(sections []Section) string {
	var sb strings.Builder
	for i, s := range sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		heading := strings.TrimSpace(s.Metadata.OriginalHeading)
		if heading == "" {
			heading = CanonicalHeading(s.Type) + ":"
		}
		sb.WriteString(heading)
		sb.WriteString("\n")
		sb.WriteString(s.Content)
	}
	return sb.String()
}

// Text renders the whole note back to plain text in document order.
func (n *ParsedNote) Text() string {
	return Render(n.Sections)
}
