// File path: internal/note/alias.go
package note

import "strings"

// sectionSpec describes how one canonical section type is recognized: its
// canonical heading (exact tier), known heading aliases (alias tier), and a
// keyword bag for the fuzzy tier. Declaration order in sectionCatalog is the
// deterministic tie-break of last resort.
type sectionSpec struct {
	Type     SectionType
	Heading  string
	Aliases  []string
	Keywords []string
}

var sectionCatalog = []sectionSpec{
	{
		Type:     SectionChiefComplaint,
		Heading:  "Chief Complaint",
		Aliases:  []string{"CC", "Presenting Complaint", "Reason for Visit"},
		Keywords: []string{"presents", "complains", "chief", "reason"},
	},
	{
		Type:     SectionHPI,
		Heading:  "History of Present Illness",
		Aliases:  []string{"HPI", "Present Illness", "History of Presenting Illness", "Interval History"},
		Keywords: []string{"onset", "duration", "symptoms", "reports", "denies", "worsening"},
	},
	{
		Type:     SectionSubjective,
		Heading:  "Subjective",
		Aliases:  []string{"S"},
		Keywords: []string{"reports", "states", "feels", "describes", "complains", "denies"},
	},
	{
		Type:     SectionReviewOfSystems,
		Heading:  "Review of Systems",
		Aliases:  []string{"ROS", "Systems Review", "10-Point ROS"},
		Keywords: []string{"constitutional", "cardiovascular", "respiratory", "negative", "endorses"},
	},
	{
		Type:     SectionPastMedicalHistory,
		Heading:  "Past Medical History",
		Aliases:  []string{"PMH", "PMHx", "Medical History", "Past Psychiatric History"},
		Keywords: []string{"diagnosed", "history", "prior", "chronic", "hospitalization"},
	},
	{
		Type:     SectionMedications,
		Heading:  "Medications",
		Aliases:  []string{"Meds", "Current Medications", "Medication List", "Home Medications"},
		Keywords: []string{"mg", "daily", "tablet", "dose", "prn", "capsule"},
	},
	{
		Type:     SectionAllergies,
		Heading:  "Allergies",
		Aliases:  []string{"Drug Allergies", "NKDA", "Allergies and Intolerances"},
		Keywords: []string{"allergy", "allergic", "reaction", "intolerance", "rash"},
	},
	{
		Type:     SectionSocialHistory,
		Heading:  "Social History",
		Aliases:  []string{"SH", "SHx", "Social Hx"},
		Keywords: []string{"tobacco", "alcohol", "lives", "employed", "smokes", "substance"},
	},
	{
		Type:     SectionFamilyHistory,
		Heading:  "Family History",
		Aliases:  []string{"FH", "FHx", "Family Hx"},
		Keywords: []string{"mother", "father", "sibling", "family", "hereditary"},
	},
	{
		Type:     SectionVitals,
		Heading:  "Vital Signs",
		Aliases:  []string{"Vitals", "VS"},
		Keywords: []string{"bp", "pulse", "temp", "respirations", "spo2", "bmi"},
	},
	{
		Type:     SectionObjective,
		Heading:  "Objective",
		Aliases:  []string{"O"},
		Keywords: []string{"exam", "observed", "alert", "oriented", "auscultation", "palpation"},
	},
	{
		Type:     SectionPhysicalExam,
		Heading:  "Physical Exam",
		Aliases:  []string{"PE", "Physical Examination", "Exam"},
		Keywords: []string{"heent", "lungs", "abdomen", "extremities", "neuro", "cardiac"},
	},
	{
		Type:     SectionPsychiatricExam,
		Heading:  "Psychiatric Exam",
		Aliases:  []string{"Mental Status Exam", "MSE", "Mental Status Examination", "Psych Exam"},
		Keywords: []string{"mood", "affect", "insight", "judgment", "thought", "orientation"},
	},
	{
		Type:     SectionResults,
		Heading:  "Results",
		Aliases:  []string{"Labs", "Lab Results", "Diagnostics", "Imaging"},
		Keywords: []string{"wbc", "hgb", "glucose", "xray", "ekg", "result"},
	},
	{
		Type:     SectionAssessment,
		Heading:  "Assessment",
		Aliases:  []string{"A", "Impression", "Diagnosis"},
		Keywords: []string{"assessment", "impression", "diagnosis", "differential", "likely"},
	},
	{
		Type:     SectionPlan,
		Heading:  "Plan",
		Aliases:  []string{"P", "Treatment Plan", "Plan of Care"},
		Keywords: []string{"continue", "start", "order", "refer", "increase", "discontinue"},
	},
	{
		Type:     SectionAssessmentAndPlan,
		Heading:  "Assessment and Plan",
		Aliases:  []string{"A&P", "A/P", "Assessment & Plan", "Impression and Plan"},
		Keywords: []string{"assessment", "plan", "continue", "diagnosis", "impression"},
	},
	{
		Type:     SectionMedicationsPlan,
		Heading:  "Medication Plan",
		Aliases:  []string{"Medication Changes", "Med Changes", "Medication Adjustments"},
		Keywords: []string{"titrate", "taper", "increase", "decrease", "switch", "initiate"},
	},
	{
		Type:     SectionFollowUp,
		Heading:  "Follow Up",
		Aliases:  []string{"Follow-Up", "F/U", "Return to Clinic", "Disposition", "Next Appointment"},
		Keywords: []string{"weeks", "return", "appointment", "schedule", "recheck", "rtc"},
	},
}

// canonicalHeadings is derived from the catalog for rendering synthesized
// sections and prompt construction.
var canonicalHeadings = func() map[SectionType]string {
	m := make(map[SectionType]string, len(sectionCatalog)+2)
	for _, spec := range sectionCatalog {
		m[spec.Type] = spec.Heading
	}
	m[SectionOther] = "Other"
	m[SectionUnstructured] = "Note"
	return m
}()

// CanonicalHeading returns the canonical heading text for a section type.
func CanonicalHeading(t SectionType) string {
	if h, ok := canonicalHeadings[t]; ok {
		return h
	}
	return "Other"
}

// KnownType reports whether t is one of the catalogued canonical types
// (OTHER and UNSTRUCTURED included).
func KnownType(t SectionType) bool {
	_, ok := canonicalHeadings[t]
	return ok
}

// aliasEntry is one resolvable heading string.
type aliasEntry struct {
	heading string // normalized
	typ     SectionType
	exact   bool // canonical heading, not an alias
	order   int  // declaration order for tie-breaking
}

// aliasTable resolves normalized heading strings to section types.
type aliasTable struct {
	entries map[string][]aliasEntry
}

func normalizeHeading(raw string) string {
	h := strings.TrimSpace(raw)
	h = strings.TrimSuffix(h, ":")
	h = strings.Join(strings.Fields(h), " ")
	return strings.ToLower(h)
}

func newAliasTable(extra map[string]SectionType) *aliasTable {
	t := &aliasTable{entries: make(map[string][]aliasEntry)}
	order := 0
	add := func(heading string, typ SectionType, exact bool) {
		key := normalizeHeading(heading)
		if key == "" {
			return
		}
		t.entries[key] = append(t.entries[key], aliasEntry{heading: key, typ: typ, exact: exact, order: order})
		order++
	}
	for _, spec := range sectionCatalog {
		add(spec.Heading, spec.Type, true)
		for _, alias := range spec.Aliases {
			add(alias, spec.Type, false)
		}
	}
	for heading, typ := range extra {
		if KnownType(typ) {
			add(heading, typ, false)
		}
	}
	return t
}

// resolve maps a raw heading line to a section type and tier. When a heading
// matches multiple entries, the longer alias string wins; remaining ties fall
// back to declaration order.
func (t *aliasTable) resolve(raw string) (SectionType, float64, bool) {
	key := normalizeHeading(raw)
	candidates := t.entries[key]
	if len(candidates) == 0 {
		return "", 0, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.heading) > len(best.heading) {
			best = c
			continue
		}
		if len(c.heading) == len(best.heading) && c.order < best.order {
			best = c
		}
	}
	if best.exact {
		return best.typ, ConfidenceExact, true
	}
	return best.typ, ConfidenceAlias, true
}

// contains reports whether the normalized heading appears anywhere in the table.
func (t *aliasTable) contains(raw string) bool {
	_, ok := t.entries[normalizeHeading(raw)]
	return ok
}

// classifyByKeywords scans body text against every catalogued keyword bag and
// returns the best-matching type when at least two distinct keywords hit.
func classifyByKeywords(body string) (SectionType, bool) {
	lower := strings.ToLower(body)
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		words[w] = struct{}{}
	}
	bestType := SectionType("")
	bestHits := 0
	for _, spec := range sectionCatalog {
		hits := 0
		for _, kw := range spec.Keywords {
			if _, ok := words[kw]; ok {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestType = spec.Type
		}
	}
	if bestHits >= 2 {
		return bestType, true
	}
	return "", false
}

// heuristicBuckets define the whole-text fallback split applied when no
// heading is recognized anywhere in a note. Order is the fixed canonical
// output order for synthesized sections.
var heuristicBuckets = []struct {
	Type     SectionType
	Keywords []string
}{
	{SectionSubjective, []string{"reports", "states", "feels", "denies", "complains", "describes", "presents"}},
	{SectionObjective, []string{"exam", "vitals", "bp", "pulse", "alert", "oriented", "observed", "labs"}},
	{SectionAssessment, []string{"assessment", "impression", "diagnosis", "likely", "consistent", "differential"}},
	{SectionPlan, []string{"plan", "continue", "start", "follow", "refer", "order", "increase", "schedule"}},
}

func bucketForLine(line string) (SectionType, bool) {
	lower := strings.ToLower(line)
	for _, b := range heuristicBuckets {
		for _, kw := range b.Keywords {
			if containsWord(lower, kw) {
				return b.Type, true
			}
		}
	}
	return "", false
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordRune(rune(haystack[start-1]))
		afterOK := end == len(haystack) || !isWordRune(rune(haystack[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordRune(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}

// CatalogTypes returns the catalogued section types in declaration order,
// excluding OTHER and UNSTRUCTURED.
func CatalogTypes() []SectionType {
	out := make([]SectionType, 0, len(sectionCatalog))
	for _, spec := range sectionCatalog {
		out = append(out, spec.Type)
	}
	return out
}
