// File path: internal/note/parser.go
package note

import (
	"regexp"
	"strings"

	"github.com/clearscribe/notewright/internal/common"
)

const maxHeadingLen = 64

var (
	colonHeadingRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9 _/&'.()-]*:$`)
	// Digits are excluded so vitals lines like "BP 120/80" never read as headings.
	capsHeadingRe = regexp.MustCompile(`^[A-Z][A-Z _/&-]{0,40}$`)
)

// ParseOption adjusts a single parse call.
type ParseOption func(*parseConfig)

type parseConfig struct {
	extraAliases map[string]SectionType
}

// WithExtraAliases merges institution-specific heading aliases into the
// built-in alias table for this parse call. Aliases mapping to unknown
// section types are ignored.
func WithExtraAliases(aliases map[string]SectionType) ParseOption {
	return func(c *parseConfig) {
		c.extraAliases = aliases
	}
}

// Parse decomposes raw note text into ordered typed sections. It never fails:
// text with no recognizable structure degrades to a heuristic split, and in
// the worst case to a single UNSTRUCTURED section with confidence zero.
// Parse is a pure function of its inputs and safe for concurrent use.
func Parse(rawText string, opts ...ParseOption) *ParsedNote {
	cfg := parseConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	table := newAliasTable(cfg.extraAliases)

	if strings.TrimSpace(rawText) == "" {
		return &ParsedNote{
			Sections: []Section{unstructuredSection(rawText)},
			Metadata: ParseMetadata{Warnings: []string{"empty note text"}},
		}
	}

	lines := strings.Split(rawText, "\n")
	headings := findHeadings(lines, table)
	if len(headings) == 0 {
		return heuristicParse(rawText, lines)
	}
	return headingParse(lines, headings, table)
}

type headingMark struct {
	line int
	raw  string
}

func findHeadings(lines []string, table *aliasTable) []headingMark {
	var marks []headingMark
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) > maxHeadingLen {
			continue
		}
		if colonHeadingRe.MatchString(trimmed) || capsHeadingRe.MatchString(trimmed) || table.contains(trimmed) {
			marks = append(marks, headingMark{line: i, raw: trimmed})
		}
	}
	return marks
}

func headingParse(lines []string, headings []headingMark, table *aliasTable) *ParsedNote {
	logger := common.Logger()
	var sections []Section
	var warnings []string
	order := 0

	if preamble := trimBlankEdges(lines[:headings[0].line]); preamble != "" {
		sections = append(sections, Section{
			Type:       SectionOther,
			Title:      "Preamble",
			Content:    preamble,
			Order:      order,
			Confidence: ConfidenceUnknown,
			Metadata:   SectionMetadata{WordCount: len(strings.Fields(preamble))},
		})
		order++
		warnings = append(warnings, "content before first recognized heading preserved as OTHER")
	}

	for i, mark := range headings {
		bodyStart := mark.line + 1
		bodyEnd := len(lines)
		if i+1 < len(headings) {
			bodyEnd = headings[i+1].line
		}
		content := trimBlankEdges(lines[bodyStart:bodyEnd])

		typ, confidence, ok := table.resolve(mark.raw)
		if !ok {
			if t, matched := classifyByKeywords(content); matched {
				typ, confidence = t, ConfidenceHeuristic
				warnings = append(warnings, "heading "+quoteHeading(mark.raw)+" resolved by keyword heuristic")
			} else {
				typ, confidence = SectionOther, ConfidenceUnknown
				warnings = append(warnings, "unrecognized heading "+quoteHeading(mark.raw)+" preserved as OTHER")
			}
		}

		sections = append(sections, Section{
			Type:       typ,
			Title:      strings.TrimSuffix(mark.raw, ":"),
			Content:    content,
			Order:      order,
			Confidence: confidence,
			Metadata: SectionMetadata{
				OriginalHeading: mark.raw,
				WordCount:       len(strings.Fields(content)),
				IsStandardized:  confidence >= ConfidenceAlias,
			},
		})
		order++
	}

	meta := summarize(sections, warnings)
	logger.Debug("parser: heading parse complete",
		"sections", len(sections),
		"standardized", meta.StandardizedSectionCount,
		"confidence", meta.OverallConfidence)
	return &ParsedNote{Sections: sections, Metadata: meta}
}

// heuristicParse buckets a heading-free note into the SOAP-style split.
// Confidence on this path is capped at the heuristic tier.
func heuristicParse(rawText string, lines []string) *ParsedNote {
	logger := common.Logger()
	buckets := make(map[SectionType][]string)
	var firstMatched SectionType
	var current SectionType
	var pending []string

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if typ, ok := bucketForLine(line); ok {
			if firstMatched == "" {
				firstMatched = typ
			}
			current = typ
		}
		if current == "" {
			pending = append(pending, line)
			continue
		}
		buckets[current] = append(buckets[current], line)
	}

	if firstMatched == "" {
		return &ParsedNote{
			Sections: []Section{unstructuredSection(rawText)},
			Metadata: ParseMetadata{Warnings: []string{"no recognized section headings; text left unstructured"}},
		}
	}
	if len(pending) > 0 {
		buckets[firstMatched] = append(pending, buckets[firstMatched]...)
	}

	var sections []Section
	order := 0
	for _, b := range heuristicBuckets {
		bodyLines, ok := buckets[b.Type]
		if !ok {
			continue
		}
		content := strings.Join(bodyLines, "\n")
		sections = append(sections, Section{
			Type:       b.Type,
			Title:      CanonicalHeading(b.Type),
			Content:    content,
			Order:      order,
			Confidence: ConfidenceHeuristic,
			Metadata:   SectionMetadata{WordCount: len(strings.Fields(content))},
		})
		order++
	}

	warnings := []string{"no recognized section headings; heuristic split applied"}
	meta := summarize(sections, warnings)
	logger.Debug("parser: heuristic split applied", "sections", len(sections))
	return &ParsedNote{Sections: sections, Metadata: meta}
}

func unstructuredSection(rawText string) Section {
	return Section{
		Type:       SectionUnstructured,
		Title:      CanonicalHeading(SectionUnstructured),
		Content:    rawText,
		Confidence: 0,
		Metadata:   SectionMetadata{WordCount: len(strings.Fields(rawText))},
	}
}

func summarize(sections []Section, warnings []string) ParseMetadata {
	meta := ParseMetadata{Warnings: warnings}
	var weighted float64
	var total int
	for _, s := range sections {
		weight := len(s.Content)
		if weight == 0 {
			weight = 1
		}
		weighted += s.Confidence * float64(weight)
		total += weight
		if s.Confidence >= ConfidenceAlias {
			meta.StandardizedSectionCount++
		}
	}
	if total > 0 {
		meta.OverallConfidence = weighted / float64(total)
	}
	return meta
}

func trimBlankEdges(lines []string) string {
	start := 0
	end := len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

func quoteHeading(heading string) string {
	return "\"" + heading + "\""
}
