// File path: internal/merge/selection.go
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clearscribe/notewright/internal/note"
)

// Strategy controls how an updated section's new content combines with the
// previous content.
type Strategy string

const (
	StrategyReplace Strategy = "replace"
	StrategyAppend  Strategy = "append"
	StrategyMerge   Strategy = "merge"
)

// SectionSelection is the operator's decision for one section type.
type SectionSelection struct {
	Update   bool     `json:"update"`
	Strategy Strategy `json:"strategy,omitempty"`
}

// SelectionConfig maps section types to update decisions. Types absent from
// the map are preserved.
type SelectionConfig map[note.SectionType]SectionSelection

// Validate checks the selection against the section types actually present in
// prev. A selection referencing an absent type is a caller bug and rejected
// up front.
func (c SelectionConfig) Validate(prev *note.ParsedNote) error {
	if prev == nil || len(prev.Sections) == 0 {
		return &ConfigurationError{Reason: "previous note has no sections"}
	}
	present := make(map[note.SectionType]bool, len(prev.Sections))
	for _, s := range prev.Sections {
		present[s.Type] = true
	}
	var missing []string
	for t, sel := range c {
		if !note.KnownType(t) {
			return &ConfigurationError{Reason: fmt.Sprintf("selection references unknown section type %q", t)}
		}
		switch sel.Strategy {
		case "", StrategyReplace, StrategyAppend, StrategyMerge:
		default:
			return &ConfigurationError{Reason: fmt.Sprintf("selection for %s has invalid strategy %q", t, sel.Strategy)}
		}
		if !present[t] {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ConfigurationError{Reason: "selection references section types absent from previous note: " + strings.Join(missing, ", ")}
	}
	return nil
}

// updatedTypes returns the selected-for-update types in prev's document order.
func (c SelectionConfig) updatedTypes(prev *note.ParsedNote) []note.SectionType {
	var out []note.SectionType
	seen := make(map[note.SectionType]bool)
	for _, s := range prev.Sections {
		if seen[s.Type] {
			continue
		}
		seen[s.Type] = true
		if sel, ok := c[s.Type]; ok && sel.Update {
			out = append(out, s.Type)
		}
	}
	return out
}

func (c SelectionConfig) strategyFor(t note.SectionType) Strategy {
	sel, ok := c[t]
	if !ok || sel.Strategy == "" {
		return StrategyReplace
	}
	return sel.Strategy
}
