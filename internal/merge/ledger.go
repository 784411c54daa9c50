// File path: internal/merge/ledger.go
package merge

import "github.com/clearscribe/notewright/internal/note"

// Action is what happened to one section during a merge.
type Action string

const (
	ActionPreserved Action = "preserved"
	ActionUpdated   Action = "updated"
	ActionMerged    Action = "merged"
	ActionAdded     Action = "added"
)

// ChangeRecord is the per-section audit entry for one merge operation. The
// full list forms the change ledger handed to the caller; the engine itself
// persists nothing.
type ChangeRecord struct {
	SectionType     note.SectionType `json:"section_type"`
	Action          Action           `json:"action"`
	OriginalContent string           `json:"original_content"`
	NewContent      string           `json:"new_content"`
	Reason          string           `json:"reason"`
	Confidence      float64          `json:"confidence"`
}

func actionForStrategy(s Strategy) Action {
	if s == StrategyMerge {
		return ActionMerged
	}
	return ActionUpdated
}
