// File path: internal/merge/engine.go
package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearscribe/notewright/internal/common"
	"github.com/clearscribe/notewright/internal/common/telemetry"
	"github.com/clearscribe/notewright/internal/emr"
	"github.com/clearscribe/notewright/internal/llm"
	"github.com/clearscribe/notewright/internal/note"
)

// state tracks the merge pipeline position. Transitions are strictly
// sequential; retry bounds are structural, not incidental.
type state int

const (
	stateInit state = iota
	stateRequestBuilt
	stateGenerating
	stateReparsing
	stateSplicing
	stateValidating
	stateRetryGenerating
	stateSanitizing
	stateDone
	stateFailed
)

func (s state) String() string {
	names := [...]string{
		"init", "request_built", "generating", "reparsing", "splicing",
		"validating", "retry_generating", "sanitizing", "done", "failed",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// MergedNote is the product of one selective update: the final text, its
// section decomposition, the per-section change ledger, and the compliance
// verdict. Persistence is the caller's concern.
type MergedNote struct {
	FinalText    string               `json:"final_text"`
	Sections     []note.Section       `json:"sections"`
	Ledger       []ChangeRecord       `json:"change_ledger"`
	Validation   emr.ValidationResult `json:"validation"`
	Provider     string               `json:"provider"`
	UsedFallback bool                 `json:"used_fallback"`
	Retried      bool                 `json:"retried"`
	Sanitized    bool                 `json:"sanitized"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// Engine orchestrates selective note updates. Gateways are injected
// explicitly; the engine holds no other state and is safe for concurrent
// MergeUpdate calls.
type Engine struct {
	primary  llm.Gateway
	fallback llm.Gateway
}

// New constructs an Engine over a primary and a fallback generation gateway.
// The fallback may be nil when no secondary provider exists.
func New(primary, fallback llm.Gateway) *Engine {
	return &Engine{primary: primary, fallback: fallback}
}

// MergeUpdate regenerates the selected sections of prev from the transcript
// and splices them into the preserved original. Sections not selected for
// update are returned byte-identical to prev regardless of generator output.
// The pipeline makes at most four gateway calls (primary plus fallback, once
// more on the single stricter retry) and always terminates through sanitize.
func (e *Engine) MergeUpdate(ctx context.Context, prev *note.ParsedNote, transcript string, selection SelectionConfig, profile *emr.Profile) (*MergedNote, error) {
	logger := common.Logger()
	if profile == nil {
		return nil, &ConfigurationError{Reason: "emr profile required"}
	}
	if err := selection.Validate(prev); err != nil {
		return nil, err
	}
	if err := stepCheck(ctx, stateInit); err != nil {
		return nil, err
	}

	updated := selection.updatedTypes(prev)
	if len(updated) == 0 {
		logger.Info("merge: nothing selected for update; preserving note", "profile", profile.ID)
		result := preserveAll(prev, profile)
		telemetry.RecordMerge(false, false, false)
		return result, nil
	}

	spec := buildRequestSpec(prev, transcript, updated, profile, false)
	logger.Debug("merge: request built", "state", stateRequestBuilt.String(),
		"updated_types", len(updated), "profile", profile.ID)
	if err := stepCheck(ctx, stateRequestBuilt); err != nil {
		return nil, err
	}

	gen, usedFallback, err := e.generate(ctx, spec)
	if err != nil {
		telemetry.RecordMergeFailure()
		return nil, err
	}

	result, err := e.assemble(ctx, prev, gen, selection, profile)
	if err != nil {
		return nil, err
	}
	result.UsedFallback = usedFallback

	retried := false
	if hardViolation(result.Validation) {
		if err := stepCheck(ctx, stateRetryGenerating); err != nil {
			return nil, err
		}
		logger.Warn("merge: compliance violation, issuing single stricter retry",
			"profile", profile.ID, "errors", result.Validation.Errors)
		retried = true
		strictSpec := buildRequestSpec(prev, transcript, updated, profile, true)
		retryGen, retryFallback, retryErr := e.generate(ctx, strictSpec)
		if retryErr != nil {
			telemetry.RecordMergeFailure()
			return nil, retryErr
		}
		retryResult, err := e.assemble(ctx, prev, retryGen, selection, profile)
		if err != nil {
			return nil, err
		}
		retryResult.UsedFallback = usedFallback || retryFallback
		result = retryResult
	}
	result.Retried = retried

	if hardViolation(result.Validation) {
		if err := stepCheck(ctx, stateSanitizing); err != nil {
			return nil, err
		}
		logger.Warn("merge: applying emergency sanitization", "profile", profile.ID)
		sanitizeUpdated(result, profile)
	}

	logger.Info("merge: complete", "state", stateDone.String(),
		"provider", result.Provider, "fallback", result.UsedFallback,
		"retried", result.Retried, "sanitized", result.Sanitized,
		"valid", result.Validation.IsValid)
	telemetry.RecordMerge(result.UsedFallback, result.Retried, result.Sanitized)
	return result, nil
}

// generate runs one bounded primary-then-fallback attempt.
func (e *Engine) generate(ctx context.Context, spec llm.RequestSpec) (*llm.Generation, bool, error) {
	logger := common.Logger()
	logger.Debug("merge: generating", "state", stateGenerating.String(), "gateway", e.primary.Name())
	gen, primaryErr := e.primary.Generate(ctx, spec)
	if primaryErr == nil {
		return gen, false, nil
	}
	if e.fallback == nil {
		logger.Error("merge: primary failed with no fallback", "error", primaryErr)
		return nil, false, &BothProvidersFailed{Primary: primaryErr, Fallback: fmt.Errorf("no fallback gateway configured")}
	}
	logger.Warn("merge: primary gateway failed; trying fallback",
		"primary", e.primary.Name(), "fallback", e.fallback.Name(), "error", primaryErr)
	gen, fallbackErr := e.fallback.Generate(ctx, spec)
	if fallbackErr == nil {
		return gen, true, nil
	}
	logger.Error("merge: both gateways failed", "primary_error", primaryErr, "fallback_error", fallbackErr)
	return nil, true, &BothProvidersFailed{Primary: primaryErr, Fallback: fallbackErr}
}

// assemble re-parses the candidate text, splices it against prev, and
// validates the result.
func (e *Engine) assemble(ctx context.Context, prev *note.ParsedNote, gen *llm.Generation, selection SelectionConfig, profile *emr.Profile) (*MergedNote, error) {
	if err := stepCheck(ctx, stateReparsing); err != nil {
		return nil, err
	}
	candidate := note.Parse(gen.Text, profile.ParseOptions()...)

	if err := stepCheck(ctx, stateSplicing); err != nil {
		return nil, err
	}
	sections, ledger, warnings := splice(prev, candidate, selection)
	finalText := note.Render(sections)

	if err := stepCheck(ctx, stateValidating); err != nil {
		return nil, err
	}
	validation := emr.Validate(finalText, profile)
	return &MergedNote{
		FinalText:  finalText,
		Sections:   sections,
		Ledger:     ledger,
		Validation: validation,
		Provider:   gen.Provider,
		Warnings:   warnings,
	}, nil
}

// splice builds the output section list from prev's order: preserved types
// keep prev content verbatim (an unconditional override, never read from the
// candidate), updated types take the candidate per strategy, and candidate
// types absent from prev are discarded.
func splice(prev, candidate *note.ParsedNote, selection SelectionConfig) ([]note.Section, []ChangeRecord, []string) {
	var warnings []string
	sections := make([]note.Section, 0, len(prev.Sections))
	ledger := make([]ChangeRecord, 0, len(prev.Sections))

	prevTypes := make(map[note.SectionType]bool, len(prev.Sections))
	for _, s := range prev.Sections {
		prevTypes[s.Type] = true
	}

	for i, prevSection := range prev.Sections {
		out := prevSection
		out.Order = i
		record := ChangeRecord{
			SectionType:     prevSection.Type,
			Action:          ActionPreserved,
			OriginalContent: prevSection.Content,
			NewContent:      prevSection.Content,
			Reason:          "not selected for update",
			Confidence:      prevSection.Confidence,
		}

		sel, selected := selection[prevSection.Type]
		if selected && sel.Update {
			if cand, found := candidate.Section(prevSection.Type); found {
				strategy := selection.strategyFor(prevSection.Type)
				content := applyStrategy(strategy, prevSection.Content, cand.Content)
				out.Content = content
				out.Confidence = cand.Confidence
				out.Metadata.WordCount = len(strings.Fields(content))
				out.Metadata.IsStandardized = cand.Confidence >= note.ConfidenceAlias
				record.Action = actionForStrategy(strategy)
				record.NewContent = content
				record.Reason = "regenerated from transcript (" + string(strategy) + ")"
				record.Confidence = cand.Confidence
			} else {
				record.Reason = "generator omitted section; previous content kept"
				warnings = append(warnings, fmt.Sprintf(
					"generator omitted selected section %s; previous content kept", prevSection.Type))
			}
		}

		sections = append(sections, out)
		ledger = append(ledger, record)
	}

	for _, cand := range candidate.Sections {
		if !prevTypes[cand.Type] {
			warnings = append(warnings, fmt.Sprintf(
				"generator produced section %s not present in previous note; discarded", cand.Type))
		}
	}
	return sections, ledger, warnings
}

func applyStrategy(strategy Strategy, prevContent, candContent string) string {
	switch strategy {
	case StrategyAppend:
		if strings.TrimSpace(prevContent) == "" {
			return candContent
		}
		return prevContent + "\n\n" + candContent
	case StrategyMerge:
		return lineUnion(prevContent, candContent)
	default:
		return candContent
	}
}

// lineUnion keeps every previous line in order and appends candidate lines
// not already present.
func lineUnion(prevContent, candContent string) string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(prevContent, "\n") {
		out = append(out, line)
		seen[strings.TrimSpace(line)] = true
	}
	for _, line := range strings.Split(candContent, "\n") {
		key := strings.TrimSpace(line)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// preserveAll produces the all-preserved result used when the selection
// requests no updates; no gateway call is made.
func preserveAll(prev *note.ParsedNote, profile *emr.Profile) *MergedNote {
	sections := make([]note.Section, 0, len(prev.Sections))
	ledger := make([]ChangeRecord, 0, len(prev.Sections))
	for i, s := range prev.Sections {
		out := s
		out.Order = i
		sections = append(sections, out)
		ledger = append(ledger, ChangeRecord{
			SectionType:     s.Type,
			Action:          ActionPreserved,
			OriginalContent: s.Content,
			NewContent:      s.Content,
			Reason:          "not selected for update",
			Confidence:      s.Confidence,
		})
	}
	finalText := note.Render(sections)
	return &MergedNote{
		FinalText:  finalText,
		Sections:   sections,
		Ledger:     ledger,
		Validation: emr.Validate(finalText, profile),
	}
}

// sanitizeUpdated strips forbidden tokens from updated sections only.
// Preserved content is never rewritten, even when it is the source of a
// residual violation; that case is surfaced as a warning instead.
func sanitizeUpdated(result *MergedNote, profile *emr.Profile) {
	for i := range result.Sections {
		record := &result.Ledger[i]
		if record.Action == ActionPreserved {
			continue
		}
		clean := emr.Sanitize(result.Sections[i].Content, profile)
		if clean == result.Sections[i].Content {
			continue
		}
		result.Sections[i].Content = clean
		result.Sections[i].Metadata.WordCount = len(strings.Fields(clean))
		record.NewContent = clean
		record.Reason += "; emergency sanitization applied"
	}
	result.Sanitized = true
	result.FinalText = note.Render(result.Sections)
	result.Validation = emr.Validate(result.FinalText, profile)
	if hardViolation(result.Validation) {
		result.Warnings = append(result.Warnings,
			"compliance errors remain after sanitization; violations originate outside the updated sections")
	}
}

func hardViolation(v emr.ValidationResult) bool {
	return !v.IsValid
}

// stepCheck aborts the whole pipeline when the caller's context is canceled
// between steps.
func stepCheck(ctx context.Context, s state) error {
	select {
	case <-ctx.Done():
		common.Logger().Warn("merge: canceled", "state", s.String(), "error", ctx.Err())
		return fmt.Errorf("merge canceled at %s: %w", s.String(), ctx.Err())
	default:
		return nil
	}
}
