// File path: internal/emr/profile.go
package emr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/clearscribe/notewright/internal/note"
)

// TokenPattern is one class of vendor placeholder syntax forbidden under a
// profile. Replacement is what Sanitize substitutes for each match.
type TokenPattern struct {
	Class       string
	Pattern     *regexp.Regexp
	Replacement string
}

// Profile describes the compliance rules of a target clinical-records system.
// Profiles are static configuration and never mutated at runtime.
type Profile struct {
	ID                         string
	DisplayName                string
	ForbiddenTokens            []TokenPattern
	RequiresCanonicalStructure bool
	CanonicalStructureSections []note.SectionType
	HeadingAliases             map[string]note.SectionType
	MaxNoteRunes               int
}

// ParseOptions translates the profile's parser-relevant configuration into
// parse options.
func (p *Profile) ParseOptions() []note.ParseOption {
	if p == nil || len(p.HeadingAliases) == 0 {
		return nil
	}
	return []note.ParseOption{note.WithExtraAliases(p.HeadingAliases)}
}

// SyntaxRules renders the profile's hard rules as prompt-ready statements.
func (p *Profile) SyntaxRules() []string {
	if p == nil {
		return nil
	}
	rules := make([]string, 0, len(p.ForbiddenTokens)+1)
	for _, tok := range p.ForbiddenTokens {
		rules = append(rules, fmt.Sprintf("never emit %s tokens (pattern %s)", tok.Class, tok.Pattern.String()))
	}
	if p.RequiresCanonicalStructure {
		headings := make([]string, 0, len(p.CanonicalStructureSections))
		for _, t := range p.CanonicalStructureSections {
			headings = append(headings, note.CanonicalHeading(t))
		}
		rules = append(rules, "include the headings: "+strings.Join(headings, ", "))
	}
	return rules
}

// Common placeholder pattern classes seen across EMR vendors.
var (
	smartPhraseRe = regexp.MustCompile(`@[A-Z0-9_]+@`)
	dotPhraseRe   = regexp.MustCompile(`(?m)(^|\s)\.[a-z][a-z0-9]{1,31}\b`)
	smartListRe   = regexp.MustCompile(`\{[^{}]*:\d+\}`)
	wildcardRe    = regexp.MustCompile(`\*\*\*`)
)

func builtinProfiles() map[string]*Profile {
	return map[string]*Profile{
		"plain": {
			ID:           "plain",
			DisplayName:  "Plain text",
			MaxNoteRunes: 40000,
		},
		"athena-classic": {
			ID:          "athena-classic",
			DisplayName: "Athena (classic templates)",
			ForbiddenTokens: []TokenPattern{
				{Class: "smart-phrase", Pattern: smartPhraseRe, Replacement: ""},
				{Class: "smart-list", Pattern: smartListRe, Replacement: ""},
				{Class: "wildcard", Pattern: wildcardRe, Replacement: ""},
			},
			RequiresCanonicalStructure: true,
			CanonicalStructureSections: []note.SectionType{
				note.SectionSubjective,
				note.SectionObjective,
				note.SectionAssessment,
				note.SectionPlan,
			},
			MaxNoteRunes: 32000,
		},
		"epic-style": {
			ID:          "epic-style",
			DisplayName: "Epic-style smart tokens forbidden",
			ForbiddenTokens: []TokenPattern{
				{Class: "smart-phrase", Pattern: smartPhraseRe, Replacement: ""},
				{Class: "dot-phrase", Pattern: dotPhraseRe, Replacement: ""},
				{Class: "smart-list", Pattern: smartListRe, Replacement: ""},
				{Class: "wildcard", Pattern: wildcardRe, Replacement: ""},
			},
			HeadingAliases: map[string]note.SectionType{
				"Interval Events": note.SectionHPI,
				"MDM":             note.SectionAssessmentAndPlan,
			},
			MaxNoteRunes: 32000,
		},
	}
}

// Registry holds the loaded profile set. Read-only after construction.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewRegistry returns a registry with the built-in profiles.
func NewRegistry() *Registry {
	return &Registry{profiles: builtinProfiles()}
}

// Lookup resolves a profile by ID.
func (r *Registry) Lookup(id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("unknown emr profile %q", id)
	}
	return p, nil
}

// IDs returns the registered profile IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// profileConfig is the on-disk shape of a profile override file.
type profileConfig struct {
	ID                 string            `json:"id"`
	DisplayName        string            `json:"display_name"`
	ForbiddenTokens    []tokenConfig     `json:"forbidden_tokens"`
	RequiredSections   []string          `json:"required_sections"`
	RequireStructure   bool              `json:"require_structure"`
	HeadingAliases     map[string]string `json:"heading_aliases"`
	MaxNoteRunes       int               `json:"max_note_runes"`
	InheritForbiddenOf string            `json:"inherit_forbidden_of"`
}

type tokenConfig struct {
	Class       string `json:"class"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// LoadRegistry builds a registry from the built-ins plus optional overrides.
// The override file path comes from the argument or, when empty, the
// NOTEWRIGHT_PROFILES env var. Mirrors the merge-over-defaults config pattern
// used elsewhere in the project.
func LoadRegistry(path string) (*Registry, error) {
	reg := NewRegistry()
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("NOTEWRIGHT_PROFILES"))
	}
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read profiles config: %w", err)
	}
	var configs []profileConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parse profiles config: %w", err)
	}
	for _, cfg := range configs {
		profile, err := reg.buildProfile(cfg)
		if err != nil {
			return nil, err
		}
		reg.profiles[profile.ID] = profile
	}
	return reg, nil
}

func (r *Registry) buildProfile(cfg profileConfig) (*Profile, error) {
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		return nil, fmt.Errorf("profile config missing id")
	}
	p := &Profile{
		ID:                         id,
		DisplayName:                cfg.DisplayName,
		RequiresCanonicalStructure: cfg.RequireStructure,
		MaxNoteRunes:               cfg.MaxNoteRunes,
	}
	if base := strings.TrimSpace(cfg.InheritForbiddenOf); base != "" {
		parent, ok := r.profiles[base]
		if !ok {
			return nil, fmt.Errorf("profile %s inherits unknown profile %q", id, base)
		}
		p.ForbiddenTokens = append(p.ForbiddenTokens, parent.ForbiddenTokens...)
	}
	for _, tok := range cfg.ForbiddenTokens {
		re, err := regexp.Compile(tok.Pattern)
		if err != nil {
			return nil, fmt.Errorf("profile %s token %s: %w", id, tok.Class, err)
		}
		p.ForbiddenTokens = append(p.ForbiddenTokens, TokenPattern{
			Class:       tok.Class,
			Pattern:     re,
			Replacement: tok.Replacement,
		})
	}
	for _, raw := range cfg.RequiredSections {
		t := note.SectionType(strings.TrimSpace(raw))
		if !note.KnownType(t) {
			return nil, fmt.Errorf("profile %s requires unknown section type %q", id, raw)
		}
		p.CanonicalStructureSections = append(p.CanonicalStructureSections, t)
	}
	if len(cfg.HeadingAliases) > 0 {
		p.HeadingAliases = make(map[string]note.SectionType, len(cfg.HeadingAliases))
		for heading, raw := range cfg.HeadingAliases {
			t := note.SectionType(strings.TrimSpace(raw))
			if !note.KnownType(t) {
				return nil, fmt.Errorf("profile %s alias %q maps to unknown section type %q", id, heading, raw)
			}
			p.HeadingAliases[heading] = t
		}
	}
	return p, nil
}
