// File path: internal/emr/validator_test.go
package emr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustProfile(t *testing.T, id string) *Profile {
	t.Helper()
	p, err := NewRegistry().Lookup(id)
	if err != nil {
		t.Fatalf("lookup profile %s: %v", id, err)
	}
	return p
}

const validSOAP = `SUBJECTIVE:
Patient reports improved mood.

OBJECTIVE:
Alert and oriented.

ASSESSMENT:
Depression, improving.

PLAN:
Continue current medications.`

func TestValidateCleanNote(t *testing.T) {
	result := Validate(validSOAP, mustProfile(t, "athena-classic"))
	if !result.IsValid {
		t.Fatalf("expected valid note, got errors %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}
}

func TestValidateForbiddenSmartPhrase(t *testing.T) {
	text := validSOAP + "\n@FOLLOWUP@ and then @REFERRAL@"
	result := Validate(text, mustProfile(t, "athena-classic"))

	if result.IsValid {
		t.Fatalf("expected invalid note")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "smart-phrase") {
		t.Fatalf("error should name the token class: %q", result.Errors[0])
	}
	if !strings.Contains(result.Errors[0], "2 occurrence(s)") {
		t.Fatalf("error should count occurrences: %q", result.Errors[0])
	}
}

func TestValidateMissingRequiredStructure(t *testing.T) {
	result := Validate("SUBJECTIVE:\nDoing well.", mustProfile(t, "athena-classic"))

	if result.IsValid {
		t.Fatalf("expected structural failure")
	}
	wantMissing := []string{"Objective", "Assessment", "Plan"}
	for _, name := range wantMissing {
		found := false
		for _, e := range result.Errors {
			if e == "missing required section: "+name {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected missing-section error for %s, got %v", name, result.Errors)
		}
	}
}

func TestValidateUnstructuredNoteWarns(t *testing.T) {
	result := Validate("just some free text with no structure at all", mustProfile(t, "plain"))
	if !result.IsValid {
		t.Fatalf("plain profile must not hard-fail unstructured text: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Fatalf("expected a no-structure warning")
	}
}

func TestValidateLengthWarning(t *testing.T) {
	profile := &Profile{ID: "tiny", MaxNoteRunes: 10}
	result := Validate("PLAN:\nthis is well over ten characters", profile)
	if !result.IsValid {
		t.Fatalf("length bound is a warning, not an error: %v", result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "exceeds 10 characters") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected length warning, got %v", result.Warnings)
	}
}

func TestValidateNilProfile(t *testing.T) {
	result := Validate("anything", nil)
	if result.IsValid {
		t.Fatalf("nil profile must be invalid")
	}
}

func TestSanitizeStripsAllTokenClasses(t *testing.T) {
	profile := mustProfile(t, "athena-classic")
	dirty := "PLAN:\nStart @MED@ then {Problem List:1234} and document ***"

	clean := Sanitize(dirty, profile)
	for _, tok := range profile.ForbiddenTokens {
		if tok.Pattern.MatchString(clean) {
			t.Fatalf("token class %s survived sanitization: %q", tok.Class, clean)
		}
	}
	if again := Sanitize(dirty, profile); again != clean {
		t.Fatalf("sanitize must be deterministic")
	}
	if !strings.Contains(clean, "Start") || !strings.Contains(clean, "document") {
		t.Fatalf("surrounding prose must survive: %q", clean)
	}
}

func TestSanitizeDotPhrasePreservesLine(t *testing.T) {
	profile := mustProfile(t, "epic-style")
	clean := Sanitize("Continue .fumeds as tolerated.", profile)

	if dotPhraseRe.MatchString(clean) {
		t.Fatalf("dot phrase survived: %q", clean)
	}
	if !strings.HasPrefix(clean, "Continue") || !strings.Contains(clean, "as tolerated.") {
		t.Fatalf("surrounding prose must survive: %q", clean)
	}
}

func TestSanitizeNilProfileNoOp(t *testing.T) {
	if got := Sanitize("@TOKEN@", nil); got != "@TOKEN@" {
		t.Fatalf("nil profile must be a no-op, got %q", got)
	}
}

func TestEpicProfileAliasesFeedParser(t *testing.T) {
	profile := mustProfile(t, "epic-style")
	opts := profile.ParseOptions()
	if len(opts) == 0 {
		t.Fatalf("epic profile should contribute parse options")
	}
}

func TestSyntaxRules(t *testing.T) {
	rules := mustProfile(t, "athena-classic").SyntaxRules()
	if len(rules) == 0 {
		t.Fatalf("expected prompt rules")
	}
	last := rules[len(rules)-1]
	if !strings.Contains(last, "Subjective") || !strings.Contains(last, "Plan") {
		t.Fatalf("structure rule should list the required headings: %q", last)
	}
}

func TestLoadRegistryOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")
	config := `[
		{
			"id": "cerner-lite",
			"display_name": "Cerner lite",
			"inherit_forbidden_of": "athena-classic",
			"forbidden_tokens": [
				{"class": "auto-text", "pattern": "~[a-z]+~"}
			],
			"required_sections": ["assessment_and_plan"],
			"require_structure": true,
			"heading_aliases": {"A/P Notes": "assessment_and_plan"},
			"max_note_runes": 20000
		}
	]`
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	p, err := reg.Lookup("cerner-lite")
	if err != nil {
		t.Fatalf("lookup override profile: %v", err)
	}
	if len(p.ForbiddenTokens) != 4 {
		t.Fatalf("expected 3 inherited + 1 own token patterns, got %d", len(p.ForbiddenTokens))
	}
	if !p.RequiresCanonicalStructure || len(p.CanonicalStructureSections) != 1 {
		t.Fatalf("structure requirements not loaded: %+v", p)
	}
	result := Validate("A/P Notes:\nStable. ~autotext~", p)
	if result.IsValid {
		t.Fatalf("expected auto-text token to fail validation")
	}
	if _, err := reg.Lookup("plain"); err != nil {
		t.Fatalf("built-ins must survive overrides: %v", err)
	}
}

func TestLoadRegistryRejectsUnknownSectionType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")
	config := `[{"id": "bad", "required_sections": ["no_such_section"]}]`
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected unknown section type to be rejected")
	}
}
