// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clearscribe/notewright/internal/emr"
	"github.com/clearscribe/notewright/internal/llm"
	"github.com/clearscribe/notewright/internal/merge"
	"github.com/clearscribe/notewright/internal/note"
)

type stubGateway struct {
	name string
	text string
	err  error
}

func (g *stubGateway) Generate(_ context.Context, _ llm.RequestSpec) (*llm.Generation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Generation{Text: g.text, Provider: g.name}, nil
}

func (g *stubGateway) Name() string { return g.name }

const prevNote = `SUBJECTIVE:
Patient reports feeling better.

OBJECTIVE:
Alert and oriented.

ASSESSMENT:
Depression, improving.

PLAN:
Continue sertraline 50 mg daily.`

const generatedNote = `SUBJECTIVE:
Patient reports feeling better.

OBJECTIVE:
Alert and oriented.

ASSESSMENT:
Depression, improving.

PLAN:
Increase sertraline to 100 mg daily.`

func newTestServer(t *testing.T, gateway llm.Gateway) *Server {
	t.Helper()
	profiles, err := emr.LoadRegistry("")
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	srv, err := NewServer(profiles, merge.New(gateway, nil), nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestParseEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := postJSON(t, srv, "/v1/parse", map[string]string{"text": prevNote})
	if rec.Code != http.StatusOK {
		t.Fatalf("parse status = %d: %s", rec.Code, rec.Body.String())
	}
	var parsed note.ParsedNote
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode parse response: %v", err)
	}
	if len(parsed.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(parsed.Sections))
	}
	if parsed.Metadata.StandardizedSectionCount != 4 {
		t.Fatalf("expected 4 standardized sections, got %d", parsed.Metadata.StandardizedSectionCount)
	}
}

func TestParseEndpointRejectsEmptyText(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := postJSON(t, srv, "/v1/parse", map[string]string{"text": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := postJSON(t, srv, "/v1/validate", map[string]string{
		"text":       "SUBJECTIVE:\nDoing well with @TOKEN@.",
		"profile_id": "athena-classic",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("validate status = %d", rec.Code)
	}
	var result emr.ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode validate response: %v", err)
	}
	if result.IsValid {
		t.Fatalf("expected invalid note")
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := postJSON(t, srv, "/v1/sanitize", map[string]string{
		"text":       "PLAN:\nStart @MED@ today.",
		"profile_id": "athena-classic",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sanitize status = %d", rec.Code)
	}
	var resp struct {
		Text    string `json:"text"`
		Changed bool   `json:"changed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode sanitize response: %v", err)
	}
	if !resp.Changed || strings.Contains(resp.Text, "@MED@") {
		t.Fatalf("token not stripped: %+v", resp)
	}
}

func TestMergeEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := postJSON(t, srv, "/v1/merge", map[string]interface{}{
		"previous_note": prevNote,
		"transcript":    "Discussed increasing the dose.",
		"selection": map[string]interface{}{
			"plan": map[string]interface{}{"update": true},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("merge status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		NoteID int64             `json:"note_id"`
		Result *merge.MergedNote `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode merge response: %v", err)
	}
	if resp.Result == nil {
		t.Fatalf("missing merge result")
	}
	if !strings.Contains(resp.Result.FinalText, "Increase sertraline to 100 mg daily") {
		t.Fatalf("plan not updated: %q", resp.Result.FinalText)
	}
	if !strings.Contains(resp.Result.FinalText, "Patient reports feeling better.") {
		t.Fatalf("preserved content missing: %q", resp.Result.FinalText)
	}
	if resp.NoteID != 0 {
		t.Fatalf("no archive configured; note id should be absent")
	}
}

func TestMergeEndpointConfigurationError(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := postJSON(t, srv, "/v1/merge", map[string]interface{}{
		"previous_note": prevNote,
		"transcript":    "transcript",
		"selection": map[string]interface{}{
			"allergies": map[string]interface{}{"update": true},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad selection, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMergeEndpointProviderFailure(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", err: &llm.GatewayError{Provider: "test", Kind: llm.ErrTimeout}})
	rec := postJSON(t, srv, "/v1/merge", map[string]interface{}{
		"previous_note": prevNote,
		"transcript":    "transcript",
		"selection": map[string]interface{}{
			"plan": map[string]interface{}{"update": true},
		},
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for provider failure, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProfilesEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/profiles", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("profiles status = %d", rec.Code)
	}
	var resp struct {
		Profiles []struct {
			ID string `json:"id"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode profiles response: %v", err)
	}
	ids := make(map[string]bool)
	for _, p := range resp.Profiles {
		ids[p.ID] = true
	}
	for _, want := range []string{"plain", "athena-classic", "epic-style"} {
		if !ids[want] {
			t.Fatalf("builtin profile %s missing from %v", want, ids)
		}
	}
}

func TestNotesEndpointWithoutArchive(t *testing.T) {
	srv := newTestServer(t, &stubGateway{name: "test", text: generatedNote})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/notes", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 without archive, got %d", rec.Code)
	}
}
