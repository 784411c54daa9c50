// File path: internal/llm/gateway.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clearscribe/notewright/internal/common"
	"github.com/clearscribe/notewright/internal/common/telemetry"
)

// RequestSpec is the scoped generation request handed across the gateway
// boundary. The merge engine assembles it; the gateway turns it into provider
// messages.
type RequestSpec struct {
	FullContextText     string
	TranscriptText      string
	AllowedSections     []string
	ComplianceProfileID string
	SyntaxRules         []string
	Strict              bool
}

// Generation is a successful gateway response.
type Generation struct {
	Text     string
	Provider string
}

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	ErrTimeout       ErrorKind = "timeout"
	ErrEmptyResponse ErrorKind = "empty_response"
	ErrProvider      ErrorKind = "provider_error"
)

// GatewayError is the typed failure surfaced by a Gateway, carrying the
// provider identity and failure class.
type GatewayError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s", e.Provider, e.Kind)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Gateway is the generation boundary consumed by the merge engine. Callers do
// not care which concrete provider answered.
type Gateway interface {
	Generate(ctx context.Context, spec RequestSpec) (*Generation, error)
	Name() string
}

// ProviderGateway adapts a Provider into a Gateway with a per-call timeout
// and typed error classification. Safe for concurrent use when the underlying
// provider is.
type ProviderGateway struct {
	provider Provider
	timeout  time.Duration
}

// NewProviderGateway wraps a provider. A non-positive timeout disables the
// per-call deadline.
func NewProviderGateway(provider Provider, timeout time.Duration) *ProviderGateway {
	return &ProviderGateway{provider: provider, timeout: timeout}
}

func (g *ProviderGateway) Name() string {
	if g.provider == nil {
		return "unconfigured"
	}
	return g.provider.Name()
}

func (g *ProviderGateway) Generate(ctx context.Context, spec RequestSpec) (*Generation, error) {
	if g.provider == nil {
		return nil, &GatewayError{Provider: "unconfigured", Kind: ErrProvider, Err: errors.New("no provider")}
	}
	name := g.provider.Name()
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := g.provider.Chat(callCtx, buildMessages(spec))
	telemetry.RecordGatewayCall(name, time.Since(started), err)
	if err != nil {
		kind := ErrProvider
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			kind = ErrTimeout
		}
		common.Logger().Warn("gateway: generation failed", "provider", name, "kind", string(kind), "error", err)
		return nil, &GatewayError{Provider: name, Kind: kind, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		common.Logger().Warn("gateway: empty generation", "provider", name)
		return nil, &GatewayError{Provider: name, Kind: ErrEmptyResponse}
	}
	return &Generation{Text: text, Provider: name}, nil
}

func buildMessages(spec RequestSpec) []Message {
	var sys strings.Builder
	sys.WriteString("You are a clinical documentation assistant. ")
	sys.WriteString("Regenerate the clinical note for a transfer-of-care update.\n")
	if len(spec.AllowedSections) > 0 {
		sys.WriteString("Only the following sections may change: ")
		sys.WriteString(strings.Join(spec.AllowedSections, ", "))
		sys.WriteString(". Reproduce every other section unchanged.\n")
	}
	if spec.ComplianceProfileID != "" {
		sys.WriteString("Target records system profile: " + spec.ComplianceProfileID + ".\n")
	}
	for _, rule := range spec.SyntaxRules {
		sys.WriteString("Rule: " + rule + "\n")
	}
	if spec.Strict {
		sys.WriteString("STRICT MODE: the previous attempt violated the rules above. " +
			"Output plain prose only; no template tokens of any kind.\n")
	}
	sys.WriteString("Output the full note with one heading per section.")

	var user strings.Builder
	user.WriteString("Previous note:\n")
	user.WriteString(spec.FullContextText)
	user.WriteString("\n\nNew encounter transcript:\n")
	user.WriteString(spec.TranscriptText)

	return []Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: user.String()},
	}
}
