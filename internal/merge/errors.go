// File path: internal/merge/errors.go
package merge

import "fmt"

// ConfigurationError marks a caller bug: an invalid selection or profile.
// Rejected immediately, never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "merge configuration: " + e.Reason
}

// BothProvidersFailed is the only error class that aborts a merge without
// producing a note: primary and fallback generation both failed.
type BothProvidersFailed struct {
	Primary  error
	Fallback error
}

func (e *BothProvidersFailed) Error() string {
	return fmt.Sprintf("both generation providers failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}
