// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"expvar"
	"sync"
	"time"
)

var (
	initOnce sync.Once

	parseTotal *expvar.Int

	mergeTotal         *expvar.Int
	mergeFallbackTotal *expvar.Int
	mergeRetryTotal    *expvar.Int
	mergeSanitizeTotal *expvar.Int
	mergeFailedTotal   *expvar.Int

	gatewayCallTotal  *expvar.Map
	gatewayLatencyMS  *expvar.Map
	gatewayErrorTotal *expvar.Map
)

func ensureInit() {
	initOnce.Do(func() {
		parseTotal = expvar.NewInt("notewright_parse_total")

		mergeTotal = expvar.NewInt("notewright_merge_total")
		mergeFallbackTotal = expvar.NewInt("notewright_merge_fallback_total")
		mergeRetryTotal = expvar.NewInt("notewright_merge_retry_total")
		mergeSanitizeTotal = expvar.NewInt("notewright_merge_sanitize_total")
		mergeFailedTotal = expvar.NewInt("notewright_merge_failed_total")

		gatewayCallTotal = expvar.NewMap("notewright_gateway_call_total")
		gatewayLatencyMS = expvar.NewMap("notewright_gateway_latency_ms")
		gatewayErrorTotal = expvar.NewMap("notewright_gateway_error_total")
	})
}

// RecordParse counts a parse request served by the API layer.
func RecordParse() {
	ensureInit()
	parseTotal.Add(1)
}

// RecordMerge counts one completed merge pipeline run and its degradations.
func RecordMerge(usedFallback, retried, sanitized bool) {
	ensureInit()
	mergeTotal.Add(1)
	if usedFallback {
		mergeFallbackTotal.Add(1)
	}
	if retried {
		mergeRetryTotal.Add(1)
	}
	if sanitized {
		mergeSanitizeTotal.Add(1)
	}
}

// RecordMergeFailure counts a merge aborted because every provider failed.
func RecordMergeFailure() {
	ensureInit()
	mergeFailedTotal.Add(1)
}

// RecordGatewayCall tracks one outbound generation call by provider name.
func RecordGatewayCall(provider string, d time.Duration, err error) {
	ensureInit()
	gatewayCallTotal.Add(provider, 1)
	gatewayLatencyMS.Add(provider, d.Milliseconds())
	if err != nil {
		gatewayErrorTotal.Add(provider, 1)
	}
}
