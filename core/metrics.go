package core

import (
	"context"
	"strings"
)

const metricsNamespace = "ledger"

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// metricName builds ledger.<operation>.<suffix>.
func metricName(operation string, suffix string) string {
	return strings.Join([]string{metricsNamespace, operation, suffix}, ".")
}

func operationTags(operation string, err error) map[string]string {
	tags := map[string]string{
		"operation": operation,
		"status":    "success",
	}
	if err != nil {
		tags["status"] = "failure"
		tags["error_code"] = ErrorTextCode(err)
	}
	return tags
}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
