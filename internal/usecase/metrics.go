package usecase

import (
	"context"
	"errors"
)

// ErrJournalDisabled is returned when no attempt repository is configured.
var ErrJournalDisabled = errors.New("attempt journal disabled")

// MetricsSummary represents aggregated submission insights.
type MetricsSummary struct {
	TotalAttempts     int64   `json:"total_attempts"`
	Succeeded         int64   `json:"succeeded"`
	Failed            int64   `json:"failed"`
	Stale             int64   `json:"stale"`
	SuccessRate       float64 `json:"success_rate"`
	AverageConfidence float64 `json:"average_confidence"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
}

// GetMetricsSummary aggregates submission metrics from the attempt journal.
func (c *SubmissionController) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	if c.repo == nil {
		return nil, ErrJournalDisabled
	}
	aggregation, err := c.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalAttempts:     aggregation.TotalCount,
		Succeeded:         aggregation.SucceededCount,
		Failed:            aggregation.FailedCount,
		Stale:             aggregation.StaleCount,
		AverageConfidence: aggregation.AverageConfidence,
		AverageLatencyMs:  aggregation.AverageLatencyMs,
	}

	if applied := aggregation.TotalCount - aggregation.StaleCount; applied > 0 {
		summary.SuccessRate = float64(aggregation.SucceededCount) / float64(applied)
	}

	return summary, nil
}
