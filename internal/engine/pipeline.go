package engine

import (
	"context"
	"errors"
	"time"

	"github.com/smukkama/health-correlation-server/internal/database"
	"github.com/smukkama/health-correlation-server/internal/protocol"
)

// MetricStore is the write/read surface of the metric store used by the
// pipeline. *database.DB implements it; tests use in-memory fakes.
type MetricStore interface {
	UpsertMetricBatch(ctx context.Context, records []database.MetricRecord) error
	MetricsForTypes(ctx context.Context, userID int64, typeA, typeB string) ([]database.MetricRecord, error)
}

// CorrelationStore is the write surface of the correlation store.
type CorrelationStore interface {
	UpsertCorrelation(ctx context.Context, rec *database.CorrelationRecord) error
}

// Outcome is the terminal state of one calculation request.
type Outcome string

const (
	// OutcomePersisted: the correlation store was updated.
	OutcomePersisted Outcome = "persisted"
	// OutcomeSkipped: no data or a degenerate series; nothing persisted.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed: a store operation failed; nothing persisted. The
	// origin decides whether to redeliver.
	OutcomeFailed Outcome = "failed"
)

// Result describes how a request terminated. Correlation is set only for
// OutcomePersisted; Reason only for OutcomeSkipped.
type Result struct {
	Outcome     Outcome
	Correlation *CorrelationResult
	Reason      string
}

// Pipeline runs one calculation request through
// ingest → reconstruct → correlate → persist. It holds no state between
// invocations and is safe to call concurrently.
type Pipeline struct {
	metrics      MetricStore
	correlations CorrelationStore
}

// NewPipeline creates a pipeline over the given stores.
func NewPipeline(metrics MetricStore, correlations CorrelationStore) *Pipeline {
	return &Pipeline{
		metrics:      metrics,
		correlations: correlations,
	}
}

// Run processes a validated payload. The error is non-nil only for
// OutcomeFailed and is always a *StoreError.
func (p *Pipeline) Run(ctx context.Context, payload *protocol.CalculationPayload) (*Result, error) {
	userID := payload.UserID
	xType := payload.Data.XDataType
	yType := payload.Data.YDataType

	// Received → Ingested
	if err := p.metrics.UpsertMetricBatch(ctx, RecordsFromPayload(payload)); err != nil {
		return &Result{Outcome: OutcomeFailed}, &StoreError{Op: "upsert metrics", Err: err}
	}

	// Ingested → Reconstructed
	stored, err := p.metrics.MetricsForTypes(ctx, userID, string(xType), string(yType))
	if err != nil {
		return &Result{Outcome: OutcomeFailed}, &StoreError{Op: "read metrics", Err: err}
	}

	series, err := Reconstruct(stored, userID, xType, yType)
	if err != nil {
		var noData *NoDataError
		if errors.As(err, &noData) {
			return &Result{Outcome: OutcomeSkipped, Reason: err.Error()}, nil
		}
		return &Result{Outcome: OutcomeFailed}, &StoreError{Op: "reconstruct series", Err: err}
	}

	// Reconstructed → Computed
	result, err := Correlate(series)
	if err != nil {
		var degenerate *DegenerateSeriesError
		if errors.As(err, &degenerate) {
			return &Result{Outcome: OutcomeSkipped, Reason: err.Error()}, nil
		}
		return &Result{Outcome: OutcomeFailed}, &StoreError{Op: "correlate series", Err: err}
	}

	// Computed → Persisted
	rec := &database.CorrelationRecord{
		UserID:      userID,
		XDataType:   string(xType),
		YDataType:   string(yType),
		Correlation: result.Coefficient,
		PValue:      result.PValue,
		SampleDays:  result.SampleDays,
		ComputedAt:  time.Now().UTC(),
	}
	if err := p.correlations.UpsertCorrelation(ctx, rec); err != nil {
		return &Result{Outcome: OutcomeFailed}, &StoreError{Op: "upsert correlation", Err: err}
	}

	return &Result{Outcome: OutcomePersisted, Correlation: result}, nil
}

// RecordsFromPayload flattens a payload's paired point lists into metric
// records, x and y interleaved in list order so that a duplicate key within
// the request resolves to the later occurrence.
func RecordsFromPayload(payload *protocol.CalculationPayload) []database.MetricRecord {
	records := make([]database.MetricRecord, 0, len(payload.Data.X)+len(payload.Data.Y))
	for i := range payload.Data.X {
		records = append(records,
			database.MetricRecord{
				UserID:   payload.UserID,
				DataType: string(payload.Data.XDataType),
				Date:     payload.Data.X[i].Date.Time,
				Value:    payload.Data.X[i].Value,
			},
			database.MetricRecord{
				UserID:   payload.UserID,
				DataType: string(payload.Data.YDataType),
				Date:     payload.Data.Y[i].Date.Time,
				Value:    payload.Data.Y[i].Value,
			},
		)
	}
	return records
}
