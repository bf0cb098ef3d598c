package protocol

import (
	"errors"
	"fmt"
)

// Validation errors returned before a payload reaches the pipeline.
var (
	ErrSameDataTypes  = errors.New("x_data_type and y_data_type must be different")
	ErrLengthMismatch = errors.New("x and y lengths mismatch")
	ErrNoPoints       = errors.New("at least one point is required")
	ErrInvalidUserID  = errors.New("user_id must be positive")
)

// MetricsData carries the two paired point lists of a calculation request.
type MetricsData struct {
	XDataType DataType      `json:"x_data_type"`
	YDataType DataType      `json:"y_data_type"`
	X         []MetricPoint `json:"x"`
	Y         []MetricPoint `json:"y"`
}

// CalculationPayload is the inbound request body for a correlation
// calculation.
type CalculationPayload struct {
	UserID int64       `json:"user_id"`
	Data   MetricsData `json:"data"`
}

// Validate checks the payload invariants. An invalid payload is rejected at
// the ingress and never enters the engine.
func (p *CalculationPayload) Validate() error {
	if p.UserID <= 0 {
		return ErrInvalidUserID
	}
	if !p.Data.XDataType.Valid() {
		return fmt.Errorf("invalid x_data_type: %q", p.Data.XDataType)
	}
	if !p.Data.YDataType.Valid() {
		return fmt.Errorf("invalid y_data_type: %q", p.Data.YDataType)
	}
	if p.Data.XDataType == p.Data.YDataType {
		return ErrSameDataTypes
	}
	if len(p.Data.X) != len(p.Data.Y) {
		return ErrLengthMismatch
	}
	if len(p.Data.X) == 0 {
		return ErrNoPoints
	}
	return nil
}

// Correlation is the statistic pair served on the read path.
type Correlation struct {
	Value  float64 `json:"value"`
	PValue float64 `json:"p_value"`
}

// CorrelationResponse is the read-path response body.
type CorrelationResponse struct {
	UserID      int64       `json:"user_id"`
	DataTypes   []DataType  `json:"data_types"`
	Correlation Correlation `json:"correlation"`
}
