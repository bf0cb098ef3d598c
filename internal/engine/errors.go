package engine

import (
	"fmt"
)

// NoDataError reports that the user has no stored points for one or both of
// the requested data types. It is an expected outcome, not a fault.
type NoDataError struct {
	UserID int64
	XType  string
	YType  string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no metric data for user %d (types %s, %s)", e.UserID, e.XType, e.YType)
}

// DegenerateSeriesError reports that the correlation is mathematically
// undefined for the reconstructed series: fewer than 3 calendar days, or a
// column with zero variance after imputation. Expected for users with
// sparse history.
type DegenerateSeriesError struct {
	Reason string
	Days   int
}

func (e *DegenerateSeriesError) Error() string {
	return fmt.Sprintf("degenerate series (%d days): %s", e.Days, e.Reason)
}

// StoreError wraps a failed store operation. This is the only error class
// treated as an operational fault; the request must be redelivered by its
// origin.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %q failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
