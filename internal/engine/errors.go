package engine

import (
	"fmt"
	"time"
)

// ValidationError rejects an analysis input before any simulation runs.
// Field names the offending request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Message)
}

// RuleNotFoundError signals a data/configuration gap: no active rule exists
// for a tax type that is mandatory under the simulated regime. The affected
// computation is skipped and surfaced, never silently dropped.
type RuleNotFoundError struct {
	TaxType string
	Regime  string
	Period  time.Time
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("no active %s rule applicable under %s for period %s",
		e.TaxType, e.Regime, e.Period.Format("2006-01"))
}

// OracleUnavailableError wraps a failed or timed-out legal oracle call.
// It is recovered locally: decision records degrade to deterministic citations.
type OracleUnavailableError struct {
	Err error
}

func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("legal oracle unavailable: %v", e.Err)
}

func (e *OracleUnavailableError) Unwrap() error { return e.Err }
