package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy (SSOT). All pipeline errors wrap one of these sentinels so
// callers can branch with errors.Is regardless of wrapping depth.
var (
	// ErrDataUnavailable: upstream fetch failed or timed out.
	// Fatal at universe level, degrades to a skip at symbol level.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientHistory: lookback window not fully covered.
	// Distinct from a failing condition.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInvalidStrategyConfig: non-sensical thresholds. Detected before any
	// stage executes, aborts immediately.
	ErrInvalidStrategyConfig = errors.New("invalid strategy config")

	// ErrPersistence: store write failed. Surfaced to the caller of Run but
	// does not invalidate the computed survivor set.
	ErrPersistence = errors.New("persistence error")
)

// DataUnavailable wraps err as a data-unavailable failure for a key
func DataUnavailable(key string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDataUnavailable, key)
	}
	return fmt.Errorf("%w: %s: %v", ErrDataUnavailable, key, err)
}

// InsufficientHistory reports a lookback shortfall for a symbol
func InsufficientHistory(code string, need, have int) error {
	return fmt.Errorf("%w: %s needs %d bars, have %d", ErrInsufficientHistory, code, need, have)
}

// InvalidStrategyConfig reports a bad strategy field
func InvalidStrategyConfig(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidStrategyConfig, field, msg)
}

// PersistenceError wraps a store write failure
func PersistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
