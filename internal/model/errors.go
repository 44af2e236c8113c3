package model

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ConfigurationError reports a setup that can never produce a valid trade:
// wrong token pair, invalid decimals or thresholds, malformed addresses.
type ConfigurationError struct {
	Msg string
	Err error
}

func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Msg, e.Err)
	}
	return "configuration: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// UnavailableError wraps a transient RPC or network failure while reading chain state.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// SubmissionError reports an approval or swap transaction that failed to send,
// reverted, or was never confirmed.
type SubmissionError struct {
	Op     string
	TxHash common.Hash
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("submission: %s (tx %s): %v", e.Op, e.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("submission: %s: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ErrorKind returns a stable label for journal records.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var cfgErr *ConfigurationError
	var unavailable *UnavailableError
	var submission *SubmissionError
	switch {
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &unavailable):
		return "unavailable"
	case errors.As(err, &submission):
		return "submission"
	default:
		return "internal"
	}
}
