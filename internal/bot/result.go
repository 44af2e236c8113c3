package bot

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"rangeTrader/internal/engine"
	"rangeTrader/internal/model"
)

// CycleResult is the structured outcome of one decision cycle.
type CycleResult struct {
	Started    time.Time
	Duration   time.Duration
	Pool       common.Address
	BaseToken  common.Address
	QuoteToken common.Address
	Quote      *model.PriceQuote
	Balances   *engine.Balances
	Decision   engine.Decision
	Mode       engine.Mode
	Intent     *model.TradeIntent
	DryRun     bool
	Tx         *model.Confirmation
	Err        error
}

// Fatal reports whether the cycle ended on a configuration or network error,
// the outcomes that map to a non-zero exit status for single-shot runs.
func (r CycleResult) Fatal() bool {
	var cfgErr *model.ConfigurationError
	var unavailable *model.UnavailableError
	return errors.As(r.Err, &cfgErr) || errors.As(r.Err, &unavailable)
}

// Record flattens the result for the journal.
func (r CycleResult) Record() model.CycleRecord {
	rec := model.CycleRecord{
		StartedAt:  r.Started.UTC().Format(time.RFC3339Nano),
		DurationMs: r.Duration.Milliseconds(),
		Pool:       r.Pool.Hex(),
		BaseToken:  r.BaseToken.Hex(),
		QuoteToken: r.QuoteToken.Hex(),
		Action:     string(r.Decision.Action),
		Amount:     r.Decision.Amount,
		Reason:     r.Decision.Reason,
		Mode:       string(r.Mode),
		DryRun:     r.DryRun,
		ErrorKind:  model.ErrorKind(r.Err),
	}
	if rec.Action == "" {
		rec.Action = "skipped"
	}
	if r.Decision.Side != "" {
		rec.Reason = r.Decision.Reason + " (" + string(r.Decision.Side) + ")"
	}
	if r.Quote != nil {
		rec.Price = r.Quote.Price.String()
	}
	if r.Balances != nil {
		rec.BaseBalance = r.Balances.Base.String()
		rec.QuoteBalance = r.Balances.Quote.String()
	}
	if r.Tx != nil {
		rec.TxHash = r.Tx.TxHash.Hex()
		rec.BlockNumber = r.Tx.BlockNumber
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
		var submission *model.SubmissionError
		if errors.As(r.Err, &submission) && submission.TxHash != (common.Hash{}) {
			rec.TxHash = submission.TxHash.Hex()
		}
	}
	return rec
}
