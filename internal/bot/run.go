package bot

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run executes cycles until ctx is cancelled. The next cycle is scheduled only
// after the current one, including any swap confirmation, has finished.
func (b *Bot) Run(ctx context.Context) error {
	for {
		res := b.RunCycle(ctx)
		b.Report(ctx, res)

		if ctx.Err() != nil {
			b.logger.Info("bot stopped", zap.String("mode", string(b.Mode())))
			return nil
		}

		delay := b.nextDelay()
		b.logger.Debug("next cycle scheduled", zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.logger.Info("bot stopped", zap.String("mode", string(b.Mode())))
			return nil
		case <-timer.C:
		}
	}
}

// Report logs a finished cycle and appends it to the journal. Journal failures
// are logged and otherwise ignored.
func (b *Bot) Report(ctx context.Context, res CycleResult) {
	fields := []zap.Field{
		zap.String("action", string(res.Decision.Action)),
		zap.String("mode", string(res.Mode)),
		zap.Duration("elapsed", res.Duration),
	}
	if res.Quote != nil {
		fields = append(fields, zap.String("price", res.Quote.Price.StringFixed(6)))
	}
	if res.Decision.Amount != 0 {
		fields = append(fields, zap.Int64("amount", res.Decision.Amount))
	}
	if res.Decision.Reason != "" {
		fields = append(fields, zap.String("reason", res.Decision.Reason))
	}
	if res.Decision.Side != "" {
		fields = append(fields, zap.String("short_side", string(res.Decision.Side)))
	}
	if res.Balances != nil {
		fields = append(fields,
			zap.String("base_balance", res.Balances.Base.String()),
			zap.String("quote_balance", res.Balances.Quote.String()),
		)
	}
	if res.DryRun && res.Intent != nil {
		fields = append(fields, zap.Bool("dry_run", true))
	}
	if res.Tx != nil {
		fields = append(fields, zap.String("tx", res.Tx.TxHash.Hex()), zap.Uint64("block", res.Tx.BlockNumber))
	}

	if res.Err != nil {
		b.logger.Error("cycle failed", append(fields, zap.Error(res.Err))...)
	} else {
		b.logger.Info("cycle complete", fields...)
	}

	if b.deps.Journal == nil {
		return
	}
	// a cancelled run still records its final cycle
	if err := b.deps.Journal.PutCycle(context.WithoutCancel(ctx), res.Record()); err != nil {
		b.logger.Warn("journal write failed", zap.Error(err))
	}
}

func (b *Bot) nextDelay() time.Duration {
	span := b.cfg.IntervalMax - b.cfg.IntervalMin
	if span <= 0 {
		return b.cfg.IntervalMin
	}
	return b.cfg.IntervalMin + time.Duration(b.deps.Rand.Int63n(int64(span)+1))
}
