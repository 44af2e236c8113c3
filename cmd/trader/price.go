package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runPrice(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := setup(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer t.Close()

	quote, err := t.bot.Quote(ctx)
	if err != nil {
		t.logger.Error("price read failed", zap.Error(err))
		return err
	}

	base := symbolOf(ctx, t.reader, quote.BaseToken)
	quoteSym := symbolOf(ctx, t.reader, quote.QuoteToken)
	th := t.settings.Engine

	t.logger.Info("price",
		zap.String("pair", base+"/"+quoteSym),
		zap.String("price", quote.Price.String()),
		zap.String("sell_trigger", th.SellTrigger.String()),
		zap.String("buy_trigger", th.BuyTrigger.String()),
		zap.String("target_low", th.TargetLow.String()),
		zap.String("target_high", th.TargetHigh.String()),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s/%s %s (sell >= %s, buy <= %s, band %s-%s)\n",
		base, quoteSym, quote.Price.StringFixed(6),
		th.SellTrigger, th.BuyTrigger, th.TargetLow, th.TargetHigh)
	return nil
}
