package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rangeTrader/internal/bot"
	"rangeTrader/internal/chain"
	"rangeTrader/internal/config"
	"rangeTrader/internal/dex"
	"rangeTrader/internal/engine"
	"rangeTrader/internal/model"
	"rangeTrader/internal/oracle"
	"rangeTrader/internal/storage"
	"rangeTrader/internal/storage/postgres"
	"rangeTrader/internal/wallet"
)

func main() {
	root := &cobra.Command{
		Use:          "trader",
		Short:        "Uniswap V3 range trading bot",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", "", "dotenv file path (default ./.env when present)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run decision cycles until interrupted",
		RunE:  runTrader,
	}
	addTraderFlags(runCmd)
	runCmd.Flags().Duration("interval-min", 30*time.Second, "minimum delay between cycles")
	runCmd.Flags().Duration("interval-max", 90*time.Second, "maximum delay between cycles")
	root.AddCommand(runCmd)

	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single decision cycle",
		RunE:  runOnce,
	}
	addTraderFlags(onceCmd)
	root.AddCommand(onceCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Print the current pool price and thresholds",
		RunE:  runPrice,
	}
	addPoolFlags(priceCmd)
	root.AddCommand(priceCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPoolFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", config.DefaultRPCURL, "RPC URL")
	cmd.Flags().String("pool", "", "Uniswap V3 pool address")
	cmd.Flags().String("base-token", config.DefaultBaseToken, "base token address")
	cmd.Flags().String("quote-token", config.DefaultQuoteToken, "quote token address")
	cmd.Flags().String("sell-trigger", "0.054", "sell when price is at or above")
	cmd.Flags().String("buy-trigger", "0.047", "buy when price is at or below")
	cmd.Flags().String("target-low", "0.049", "lower bound of the target band")
	cmd.Flags().String("target-high", "0.051", "upper bound of the target band")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts for chain reads")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addTraderFlags(cmd *cobra.Command) {
	addPoolFlags(cmd)
	cmd.Flags().String("private-key", "", "hex private key of the trading wallet")
	cmd.Flags().String("router", config.DefaultRouter, "SwapRouter address")
	cmd.Flags().Uint32("fee", 0, "pool fee tier override, 0 reads it from the pool")
	cmd.Flags().Int64("amount-min", 100, "minimum trade amount in whole tokens")
	cmd.Flags().Int64("amount-max", 1000, "maximum trade amount in whole tokens")
	cmd.Flags().Duration("swap-deadline", 10*time.Minute, "swap deadline from submission")
	cmd.Flags().Uint64("gas-limit", 500000, "gas limit for swap transactions")
	cmd.Flags().String("journal", "", "append cycle records to this JSONL file")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the cycle journal")
	cmd.Flags().Bool("dry-run", false, "evaluate decisions without sending transactions")
}

func runTrader(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := setup(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer t.Close()

	t.logger.Info("trader start",
		zap.Duration("interval_min", t.settings.IntervalMin),
		zap.Duration("interval_max", t.settings.IntervalMax),
		zap.Bool("dry_run", t.settings.DryRun),
	)
	return t.bot.Run(ctx)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := setup(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer t.Close()

	res := t.bot.RunCycle(ctx)
	t.bot.Report(ctx, res)
	if res.Fatal() {
		return res.Err
	}
	return nil
}

// trader holds the wired components for one command invocation.
type trader struct {
	settings config.Settings
	logger   *zap.Logger
	client   *chain.Client
	reader   *dex.Reader
	bot      *bot.Bot
	closers  []func()
}

func (t *trader) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i]()
	}
}

func setup(ctx context.Context, cmd *cobra.Command, trading bool) (_ *trader, err error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(cfgFile, envFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	t := &trader{logger: logger}
	t.closers = append(t.closers, func() { _ = logger.Sync() })
	defer func() {
		if err != nil {
			logger.Error("startup failed", zap.String("error_kind", model.ErrorKind(err)), zap.Error(err))
			t.Close()
		}
	}()

	settings, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	t.settings = settings

	client, err := chain.NewClient(ctx, settings.RPCURL)
	if err != nil {
		return nil, &model.UnavailableError{Op: "connect rpc", Err: err}
	}
	t.client = client
	t.closers = append(t.closers, client.Close)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, &model.UnavailableError{Op: "chain id", Err: err}
	}
	head, err := client.LatestBlockNumber(ctx)
	if err != nil {
		return nil, &model.UnavailableError{Op: "block number", Err: err}
	}

	t.reader = dex.NewReader(client, logger)

	adapter, err := oracle.NewAdapter(oracle.Pair{Base: settings.BaseToken, Quote: settings.QuoteToken})
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	eng, err := engine.New(settings.Engine, rng)
	if err != nil {
		return nil, err
	}

	deps := bot.Deps{
		Reader: t.reader,
		Oracle: adapter,
		Engine: eng,
		Rand:   rng,
	}
	botCfg := bot.Config{
		Pool:         settings.Pool,
		Router:       settings.Router,
		FeeOverride:  settings.Fee,
		SwapDeadline: settings.SwapDeadline,
		IntervalMin:  settings.IntervalMin,
		IntervalMax:  settings.IntervalMax,
		MaxRetries:   settings.MaxRetries,
		RetryBackoff: settings.RetryBackoff,
		DryRun:       settings.DryRun || !trading,
	}

	fields := []zap.Field{
		zap.String("rpc", settings.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("head", head),
		zap.String("pool", settings.Pool.Hex()),
		zap.String("base", symbolOf(ctx, t.reader, settings.BaseToken)),
		zap.String("quote", symbolOf(ctx, t.reader, settings.QuoteToken)),
	}

	if trading {
		key, err := wallet.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		w, err := wallet.New(key, wallet.Config{
			ChainID:      chainID,
			Router:       settings.Router,
			SwapGasLimit: settings.GasLimit,
		}, client.Backend(), logger)
		if err != nil {
			return nil, err
		}
		botCfg.Owner = w.Address()
		deps.Executor = w
		fields = append(fields, zap.String("wallet", wallet.ShortAddress(w.Address())))

		journal, err := openJournal(ctx, cfg, t, logger)
		if err != nil {
			return nil, err
		}
		deps.Journal = journal
	}

	t.bot, err = bot.New(botCfg, deps, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("connected", fields...)
	return t, nil
}

func openJournal(ctx context.Context, cfg config.Config, t *trader, logger *zap.Logger) (bot.Journal, error) {
	var sinks storage.MultiJournal
	if cfg.Journal != "" {
		sinks = append(sinks, storage.NewJsonlJournal(cfg.Journal))
		logger.Info("journal enabled", zap.String("path", cfg.Journal))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, &model.UnavailableError{Op: "connect postgres", Err: err}
		}
		t.closers = append(t.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure journal schema: %w", err)
		}
		sinks = append(sinks, store)
		logger.Info("postgres journal enabled")
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// symbolOf is best-effort; the address is used when the token has no symbol.
func symbolOf(ctx context.Context, reader *dex.Reader, token common.Address) string {
	meta, err := reader.ReadTokenMeta(ctx, token)
	if err != nil || meta.Symbol == "" {
		return token.Hex()
	}
	return meta.Symbol
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
