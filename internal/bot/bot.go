// Package bot runs the read → price → decide → swap cycle on a schedule.
package bot

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rangeTrader/internal/engine"
	"rangeTrader/internal/model"
	"rangeTrader/internal/oracle"
)

// ChainReader reads pool and token state.
type ChainReader interface {
	ReadPoolState(ctx context.Context, pool common.Address) (model.PoolState, error)
	ReadTokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	ReadBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	ReadAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// Executor submits transactions and blocks until they are mined.
type Executor interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (model.Confirmation, error)
	SubmitSwap(ctx context.Context, params model.SwapParams) (model.Confirmation, error)
}

// Journal records finished cycles.
type Journal interface {
	PutCycle(ctx context.Context, record model.CycleRecord) error
}

// Config holds runtime settings for the bot.
type Config struct {
	Pool         common.Address
	Router       common.Address
	Owner        common.Address
	FeeOverride  uint32
	SwapDeadline time.Duration
	IntervalMin  time.Duration
	IntervalMax  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	DryRun       bool
}

// Deps are the collaborators a Bot drives. Executor may be nil in dry-run
// mode; Journal may be nil.
type Deps struct {
	Reader   ChainReader
	Executor Executor
	Oracle   *oracle.Adapter
	Engine   *engine.Engine
	Journal  Journal
	Rand     engine.Rand
}

// Bot owns the decision engine and runs cycles one at a time.
type Bot struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config, deps Deps, logger *zap.Logger) (*Bot, error) {
	if deps.Reader == nil {
		return nil, fmt.Errorf("chain reader is nil")
	}
	if deps.Oracle == nil || deps.Engine == nil {
		return nil, fmt.Errorf("oracle and engine are required")
	}
	if deps.Executor == nil && !cfg.DryRun {
		return nil, fmt.Errorf("executor is required unless dry-run is enabled")
	}
	if deps.Rand == nil {
		return nil, fmt.Errorf("random source is nil")
	}
	if cfg.IntervalMax < cfg.IntervalMin {
		return nil, model.NewConfigurationError("interval max %s below interval min %s", cfg.IntervalMax, cfg.IntervalMin)
	}
	if cfg.SwapDeadline <= 0 {
		cfg.SwapDeadline = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{cfg: cfg, deps: deps, logger: logger, now: time.Now}, nil
}

// Mode returns the engine's current hysteresis state.
func (b *Bot) Mode() engine.Mode {
	return b.deps.Engine.Mode()
}

// snapshot is the chain state a cycle decides on.
type snapshot struct {
	state         model.PoolState
	quote         model.PriceQuote
	baseDecimals  uint8
	quoteDecimals uint8
}

// Quote reads the pool and prices the configured pair without touching the
// engine or the wallet.
func (b *Bot) Quote(ctx context.Context) (model.PriceQuote, error) {
	snap, err := b.snapshot(ctx)
	if err != nil {
		return model.PriceQuote{}, err
	}
	return snap.quote, nil
}

// RunCycle performs one full decision cycle and never panics on chain errors;
// failures are reported in the result.
func (b *Bot) RunCycle(ctx context.Context) CycleResult {
	pair := b.deps.Oracle.Pair()
	res := CycleResult{
		Started:    b.now(),
		Pool:       b.cfg.Pool,
		BaseToken:  pair.Base,
		QuoteToken: pair.Quote,
		Mode:       b.deps.Engine.Mode(),
		DryRun:     b.cfg.DryRun,
	}
	defer func() { res.Duration = b.now().Sub(res.Started) }()

	snap, err := b.snapshot(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Quote = &snap.quote

	balances, err := b.balances(ctx, snap)
	if err != nil {
		res.Err = err
		return res
	}
	res.Balances = &balances

	decision := b.deps.Engine.Evaluate(snap.quote.Price, balances)
	res.Decision = decision
	res.Mode = b.deps.Engine.Mode()

	intent, decimals, ok := b.intent(decision, snap)
	if !ok {
		return res
	}
	res.Intent = &intent
	if b.cfg.DryRun {
		return res
	}

	fee := snap.state.Fee
	if b.cfg.FeeOverride != 0 {
		fee = b.cfg.FeeOverride
	}
	conf, err := b.execute(ctx, intent, fee, decimals)
	if err != nil {
		// mode stays armed: the next cycle reassesses instead of re-firing
		res.Err = err
		return res
	}
	res.Tx = &conf
	return res
}

func (b *Bot) snapshot(ctx context.Context) (snapshot, error) {
	var state model.PoolState
	err := b.retry(ctx, func(ctx context.Context) error {
		var err error
		state, err = b.deps.Reader.ReadPoolState(ctx, b.cfg.Pool)
		return err
	})
	if err != nil {
		return snapshot{}, fmt.Errorf("read pool state: %w", err)
	}

	decimals0, err := b.decimals(ctx, state.Token0)
	if err != nil {
		return snapshot{}, err
	}
	decimals1, err := b.decimals(ctx, state.Token1)
	if err != nil {
		return snapshot{}, err
	}

	quote, err := b.deps.Oracle.Quote(state, decimals0, decimals1)
	if err != nil {
		return snapshot{}, err
	}

	snap := snapshot{state: state, quote: quote, baseDecimals: decimals0, quoteDecimals: decimals1}
	if quote.BaseToken == state.Token1 {
		snap.baseDecimals, snap.quoteDecimals = decimals1, decimals0
	}
	return snap, nil
}

func (b *Bot) decimals(ctx context.Context, token common.Address) (uint8, error) {
	var decimals uint8
	err := b.retry(ctx, func(ctx context.Context) error {
		var err error
		decimals, err = b.deps.Reader.ReadTokenDecimals(ctx, token)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read decimals %s: %w", token.Hex(), err)
	}
	return decimals, nil
}

func (b *Bot) balances(ctx context.Context, snap snapshot) (engine.Balances, error) {
	base, err := b.balance(ctx, snap.quote.BaseToken)
	if err != nil {
		return engine.Balances{}, err
	}
	quote, err := b.balance(ctx, snap.quote.QuoteToken)
	if err != nil {
		return engine.Balances{}, err
	}
	return engine.Balances{
		Base:  toHuman(base, snap.baseDecimals),
		Quote: toHuman(quote, snap.quoteDecimals),
	}, nil
}

func (b *Bot) balance(ctx context.Context, token common.Address) (*big.Int, error) {
	var bal *big.Int
	err := b.retry(ctx, func(ctx context.Context) error {
		var err error
		bal, err = b.deps.Reader.ReadBalance(ctx, token, b.cfg.Owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read balance %s: %w", token.Hex(), err)
	}
	return bal, nil
}

// intent turns a sell or buy decision into a swap of tokenIn for tokenOut and
// returns tokenIn's decimals.
func (b *Bot) intent(decision engine.Decision, snap snapshot) (model.TradeIntent, uint8, bool) {
	switch decision.Action {
	case engine.SellAction:
		return model.TradeIntent{
			Direction: model.Sell,
			TokenIn:   snap.quote.BaseToken,
			TokenOut:  snap.quote.QuoteToken,
			Amount:    decision.Amount,
		}, snap.baseDecimals, true
	case engine.BuyAction:
		return model.TradeIntent{
			Direction: model.Buy,
			TokenIn:   snap.quote.QuoteToken,
			TokenOut:  snap.quote.BaseToken,
			Amount:    decision.Amount,
		}, snap.quoteDecimals, true
	default:
		return model.TradeIntent{}, 0, false
	}
}

func (b *Bot) execute(ctx context.Context, intent model.TradeIntent, fee uint32, decimals uint8) (model.Confirmation, error) {
	amountIn := toRaw(intent.Amount, decimals)

	if err := b.ensureAllowance(ctx, intent.TokenIn, amountIn); err != nil {
		return model.Confirmation{}, err
	}

	params := model.SwapParams{
		TokenIn:   intent.TokenIn,
		TokenOut:  intent.TokenOut,
		Fee:       fee,
		AmountIn:  amountIn,
		Recipient: b.cfg.Owner,
		Deadline:  b.now().Add(b.cfg.SwapDeadline),
	}
	conf, err := b.deps.Executor.SubmitSwap(ctx, params)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("swap %s: %w", intent.Direction, err)
	}
	b.logger.Info("swap confirmed",
		zap.String("direction", string(intent.Direction)),
		zap.Int64("amount", intent.Amount),
		zap.String("tx", conf.TxHash.Hex()),
		zap.Uint64("block", conf.BlockNumber),
	)
	return conf, nil
}

// ensureAllowance makes sure the router may spend need of token. A non-zero
// allowance below need is reset to zero first for tokens that refuse to change
// one non-zero allowance into another.
func (b *Bot) ensureAllowance(ctx context.Context, token common.Address, need *big.Int) error {
	var current *big.Int
	err := b.retry(ctx, func(ctx context.Context) error {
		var err error
		current, err = b.deps.Reader.ReadAllowance(ctx, token, b.cfg.Owner, b.cfg.Router)
		return err
	})
	if err != nil {
		return fmt.Errorf("read allowance %s: %w", token.Hex(), err)
	}
	if current.Cmp(need) >= 0 {
		return nil
	}

	if current.Sign() != 0 {
		// Best effort only: tokens without the reset requirement accept the
		// direct approve below anyway.
		if _, err := b.deps.Executor.Approve(ctx, token, b.cfg.Router, big.NewInt(0)); err != nil {
			b.logger.Warn("allowance reset failed", zap.String("token", token.Hex()), zap.Error(err))
		}
	}

	conf, err := b.deps.Executor.Approve(ctx, token, b.cfg.Router, need)
	if err != nil {
		return fmt.Errorf("approve %s: %w", token.Hex(), err)
	}
	b.logger.Info("allowance approved",
		zap.String("token", token.Hex()),
		zap.String("amount", need.String()),
		zap.String("tx", conf.TxHash.Hex()),
	)
	return nil
}

func (b *Bot) retry(ctx context.Context, fn func(context.Context) error) error {
	return withRetry(ctx, b.cfg.MaxRetries, b.cfg.RetryBackoff, fn)
}

func toHuman(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

func toRaw(amount int64, decimals uint8) *big.Int {
	return decimal.NewFromInt(amount).Shift(int32(decimals)).BigInt()
}
