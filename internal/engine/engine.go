// Package engine decides when to buy or sell based on static price bands.
package engine

import (
	"github.com/shopspring/decimal"

	"rangeTrader/internal/model"
)

// Mode is the hysteresis state carried between cycles.
type Mode string

const (
	Neutral   Mode = "neutral"
	ArmedSell Mode = "armed_sell"
	ArmedBuy  Mode = "armed_buy"
)

// Action is the outcome kind of an evaluation.
type Action string

const (
	NoAction            Action = "none"
	SellAction          Action = "sell"
	BuyAction           Action = "buy"
	InsufficientBalance Action = "insufficient_balance"
)

// Side identifies one of the two tokens of the pair.
type Side string

const (
	Base  Side = "base"
	Quote Side = "quote"
)

const (
	ReasonInBand    = "in target band"
	ReasonNoTrigger = "no trigger crossed"
	ReasonSell      = "price at or above sell trigger"
	ReasonBuy       = "price at or below buy trigger"
)

// Config holds the static trigger bands and the random trade size range.
// Amounts are whole token units: base units for sells, quote units for buys.
type Config struct {
	SellTrigger decimal.Decimal
	BuyTrigger  decimal.Decimal
	TargetLow   decimal.Decimal
	TargetHigh  decimal.Decimal
	AmountMin   int64
	AmountMax   int64
}

// Validate checks sellTrigger > targetHigh >= targetLow > buyTrigger > 0 and
// 0 < AmountMin <= AmountMax.
func (c Config) Validate() error {
	if !c.BuyTrigger.IsPositive() {
		return model.NewConfigurationError("buy trigger must be positive, got %s", c.BuyTrigger)
	}
	if !c.TargetLow.GreaterThan(c.BuyTrigger) {
		return model.NewConfigurationError("target low %s must be above buy trigger %s", c.TargetLow, c.BuyTrigger)
	}
	if c.TargetHigh.LessThan(c.TargetLow) {
		return model.NewConfigurationError("target high %s must not be below target low %s", c.TargetHigh, c.TargetLow)
	}
	if !c.SellTrigger.GreaterThan(c.TargetHigh) {
		return model.NewConfigurationError("sell trigger %s must be above target high %s", c.SellTrigger, c.TargetHigh)
	}
	if c.AmountMin <= 0 {
		return model.NewConfigurationError("amount min must be positive, got %d", c.AmountMin)
	}
	if c.AmountMax < c.AmountMin {
		return model.NewConfigurationError("amount max %d below amount min %d", c.AmountMax, c.AmountMin)
	}
	return nil
}

// Rand draws uniformly distributed integers in [0, n). *rand.Rand satisfies it.
type Rand interface {
	Int63n(n int64) int64
}

// Balances are wallet holdings in human units.
type Balances struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// Decision is the result of one evaluation. Amount is the drawn trade size
// whenever a trigger fired; Side names the short token on InsufficientBalance.
type Decision struct {
	Action Action
	Amount int64
	Side   Side
	Reason string
}

// Engine evaluates prices against the configured bands. It is not safe for
// concurrent use; cycles are expected to run one at a time.
type Engine struct {
	cfg  Config
	rng  Rand
	mode Mode
}

func New(cfg Config, rng Rand) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, model.NewConfigurationError("random source is required")
	}
	return &Engine{cfg: cfg, rng: rng, mode: Neutral}, nil
}

// Mode returns the current hysteresis state.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Config returns the engine's bands.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate compares price with the bands and returns what to do. It never
// fails; a short balance is reported as a decision.
func (e *Engine) Evaluate(price decimal.Decimal, balances Balances) Decision {
	switch {
	case price.GreaterThanOrEqual(e.cfg.SellTrigger) && e.mode != ArmedSell:
		amount := e.drawAmount()
		if balances.Base.LessThan(decimal.NewFromInt(amount)) {
			return Decision{Action: InsufficientBalance, Side: Base, Amount: amount, Reason: "base balance below sell amount"}
		}
		e.mode = ArmedSell
		return Decision{Action: SellAction, Amount: amount, Reason: ReasonSell}

	case price.LessThanOrEqual(e.cfg.BuyTrigger) && e.mode != ArmedBuy:
		amount := e.drawAmount()
		if balances.Quote.LessThan(decimal.NewFromInt(amount)) {
			return Decision{Action: InsufficientBalance, Side: Quote, Amount: amount, Reason: "quote balance below buy amount"}
		}
		e.mode = ArmedBuy
		return Decision{Action: BuyAction, Amount: amount, Reason: ReasonBuy}

	case price.GreaterThanOrEqual(e.cfg.TargetLow) && price.LessThanOrEqual(e.cfg.TargetHigh):
		e.mode = Neutral
		return Decision{Action: NoAction, Reason: ReasonInBand}

	default:
		return Decision{Action: NoAction, Reason: ReasonNoTrigger}
	}
}

func (e *Engine) drawAmount() int64 {
	return e.cfg.AmountMin + e.rng.Int63n(e.cfg.AmountMax-e.cfg.AmountMin+1)
}
