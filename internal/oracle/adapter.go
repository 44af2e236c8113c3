package oracle

import (
	"github.com/ethereum/go-ethereum/common"

	"rangeTrader/internal/model"
)

// Pair names the base and quote tokens a quote is expressed in.
type Pair struct {
	Base  common.Address
	Quote common.Address
}

// Adapter quotes a fixed token pair from pool snapshots.
type Adapter struct {
	pair Pair
}

func NewAdapter(pair Pair) (*Adapter, error) {
	if pair.Base == (common.Address{}) || pair.Quote == (common.Address{}) {
		return nil, model.NewConfigurationError("base and quote tokens are required")
	}
	if pair.Base == pair.Quote {
		return nil, model.NewConfigurationError("base and quote tokens must differ")
	}
	return &Adapter{pair: pair}, nil
}

// Pair returns the configured pair.
func (a *Adapter) Pair() Pair {
	return a.pair
}

// Quote prices the configured base token from a pool snapshot.
func (a *Adapter) Quote(state model.PoolState, decimals0, decimals1 uint8) (model.PriceQuote, error) {
	return ComputePrice(state.SqrtPriceX96, decimals0, decimals1, state.Token0, state.Token1, a.pair.Base, a.pair.Quote)
}
