package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"rangeTrader/internal/model"
)

// Reader serves pool and token reads for the trading cycle. Immutable pool
// and token metadata is cached; slot0, balances and allowances are read fresh.
type Reader struct {
	caller Caller
	pools  *PoolMetaCache
	tokens *TokenMetaCache
	logger *zap.Logger
}

func NewReader(caller Caller, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		caller: caller,
		pools:  NewPoolMetaCache(),
		tokens: NewTokenMetaCache(),
		logger: logger,
	}
}

// ReadPoolState returns a fresh snapshot of the pool.
func (r *Reader) ReadPoolState(ctx context.Context, pool common.Address) (model.PoolState, error) {
	meta, ok := r.pools.Get(pool)
	if !ok {
		fetched, err := FetchPoolMeta(ctx, r.caller, pool)
		if err != nil {
			return model.PoolState{}, classify("pool metadata "+pool.Hex(), err)
		}
		r.pools.Set(pool, fetched)
		r.logger.Debug("pool metadata cached",
			zap.String("pool", pool.Hex()),
			zap.String("token0", fetched.Token0.Hex()),
			zap.String("token1", fetched.Token1.Hex()),
			zap.Uint32("fee", fetched.Fee),
		)
		meta = fetched
	}

	sqrt, err := FetchSqrtPrice(ctx, r.caller, pool)
	if err != nil {
		return model.PoolState{}, classify("slot0 "+pool.Hex(), err)
	}

	return model.PoolState{
		Pool:         pool,
		SqrtPriceX96: sqrt,
		Token0:       meta.Token0,
		Token1:       meta.Token1,
		Fee:          meta.Fee,
	}, nil
}

// ReadTokenMeta returns cached token metadata, fetching it on first use.
func (r *Reader) ReadTokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.tokens.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, r.caller, token)
	if err != nil {
		return model.TokenMeta{}, classify("token metadata "+token.Hex(), err)
	}
	r.tokens.Set(token, meta)
	return meta, nil
}

// ReadTokenDecimals returns the token's decimals.
func (r *Reader) ReadTokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	meta, err := r.ReadTokenMeta(ctx, token)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// ReadBalance returns owner's raw token balance.
func (r *Reader) ReadBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	erc20, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, token, erc20, "balanceOf", owner)
	if err != nil {
		return nil, classify("balanceOf "+token.Hex(), err)
	}
	return asBigInt(values[0])
}

// ReadAllowance returns the raw amount spender may move on behalf of owner.
func (r *Reader) ReadAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	erc20, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, token, erc20, "allowance", owner, spender)
	if err != nil {
		return nil, classify("allowance "+token.Hex(), err)
	}
	return asBigInt(values[0])
}

// classify maps RPC failures to UnavailableError and undecodable responses to
// ConfigurationError: an address that does not answer like a pool or token is
// a setup problem, not a transient one.
func classify(op string, err error) error {
	var ce *callError
	if errors.As(err, &ce) && !ce.transport {
		return &model.ConfigurationError{Msg: op, Err: err}
	}
	return &model.UnavailableError{Op: op, Err: err}
}
