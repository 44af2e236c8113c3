// Package oracle turns V3 pool square-root prices into human-readable quotes.
package oracle

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"rangeTrader/internal/model"
)

const (
	// PriceScale is the number of fractional decimal digits kept before the
	// fixed-point value is converted to a decimal.
	PriceScale = 18

	// MaxDecimals is the largest token decimals value accepted.
	MaxDecimals = 36
)

var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// ComputePrice returns the price of one base token in quote token units from a
// pool's sqrtPriceX96. All scaling happens on integers; the result is only
// converted to a decimal at the end.
func ComputePrice(
	sqrtPriceX96 *big.Int,
	decimals0 uint8,
	decimals1 uint8,
	token0 common.Address,
	token1 common.Address,
	baseToken common.Address,
	quoteToken common.Address,
) (model.PriceQuote, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return model.PriceQuote{}, model.NewConfigurationError("pool sqrtPriceX96 is zero (uninitialized pool)")
	}
	if decimals0 > MaxDecimals {
		return model.PriceQuote{}, model.NewConfigurationError("token0 decimals %d out of range 0-%d", decimals0, MaxDecimals)
	}
	if decimals1 > MaxDecimals {
		return model.PriceQuote{}, model.NewConfigurationError("token1 decimals %d out of range 0-%d", decimals1, MaxDecimals)
	}

	priceX192 := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)

	var num, den *big.Int
	switch {
	case baseToken == token0 && quoteToken == token1:
		// token1 per token0: priceX192 * 10^dec0 / (2^192 * 10^dec1)
		num = new(big.Int).Mul(priceX192, pow10(PriceScale+int(decimals0)))
		den = new(big.Int).Mul(q192, pow10(int(decimals1)))
	case baseToken == token1 && quoteToken == token0:
		num = new(big.Int).Mul(q192, pow10(PriceScale+int(decimals1)))
		den = new(big.Int).Mul(priceX192, pow10(int(decimals0)))
	default:
		return model.PriceQuote{}, model.NewConfigurationError(
			"pool pair %s/%s does not match configured %s/%s",
			token0.Hex(), token1.Hex(), baseToken.Hex(), quoteToken.Hex(),
		)
	}

	scaled := new(big.Int).Quo(num, den)
	if scaled.Sign() == 0 {
		return model.PriceQuote{}, model.NewConfigurationError("price below 1e-%d, pool pair or decimals misconfigured", PriceScale)
	}

	return model.PriceQuote{
		BaseToken:  baseToken,
		QuoteToken: quoteToken,
		Price:      decimal.NewFromBigInt(scaled, -PriceScale),
	}, nil
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
