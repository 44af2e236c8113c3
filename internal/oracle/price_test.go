package oracle

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"rangeTrader/internal/model"
)

var (
	tokenA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	tokenC = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

// sqrtPriceFor returns sqrtPriceX96 for a human price num/den of token1 per token0.
func sqrtPriceFor(num, den int64, decimals0, decimals1 uint8) *big.Int {
	ratio := new(big.Int).Mul(big.NewInt(num), q192)
	ratio.Mul(ratio, pow10(int(decimals1)))
	ratio.Quo(ratio, new(big.Int).Mul(big.NewInt(den), pow10(int(decimals0))))
	return new(big.Int).Sqrt(ratio)
}

func TestComputePriceExact(t *testing.T) {
	sqrt := new(big.Int).Lsh(big.NewInt(1), 94) // sqrt(1/16) * 2^96

	quote, err := ComputePrice(sqrt, 18, 18, tokenA, tokenB, tokenA, tokenB)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !quote.Price.Equal(decimal.RequireFromString("0.0625")) {
		t.Fatalf("price mismatch: %s", quote.Price)
	}
	if quote.BaseToken != tokenA || quote.QuoteToken != tokenB {
		t.Fatalf("pair mismatch: %+v", quote)
	}

	inverse, err := ComputePrice(sqrt, 18, 18, tokenA, tokenB, tokenB, tokenA)
	if err != nil {
		t.Fatalf("compute inverse: %v", err)
	}
	if !inverse.Price.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("inverse price mismatch: %s", inverse.Price)
	}
}

func TestComputePriceAdjustsForDecimals(t *testing.T) {
	// token0 has 6 decimals, token1 has 18: raw ratio is 0.0625e12.
	sqrt := new(big.Int).Mul(new(big.Int).Lsh(big.NewInt(1), 94), big.NewInt(1_000_000))

	quote, err := ComputePrice(sqrt, 6, 18, tokenA, tokenB, tokenA, tokenB)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !quote.Price.Equal(decimal.RequireFromString("0.0625")) {
		t.Fatalf("price mismatch: %s", quote.Price)
	}
}

func TestComputePriceBaseWithMoreDecimals(t *testing.T) {
	// token0 has 18 decimals, token1 has 6: raw ratio 2^-12 is 1e12/4096 human units.
	sqrt := new(big.Int).Lsh(big.NewInt(1), 90)

	quote, err := ComputePrice(sqrt, 18, 6, tokenA, tokenB, tokenA, tokenB)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !quote.Price.Equal(decimal.NewFromInt(244140625)) {
		t.Fatalf("price mismatch: %s", quote.Price)
	}

	inverse, err := ComputePrice(sqrt, 18, 6, tokenA, tokenB, tokenB, tokenA)
	if err != nil {
		t.Fatalf("compute inverse: %v", err)
	}
	if !inverse.Price.Equal(decimal.RequireFromString("0.000000004096")) {
		t.Fatalf("inverse price mismatch: %s", inverse.Price)
	}
}

func TestComputePriceInverseConsistent(t *testing.T) {
	cases := []struct {
		name      string
		num, den  int64
		decimals0 uint8
		decimals1 uint8
	}{
		{"tva-usdt", 5, 100, 18, 6},
		{"usdt-tva", 20, 1, 6, 18},
		{"equal decimals", 314159, 100000, 18, 18},
		{"wbtc-weth", 1675, 100, 8, 18},
		{"zero decimals", 3, 7, 0, 0},
		{"high price", 250000, 1, 6, 6},
	}

	tolerance := decimal.New(1, -9)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sqrt := sqrtPriceFor(tc.num, tc.den, tc.decimals0, tc.decimals1)

			forward, err := ComputePrice(sqrt, tc.decimals0, tc.decimals1, tokenA, tokenB, tokenA, tokenB)
			if err != nil {
				t.Fatalf("forward: %v", err)
			}
			backward, err := ComputePrice(sqrt, tc.decimals0, tc.decimals1, tokenA, tokenB, tokenB, tokenA)
			if err != nil {
				t.Fatalf("backward: %v", err)
			}

			product := forward.Price.Mul(backward.Price)
			if product.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(tolerance) {
				t.Fatalf("product %s not within tolerance (forward %s, backward %s)", product, forward.Price, backward.Price)
			}

			want := decimal.NewFromInt(tc.num).Div(decimal.NewFromInt(tc.den))
			if forward.Price.Sub(want).Abs().GreaterThan(want.Mul(tolerance)) {
				t.Fatalf("forward price %s, want about %s", forward.Price, want)
			}
		})
	}
}

func TestComputePriceRejectsPairMismatch(t *testing.T) {
	sqrt := sqrtPriceFor(1, 20, 18, 6)

	cases := []struct {
		base, quote common.Address
	}{
		{tokenA, tokenC},
		{tokenC, tokenB},
		{tokenA, tokenA},
		{tokenC, tokenC},
	}
	for _, tc := range cases {
		_, err := ComputePrice(sqrt, 18, 6, tokenA, tokenB, tc.base, tc.quote)
		var cfgErr *model.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected configuration error for %s/%s, got %v", tc.base.Hex(), tc.quote.Hex(), err)
		}
	}
}

func TestComputePriceRejectsInvalidInput(t *testing.T) {
	var cfgErr *model.ConfigurationError

	if _, err := ComputePrice(big.NewInt(0), 18, 6, tokenA, tokenB, tokenA, tokenB); !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error for zero sqrt price, got %v", err)
	}
	if _, err := ComputePrice(nil, 18, 6, tokenA, tokenB, tokenA, tokenB); !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error for nil sqrt price, got %v", err)
	}
	if _, err := ComputePrice(big.NewInt(1<<40), 37, 6, tokenA, tokenB, tokenA, tokenB); !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error for decimals0 out of range, got %v", err)
	}
	if _, err := ComputePrice(big.NewInt(1<<40), 6, 255, tokenA, tokenB, tokenA, tokenB); !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error for decimals1 out of range, got %v", err)
	}
}

func TestAdapterQuote(t *testing.T) {
	if _, err := NewAdapter(Pair{Base: tokenA, Quote: tokenA}); err == nil {
		t.Fatalf("expected error for identical tokens")
	}
	if _, err := NewAdapter(Pair{Base: tokenA}); err == nil {
		t.Fatalf("expected error for missing quote token")
	}

	adapter, err := NewAdapter(Pair{Base: tokenB, Quote: tokenA})
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}

	state := model.PoolState{
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 94),
		Token0:       tokenA,
		Token1:       tokenB,
	}
	quote, err := adapter.Quote(state, 18, 18)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote.Price.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("price mismatch: %s", quote.Price)
	}
}
