package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceQuote is the price of one BaseToken expressed in QuoteToken units.
type PriceQuote struct {
	BaseToken  common.Address
	QuoteToken common.Address
	Price      decimal.Decimal
}
