package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Direction is the side of a swap relative to the base token.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// TradeIntent is a swap the decision engine wants executed. Amount is in
// human units of TokenIn.
type TradeIntent struct {
	Direction Direction
	TokenIn   common.Address
	TokenOut  common.Address
	Amount    int64
}

// SwapParams describes a single-pool exact-input swap.
type SwapParams struct {
	TokenIn   common.Address
	TokenOut  common.Address
	Fee       uint32
	AmountIn  *big.Int
	Recipient common.Address
	Deadline  time.Time
}

// Confirmation is the mined result of a submitted transaction.
type Confirmation struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}
