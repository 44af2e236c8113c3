package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolMeta captures immutable V3 pool metadata.
type PoolMeta struct {
	Token0 common.Address `json:"token0"`
	Token1 common.Address `json:"token1"`
	Fee    uint32         `json:"fee"`
}

// PoolState is a snapshot of a pool read once per decision cycle.
type PoolState struct {
	Pool         common.Address
	SqrtPriceX96 *big.Int
	Token0       common.Address
	Token1       common.Address
	Fee          uint32
}
