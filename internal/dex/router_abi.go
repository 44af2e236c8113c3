package dex

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"rangeTrader/internal/model"
)

const swapRouterABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "tokenIn", "type": "address"},
          {"internalType": "address", "name": "tokenOut", "type": "address"},
          {"internalType": "uint24", "name": "fee", "type": "uint24"},
          {"internalType": "address", "name": "recipient", "type": "address"},
          {"internalType": "uint256", "name": "deadline", "type": "uint256"},
          {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
          {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
        ],
        "internalType": "struct ISwapRouter.ExactInputSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "exactInputSingle",
    "outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
    "stateMutability": "payable",
    "type": "function"
  }
]`

var (
	swapRouterABI     abi.ABI
	swapRouterABIOnce sync.Once
	swapRouterABIErr  error
)

// SwapRouterABI returns the parsed V3 SwapRouter ABI.
func SwapRouterABI() (abi.ABI, error) {
	swapRouterABIOnce.Do(func() {
		swapRouterABI, swapRouterABIErr = abi.JSON(strings.NewReader(swapRouterABIJSON))
	})
	return swapRouterABI, swapRouterABIErr
}

// ExactInputSingleParams mirrors ISwapRouter.ExactInputSingleParams. Field
// names must match the ABI component names for tuple packing.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// NewExactInputSingleParams builds router params with no output floor and no
// price limit.
func NewExactInputSingleParams(p model.SwapParams) ExactInputSingleParams {
	return ExactInputSingleParams{
		TokenIn:           p.TokenIn,
		TokenOut:          p.TokenOut,
		Fee:               new(big.Int).SetUint64(uint64(p.Fee)),
		Recipient:         p.Recipient,
		Deadline:          big.NewInt(p.Deadline.Unix()),
		AmountIn:          new(big.Int).Set(p.AmountIn),
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: big.NewInt(0),
	}
}
