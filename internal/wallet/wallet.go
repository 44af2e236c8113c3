// Package wallet signs and submits approvals and swaps for a single key.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"rangeTrader/internal/dex"
	"rangeTrader/internal/model"
)

// Backend is what the wallet needs from the node: contract transacts and
// receipt polling. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Config controls transaction construction.
type Config struct {
	ChainID      *big.Int
	Router       common.Address
	SwapGasLimit uint64
}

// Wallet submits transactions signed by one private key and waits for them
// to be mined.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	cfg     Config
	backend Backend
	logger  *zap.Logger
}

// ParsePrivateKey accepts a hex key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, model.NewConfigurationError("private key is required")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, &model.ConfigurationError{Msg: "invalid private key", Err: err}
	}
	return key, nil
}

func New(key *ecdsa.PrivateKey, cfg Config, backend Backend, logger *zap.Logger) (*Wallet, error) {
	if key == nil {
		return nil, model.NewConfigurationError("private key is required")
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, model.NewConfigurationError("chain id is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		cfg:     cfg,
		backend: backend,
		logger:  logger,
	}, nil
}

// Address returns the wallet address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// Approve sets spender's allowance on token to amount and waits for the receipt.
func (w *Wallet) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (model.Confirmation, error) {
	erc20, err := dex.ERC20ABI()
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	opts, err := w.transactOpts(ctx, 0)
	if err != nil {
		return model.Confirmation{}, err
	}

	contract := bind.NewBoundContract(token, erc20, w.backend, w.backend, w.backend)
	tx, err := contract.Transact(opts, "approve", spender, amount)
	if err != nil {
		return model.Confirmation{}, &model.SubmissionError{Op: "approve", Err: err}
	}
	w.logger.Info("approve sent",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("amount", amount.String()),
	)
	return w.wait(ctx, "approve", tx)
}

// SubmitSwap sends exactInputSingle to the router and waits for the receipt.
func (w *Wallet) SubmitSwap(ctx context.Context, params model.SwapParams) (model.Confirmation, error) {
	routerABI, err := dex.SwapRouterABI()
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("parse router abi: %w", err)
	}
	opts, err := w.transactOpts(ctx, w.cfg.SwapGasLimit)
	if err != nil {
		return model.Confirmation{}, err
	}

	contract := bind.NewBoundContract(w.cfg.Router, routerABI, w.backend, w.backend, w.backend)
	tx, err := contract.Transact(opts, "exactInputSingle", dex.NewExactInputSingleParams(params))
	if err != nil {
		return model.Confirmation{}, &model.SubmissionError{Op: "swap", Err: err}
	}
	w.logger.Info("swap sent",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("token_in", params.TokenIn.Hex()),
		zap.String("token_out", params.TokenOut.Hex()),
		zap.String("amount_in", params.AmountIn.String()),
		zap.Uint32("fee", params.Fee),
	)
	return w.wait(ctx, "swap", tx)
}

func (w *Wallet) transactOpts(ctx context.Context, gasLimit uint64) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.cfg.ChainID)
	if err != nil {
		return nil, &model.ConfigurationError{Msg: "build transactor", Err: err}
	}
	opts.Context = ctx
	opts.GasLimit = gasLimit
	return opts, nil
}

func (w *Wallet) wait(ctx context.Context, op string, tx *types.Transaction) (model.Confirmation, error) {
	receipt, err := bind.WaitMined(ctx, w.backend, tx)
	if err != nil {
		return model.Confirmation{}, &model.SubmissionError{Op: op, TxHash: tx.Hash(), Err: fmt.Errorf("wait mined: %w", err)}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return model.Confirmation{}, &model.SubmissionError{Op: op, TxHash: tx.Hash(), Err: fmt.Errorf("reverted in block %d", receipt.BlockNumber.Uint64())}
	}
	return model.Confirmation{
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

// ShortAddress renders an address as 0x1234…abcd for log lines.
func ShortAddress(address common.Address) string {
	hex := address.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}
