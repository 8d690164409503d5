package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/swiftshopr/sdk-go/pkg/usdc"
)

var (
	ErrInvalidDestination = errors.New("invalid destination address")
	ErrInvalidAmount      = errors.New("invalid transfer amount")
	ErrNoTransactionHash  = errors.New("transaction sent but no hash returned")
)

// Transaction is an EVM transaction to be signed and submitted by a wallet.
type Transaction struct {
	To      string
	Value   *big.Int
	Data    []byte
	ChainID int64
}

// Wallet is the custodial wallet capability assumed by the SDK. Key custody
// and signing live entirely behind this interface.
type Wallet interface {
	SendTransaction(ctx context.Context, txn Transaction) (txHash string, err error)
}

// TransferUsdc submits an ERC-20 transfer of the provided USD amount to the
// destination address, via the wallet capability. The destination and amount
// must originate from a verified transfer intent.
func TransferUsdc(
	ctx context.Context,
	wallet Wallet,
	network Network,
	destination string,
	amount decimal.Decimal,
) (string, error) {
	if !IsValidAddress(destination) {
		return "", ErrInvalidDestination
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	networkConfig := GetNetworkConfig(network)

	calldata, err := PackTransfer(common.HexToAddress(destination), usdc.ToQuarks(amount))
	if err != nil {
		return "", err
	}

	txHash, err := wallet.SendTransaction(ctx, Transaction{
		To:      networkConfig.UsdcAddress,
		Value:   big.NewInt(0),
		Data:    calldata,
		ChainID: networkConfig.ChainID,
	})
	if err != nil {
		return "", errors.Wrap(err, "error sending transaction")
	}
	if len(txHash) == 0 {
		return "", ErrNoTransactionHash
	}

	return txHash, nil
}
