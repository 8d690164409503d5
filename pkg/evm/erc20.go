package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const erc20AbiJson = `[
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"name": "transfer",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": [{"name": "success", "type": "bool"}]
	}
]`

var erc20Abi abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20AbiJson))
	if err != nil {
		panic(err)
	}
	erc20Abi = parsed
}

// IsValidAddress reports whether the provided string is a well-formed,
// 0x-prefixed EVM address.
func IsValidAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// PackBalanceOf returns the calldata for an ERC-20 balanceOf call.
func PackBalanceOf(owner common.Address) ([]byte, error) {
	data, err := erc20Abi.Pack("balanceOf", owner)
	if err != nil {
		return nil, errors.Wrap(err, "error packing balanceOf calldata")
	}
	return data, nil
}

// PackTransfer returns the calldata for an ERC-20 transfer call.
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20Abi.Pack("transfer", to, amount)
	if err != nil {
		return nil, errors.Wrap(err, "error packing transfer calldata")
	}
	return data, nil
}

// UnpackBalanceOf decodes the return value of an ERC-20 balanceOf call.
func UnpackBalanceOf(result []byte) (*big.Int, error) {
	values, err := erc20Abi.Unpack("balanceOf", result)
	if err != nil {
		return nil, errors.Wrap(err, "error unpacking balanceOf result")
	}
	if len(values) != 1 {
		return nil, errors.New("unexpected balanceOf result")
	}

	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected balanceOf result type")
	}
	return balance, nil
}
