package usdc

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// Contract addresses per supported network
	BaseMint        = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	BaseSepoliaMint = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"

	QuarksPerUsdc = 1000000
	Decimals      = 6
)

// ToQuarks converts a USD amount to the smallest USDC unit.
func ToQuarks(amount decimal.Decimal) *big.Int {
	return amount.Shift(Decimals).Round(0).BigInt()
}

// FromQuarks converts an amount in the smallest USDC unit to a USD amount.
func FromQuarks(quarks *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(quarks, -Decimals)
}
