// Package risk holds advisory thresholds. They warn; they never block an action.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/0toBillions/solana-wingman/internal/amount"
)

const (
	DefaultLargeTransferSOL  = 10.0
	DefaultMaxPriceImpactPct = 1.0
)

type Limits struct {
	LargeTransferLamports uint64
	MaxPriceImpactPct     decimal.Decimal
}

// NewLimits converts human thresholds; non-positive values fall back to defaults.
func NewLimits(largeTransferSOL, maxPriceImpactPct float64) Limits {
	if largeTransferSOL <= 0 {
		largeTransferSOL = DefaultLargeTransferSOL
	}
	if maxPriceImpactPct <= 0 {
		maxPriceImpactPct = DefaultMaxPriceImpactPct
	}
	lamports, err := amount.ToBaseUnits(decimal.NewFromFloat(largeTransferSOL).String(), amount.SOLDecimals)
	if err != nil {
		lamports, _ = amount.ToBaseUnits("10", amount.SOLDecimals)
	}
	return Limits{
		LargeTransferLamports: lamports,
		MaxPriceImpactPct:     decimal.NewFromFloat(maxPriceImpactPct),
	}
}

// TransferWarning returns a message when lamports exceeds the large-transfer threshold.
func (l Limits) TransferWarning(lamports uint64) string {
	if l.LargeTransferLamports == 0 || lamports <= l.LargeTransferLamports {
		return ""
	}
	return fmt.Sprintf("large transfer: %s SOL exceeds the %s SOL advisory threshold",
		amount.FormatSOL(lamports), amount.FormatSOL(l.LargeTransferLamports))
}

// PriceImpactWarning takes the impact as a fraction (0.01 = 1%).
func (l Limits) PriceImpactWarning(impact decimal.Decimal) string {
	pct := impact.Abs().Mul(decimal.NewFromInt(100))
	if pct.LessThanOrEqual(l.MaxPriceImpactPct) {
		return ""
	}
	return fmt.Sprintf("high price impact: %s%% exceeds the %s%% advisory threshold",
		pct.StringFixed(2), l.MaxPriceImpactPct.String())
}
