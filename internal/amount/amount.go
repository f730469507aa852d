// Package amount converts between human-entered display amounts and on-chain base units.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// SOLDecimals is the precision of the native currency (1 SOL = 10^9 lamports).
const SOLDecimals uint8 = 9

// ErrInvalidAmount is returned for inputs that are not a non-negative decimal literal
// representable in base units.
var ErrInvalidAmount = errors.New("invalid amount")

var maxBaseUnits = new(big.Int).SetUint64(^uint64(0))

// plainDecimal admits digits with an optional fraction. Exponent notation is refused: a
// huge negative exponent would make scaling allocate without bound.
var plainDecimal = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)

// ToBaseUnits scales a display amount by 10^decimals and rounds half away from zero.
func ToBaseUnits(display string, decimals uint8) (uint64, error) {
	raw := strings.TrimSpace(display)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if !plainDecimal.MatchString(raw) {
		return 0, fmt.Errorf("%w: %q is not a plain decimal number", ErrInvalidAmount, raw)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, raw)
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	scaled := d.Shift(int32(decimals)).Round(0).BigInt()
	if scaled.Cmp(maxBaseUnits) > 0 {
		return 0, fmt.Errorf("%w: %q overflows 64-bit base units at %d decimals", ErrInvalidAmount, raw, decimals)
	}
	return scaled.Uint64(), nil
}

// ToDisplay renders base units as a decimal string without trailing fractional zeros.
func ToDisplay(base uint64, decimals uint8) string {
	if decimals == 0 {
		return new(big.Int).SetUint64(base).String()
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(new(big.Int).SetUint64(base), scale, new(big.Int))

	fraction := frac.String()
	if pad := int(decimals) - len(fraction); pad > 0 {
		fraction = strings.Repeat("0", pad) + fraction
	}
	fraction = strings.TrimRight(fraction, "0")
	if fraction == "" {
		return whole.String()
	}
	return whole.String() + "." + fraction
}

// FormatSOL renders lamports as SOL.
func FormatSOL(lamports uint64) string {
	return ToDisplay(lamports, SOLDecimals)
}
