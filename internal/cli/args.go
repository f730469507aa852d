package cli

import (
	"errors"
	"fmt"
	"strconv"

	solana "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/0toBillions/solana-wingman/internal/amount"
)

var (
	// ErrInvalidArgument marks a positional argument or flag that failed validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConfig marks configuration that could not be loaded or validated.
	ErrConfig = errors.New("invalid configuration")
)

// argRange is cobra.RangeArgs with the error tagged as invalid input.
func argRange(min, max int) cobra.PositionalArgs {
	check := cobra.RangeArgs(min, max)
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return nil
	}
}

func parseAddress(name, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s %q is not a base58 public key", ErrInvalidArgument, name, value)
	}
	return key, nil
}

func parseSignature(value string) (solana.Signature, error) {
	sig, err := solana.SignatureFromBase58(value)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %q is not a base58 transaction signature", ErrInvalidArgument, value)
	}
	return sig, nil
}

// checkAmount validates the display amount syntax; decimals are applied later by the
// orchestrator once the mint is known.
func checkAmount(value string) error {
	if _, err := amount.ToBaseUnits(value, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

func parseDecimals(value string) (uint8, error) {
	d, err := strconv.ParseUint(value, 10, 8)
	if err != nil || d > 18 {
		return 0, fmt.Errorf("%w: decimals %q must be an integer in 0..18", ErrInvalidArgument, value)
	}
	return uint8(d), nil
}
