package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/0toBillions/solana-wingman/internal/actions"
	"github.com/0toBillions/solana-wingman/internal/amount"
	"github.com/0toBillions/solana-wingman/internal/dex/jupiter"
	"github.com/0toBillions/solana-wingman/internal/submit"
	"github.com/0toBillions/solana-wingman/internal/wallet"
)

// Error classes reported on failure.
const (
	ClassInput              = "input"
	ClassConfig             = "config"
	ClassIdentity           = "identity"
	ClassUnsupportedNetwork = "unsupported-network"
	ClassNotFound           = "not-found"
	ClassRejected           = "network-rejection"
	ClassTransient          = "transient"
	ClassExternal           = "external-service"
	ClassDeploy             = "deploy"
	ClassCanceled           = "canceled"
	ClassOutcomeUnknown     = "outcome-unknown"
	ClassUnknown            = "error"
)

var fundsMarkers = []string{
	"insufficient funds",
	"insufficient lamports",
	"no record of a prior credit",
}

// Describe maps an error to its class and a remedy hint for the user.
func Describe(err error) (class, remedy string) {
	var (
		deployErr *actions.DeployError
		execErr   *submit.ExecutionError
		retryErr  *submit.RetryError
		svcErr    *jupiter.ServiceError
		rpcErr    *jsonrpc.RPCError
	)
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, context.Canceled):
		return ClassCanceled, "interrupted; check the signature with the tx command before retrying"
	case errors.Is(err, submit.ErrOutcomeUnknown):
		return ClassOutcomeUnknown, "the transaction may have landed; check its signature with the tx command before sending again"
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, amount.ErrInvalidAmount):
		return ClassInput, "check the command arguments; run with --help for usage"
	case errors.Is(err, ErrConfig):
		return ClassConfig, "fix the config file or the SOLANA_* environment overrides"
	case errors.Is(err, wallet.ErrIdentityNotFound), errors.Is(err, actions.ErrNoSigner):
		return ClassIdentity, "set " + wallet.DefaultEnvVar + " or create a key file with solana-keygen new"
	case errors.Is(err, wallet.ErrIdentityCorrupt):
		return ClassIdentity, "the secret must be a 64-byte key pair (base58 in the environment, a JSON byte array on disk)"
	case errors.Is(err, actions.ErrUnsupportedNetwork):
		return ClassUnsupportedNetwork, "airdrops only work on devnet, testnet or localnet; use --cluster devnet with a non-mainnet --url"
	case errors.Is(err, actions.ErrNotAMint):
		return ClassInput, "pass the token mint address, not a wallet or token account"
	case errors.Is(err, actions.ErrAccountNotFound), errors.Is(err, actions.ErrNotFound):
		return ClassNotFound, "check the address and cluster; a fresh transaction may not be indexed yet"
	case errors.Is(err, actions.ErrArtifactMissing):
		return ClassDeploy, "build the program first (cargo build-sbf) and pass the .so path"
	case errors.As(err, &deployErr):
		return ClassDeploy, "see the deploy tool output above; check the payer balance and program id"
	case errors.Is(err, jupiter.ErrQuoteMismatch), errors.As(err, &svcErr):
		return ClassExternal, "the aggregator could not serve this swap; check the mints and amount or retry later"
	case errors.As(err, &retryErr), submit.Classify(err) == submit.Transient:
		return ClassTransient, "the network is congested or the endpoint is rate limited; retry shortly or use a dedicated RPC endpoint"
	case insufficientFunds(err):
		return ClassRejected, "check balance or request funds on the test network"
	case errors.As(err, &execErr), errors.As(err, &rpcErr):
		return ClassRejected, "the network rejected the transaction; inspect it with the tx command"
	}
	return ClassUnknown, "rerun with --log-level debug for details"
}

func insufficientFunds(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range fundsMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	// token program error 1 is InsufficientFunds
	var execErr *submit.ExecutionError
	return errors.As(err, &execErr) && strings.Contains(msg, `"custom":1}`)
}
