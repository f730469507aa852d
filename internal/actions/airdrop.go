package actions

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"github.com/0toBillions/solana-wingman/internal/amount"
	"github.com/0toBillions/solana-wingman/internal/conn"
)

// AirdropResult describes a confirmed faucet request.
type AirdropResult struct {
	Recipient solana.PublicKey
	Amount    string
	Signature solana.Signature
}

// Airdrop requests test funds for the signer. Mainnet is rejected before any RPC call.
func (s *Service) Airdrop(ctx context.Context, display string) (*AirdropResult, error) {
	if s.opts.Cluster == conn.Mainnet {
		return nil, fmt.Errorf("%w: airdrops are only available on devnet, testnet or localnet, not %s", ErrUnsupportedNetwork, s.opts.Cluster)
	}
	signer, err := s.signer()
	if err != nil {
		return nil, err
	}
	lamports, err := positiveBaseUnits(display, amount.SOLDecimals)
	if err != nil {
		return nil, err
	}

	shown := amount.FormatSOL(lamports)
	s.summary("Requesting %s SOL airdrop to %s on %s", shown, signer.PublicKey(), s.opts.Cluster)
	sig, err := s.rpc.RequestAirdrop(ctx, signer.PublicKey(), lamports, s.commitment())
	if err != nil {
		return nil, fmt.Errorf("request airdrop: %w", err)
	}
	// the faucet stamped its transaction before this lookup, so this bound is never early
	anchor, err := s.rpc.GetLatestBlockhash(ctx, s.commitment())
	if err != nil {
		return nil, fmt.Errorf("airdrop %s: fetch blockhash: %w", sig, err)
	}
	if anchor == nil || anchor.Value == nil {
		return nil, fmt.Errorf("airdrop %s: fetch blockhash: empty response", sig)
	}
	if err := s.submitter.AwaitConfirmation(ctx, sig, anchor.Value.LastValidBlockHeight); err != nil {
		return nil, fmt.Errorf("airdrop %s: %w", sig, err)
	}
	s.record("airdrop", sig, map[string]string{"amount": shown})
	return &AirdropResult{Recipient: signer.PublicKey(), Amount: shown, Signature: sig}, nil
}
