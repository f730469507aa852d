package actions

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/0toBillions/solana-wingman/internal/amount"
)

// TransferResult describes a completed SOL or token transfer.
type TransferResult struct {
	From      solana.PublicKey
	To        solana.PublicKey
	Mint      solana.PublicKey // zero for SOL
	Amount    string
	BaseUnits uint64
	Signature solana.Signature
}

// TransferSOL sends display SOL to recipient in a single system transfer.
func (s *Service) TransferSOL(ctx context.Context, recipient solana.PublicKey, display string) (*TransferResult, error) {
	payer, err := s.signer()
	if err != nil {
		return nil, err
	}
	lamports, err := positiveBaseUnits(display, amount.SOLDecimals)
	if err != nil {
		return nil, err
	}

	shown := amount.FormatSOL(lamports)
	s.advise(s.opts.Limits.TransferWarning(lamports))
	s.summary("Transferring %s SOL from %s to %s on %s", shown, payer.PublicKey(), recipient, s.opts.Cluster)
	sig, err := s.send(ctx, payer, []solana.Instruction{
		system.NewTransferInstruction(lamports, payer.PublicKey(), recipient).Build(),
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	s.record("transfer", sig, map[string]string{"to": recipient.String(), "amount": shown})
	return &TransferResult{From: payer.PublicKey(), To: recipient, Amount: shown, BaseUnits: lamports, Signature: sig}, nil
}

// TransferToken sends display units of mint to recipient's associated account, creating it
// first when missing. Decimals come from the mint account.
func (s *Service) TransferToken(ctx context.Context, mint, recipient solana.PublicKey, display string) (*TransferResult, error) {
	payer, err := s.signer()
	if err != nil {
		return nil, err
	}
	m, err := s.mintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	base, err := positiveBaseUnits(display, m.Decimals)
	if err != nil {
		return nil, err
	}
	source, _, err := solana.FindAssociatedTokenAddress(payer.PublicKey(), mint)
	if err != nil {
		return nil, fmt.Errorf("derive source account: %w", err)
	}
	dest, err := s.ensureTokenAccount(ctx, recipient, mint)
	if err != nil {
		return nil, err
	}

	shown := amount.ToDisplay(base, m.Decimals)
	s.summary("Transferring %s of %s from %s to %s", shown, mint, source, dest.Account)
	sig, err := s.send(ctx, payer, []solana.Instruction{
		token.NewTransferCheckedInstruction(base, m.Decimals, source, mint, dest.Account, payer.PublicKey(), nil).Build(),
	})
	if err != nil {
		return nil, fmt.Errorf("transfer token: %w", err)
	}
	s.record("transfer-token", sig, map[string]string{"mint": mint.String(), "to": recipient.String(), "amount": shown})
	return &TransferResult{From: payer.PublicKey(), To: recipient, Mint: mint, Amount: shown, BaseUnits: base, Signature: sig}, nil
}
