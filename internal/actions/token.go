package actions

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/0toBillions/solana-wingman/internal/amount"
)

// mintAccountSize is the byte length of an SPL token mint account.
const mintAccountSize = 82

// MintResult describes a freshly created mint.
type MintResult struct {
	Mint      solana.PublicKey
	Decimals  uint8
	Signature solana.Signature
}

// TokenAccountResult describes an associated token account; Signature is zero when the
// account already existed and nothing was sent.
type TokenAccountResult struct {
	Owner     solana.PublicKey
	Mint      solana.PublicKey
	Account   solana.PublicKey
	Created   bool
	Signature solana.Signature
}

// MintToResult describes a mint-to.
type MintToResult struct {
	Mint        solana.PublicKey
	Destination solana.PublicKey
	Amount      string
	BaseUnits   uint64
	Signature   solana.Signature
}

func (s *Service) accountInfo(ctx context.Context, account solana.PublicKey) (*rpc.Account, error) {
	res, err := s.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: s.commitment(),
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (res == nil || res.Value == nil)) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", account, err)
	}
	return res.Value, nil
}

// mintInfo reads the mint's on-chain state; decimals are never assumed.
func (s *Service) mintInfo(ctx context.Context, mint solana.PublicKey) (*token.Mint, error) {
	acct, err := s.accountInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrNotAMint, mint, acct.Owner)
	}
	data := acct.Data.GetBinary()
	if len(data) < mintAccountSize {
		return nil, fmt.Errorf("%w: %s has %d bytes of data", ErrNotAMint, mint, len(data))
	}
	var m token.Mint
	if err := bin.NewBinDecoder(data).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode mint %s: %w", mint, err)
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("%w: %s is not initialized", ErrNotAMint, mint)
	}
	return &m, nil
}

// ensureTokenAccount returns owner's associated account for mint, creating it in its own
// submit cycle when it does not exist yet.
func (s *Service) ensureTokenAccount(ctx context.Context, owner, mint solana.PublicKey) (*TokenAccountResult, error) {
	payer, err := s.signer()
	if err != nil {
		return nil, err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated account: %w", err)
	}
	out := &TokenAccountResult{Owner: owner, Mint: mint, Account: ata}

	_, err = s.accountInfo(ctx, ata)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	s.summary("Creating token account %s for owner %s (mint %s)", ata, owner, mint)
	sig, err := s.send(ctx, payer, []solana.Instruction{
		associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), owner, mint).Build(),
	})
	if err != nil {
		return nil, fmt.Errorf("create token account: %w", err)
	}
	out.Created = true
	out.Signature = sig
	s.record("create-account", sig, map[string]string{"mint": mint.String(), "owner": owner.String(), "account": ata.String()})
	return out, nil
}

// CreateMint creates a new SPL mint with the signer as mint and freeze authority.
func (s *Service) CreateMint(ctx context.Context, decimals uint8) (*MintResult, error) {
	payer, err := s.signer()
	if err != nil {
		return nil, err
	}
	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate mint key: %w", err)
	}
	mint := mintKey.PublicKey()

	rent, err := s.rpc.GetMinimumBalanceForRentExemption(ctx, mintAccountSize, s.commitment())
	if err != nil {
		return nil, fmt.Errorf("rent exemption: %w", err)
	}

	s.summary("Creating mint %s with %d decimals (authority %s, rent %s SOL)", mint, decimals, payer.PublicKey(), amount.FormatSOL(rent))
	sig, err := s.send(ctx, payer, []solana.Instruction{
		system.NewCreateAccountInstruction(rent, mintAccountSize, solana.TokenProgramID, payer.PublicKey(), mint).Build(),
		token.NewInitializeMintInstruction(decimals, payer.PublicKey(), payer.PublicKey(), mint, solana.SysVarRentPubkey).Build(),
	}, mintKey)
	if err != nil {
		return nil, fmt.Errorf("create mint: %w", err)
	}
	s.record("create-mint", sig, map[string]string{"mint": mint.String(), "decimals": fmt.Sprint(decimals)})
	return &MintResult{Mint: mint, Decimals: decimals, Signature: sig}, nil
}

// CreateTokenAccount derives owner's associated account for mint and creates it if absent.
func (s *Service) CreateTokenAccount(ctx context.Context, mint, owner solana.PublicKey) (*TokenAccountResult, error) {
	if _, err := s.mintInfo(ctx, mint); err != nil {
		return nil, err
	}
	return s.ensureTokenAccount(ctx, owner, mint)
}

// MintTo mints display units of mint into recipient's associated account. The signer must
// be the mint authority; a mismatch is rejected by the token program.
func (s *Service) MintTo(ctx context.Context, mint solana.PublicKey, display string, recipient solana.PublicKey) (*MintToResult, error) {
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
	dest, err := s.ensureTokenAccount(ctx, recipient, mint)
	if err != nil {
		return nil, err
	}

	shown := amount.ToDisplay(base, m.Decimals)
	s.summary("Minting %s of %s to %s", shown, mint, dest.Account)
	sig, err := s.send(ctx, payer, []solana.Instruction{
		token.NewMintToInstruction(base, mint, dest.Account, payer.PublicKey(), nil).Build(),
	})
	if err != nil {
		return nil, fmt.Errorf("mint to: %w", err)
	}
	s.record("mint-to", sig, map[string]string{"mint": mint.String(), "destination": dest.Account.String(), "amount": shown})
	return &MintToResult{Mint: mint, Destination: dest.Account, Amount: shown, BaseUnits: base, Signature: sig}, nil
}

func positiveBaseUnits(display string, decimals uint8) (uint64, error) {
	base, err := amount.ToBaseUnits(display, decimals)
	if err != nil {
		return 0, err
	}
	if base == 0 {
		return 0, fmt.Errorf("%w: %q is zero at %d decimals", amount.ErrInvalidAmount, display, decimals)
	}
	return base, nil
}
