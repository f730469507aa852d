package actions

import (
	"context"
	"fmt"
	"sort"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/0toBillions/solana-wingman/internal/amount"
)

// TokenBalance is one SPL token account held by the owner.
type TokenBalance struct {
	Mint      solana.PublicKey
	Account   solana.PublicKey
	BaseUnits uint64
	Decimals  uint8
	Display   string
}

// BalanceReport is the read-only view of an address.
type BalanceReport struct {
	Owner    solana.PublicKey
	Lamports uint64
	SOL      string
	Tokens   []TokenBalance
}

// Balance lists the native balance and every SPL token account of owner. No signature is
// involved.
func (s *Service) Balance(ctx context.Context, owner solana.PublicKey) (*BalanceReport, error) {
	bal, err := s.rpc.GetBalance(ctx, owner, s.commitment())
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	report := &BalanceReport{Owner: owner, Lamports: bal.Value, SOL: amount.FormatSOL(bal.Value)}

	programID := solana.TokenProgramID
	accounts, err := s.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64, Commitment: s.commitment()},
	)
	if err != nil {
		return nil, fmt.Errorf("get token accounts: %w", err)
	}

	decimals := map[solana.PublicKey]uint8{}
	for _, ta := range accounts.Value {
		if ta == nil || ta.Account.Data == nil {
			continue
		}
		var acct token.Account
		if err := bin.NewBinDecoder(ta.Account.Data.GetBinary()).Decode(&acct); err != nil {
			s.opts.Log.Warn().Err(err).Str("account", ta.Pubkey.String()).Msg("skipping undecodable token account")
			continue
		}
		d, ok := decimals[acct.Mint]
		if !ok {
			m, err := s.mintInfo(ctx, acct.Mint)
			if err != nil {
				return nil, fmt.Errorf("token account %s: %w", ta.Pubkey, err)
			}
			d = m.Decimals
			decimals[acct.Mint] = d
		}
		report.Tokens = append(report.Tokens, TokenBalance{
			Mint:      acct.Mint,
			Account:   ta.Pubkey,
			BaseUnits: acct.Amount,
			Decimals:  d,
			Display:   amount.ToDisplay(acct.Amount, d),
		})
	}
	sort.Slice(report.Tokens, func(i, j int) bool {
		if report.Tokens[i].Mint.Equals(report.Tokens[j].Mint) {
			return report.Tokens[i].Account.String() < report.Tokens[j].Account.String()
		}
		return report.Tokens[i].Mint.String() < report.Tokens[j].Mint.String()
	})
	return report, nil
}
