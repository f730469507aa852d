package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/0toBillions/solana-wingman/internal/amount"
	"github.com/0toBillions/solana-wingman/internal/dex/jupiter"
)

var hundred = decimal.NewFromInt(100)

// SwapRequest is one aggregator swap. Amount is a display amount of InputMint.
type SwapRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      string
	SlippageBps int
}

// SwapResult describes a confirmed swap.
type SwapResult struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	InAmount    string
	OutAmount   string
	PriceImpact string
	Route       []string
	Signature   solana.Signature
}

// Swap quotes and then builds the transaction for exactly that quote, signs it and submits
// it. A retried attempt quotes the identical request again and rebuilds; every attempt
// stamps a fresh blockhash.
func (s *Service) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	payer, err := s.signer()
	if err != nil {
		return nil, err
	}
	if s.opts.Swapper == nil {
		return nil, errors.New("no swap aggregator configured")
	}
	if req.InputMint.Equals(req.OutputMint) {
		return nil, fmt.Errorf("input and output mint are both %s", req.InputMint)
	}
	in, err := s.mintInfo(ctx, req.InputMint)
	if err != nil {
		return nil, fmt.Errorf("input mint: %w", err)
	}
	base, err := positiveBaseUnits(req.Amount, in.Decimals)
	if err != nil {
		return nil, err
	}
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = s.opts.SlippageBps
	}
	quoteReq := jupiter.QuoteRequest{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      base,
		SlippageBps: slippage,
	}

	quote, err := s.opts.Swapper.GetQuote(ctx, quoteReq)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	impact, err := quote.PriceImpact()
	if err != nil {
		return nil, fmt.Errorf("quote price impact %q: %w", quote.PriceImpactPct, err)
	}
	s.advise(s.opts.Limits.PriceImpactWarning(impact))

	inShown := amount.ToDisplay(base, in.Decimals)
	route := quote.Route()
	s.summary("Swapping %s %s for ~%s %s (slippage %d bps, impact %s%%, route %s)",
		inShown, req.InputMint, s.outputDisplay(ctx, req.OutputMint, quote), req.OutputMint, slippage,
		impact.Mul(hundred).StringFixed(4), strings.Join(route, " -> "))

	swapTx, err := s.opts.Swapper.BuildSwap(ctx, quoteReq, quote, payer.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("build swap: %w", err)
	}
	signers := []solana.PrivateKey{payer.Key()}
	attempt := 0
	sig, err := s.submitter.SubmitWithRetry(ctx, func(ctx context.Context) (*solana.Transaction, []solana.PrivateKey, error) {
		attempt++
		if attempt > 1 {
			// a quote realizes one build only; retries quote the identical request again
			fresh, err := s.opts.Swapper.GetQuote(ctx, quoteReq)
			if err != nil {
				return nil, nil, fmt.Errorf("re-quote: %w", err)
			}
			if impact, err := fresh.PriceImpact(); err == nil {
				s.advise(s.opts.Limits.PriceImpactWarning(impact))
			}
			rebuilt, err := s.opts.Swapper.BuildSwap(ctx, quoteReq, fresh, payer.PublicKey())
			if err != nil {
				return nil, nil, fmt.Errorf("rebuild swap: %w", err)
			}
			quote, swapTx = fresh, rebuilt
			s.opts.Log.Info().Int("attempt", attempt).Str("out_amount", fresh.OutAmount).Msg("swap re-quoted")
		}
		tx, err := swapTx.Decode()
		return tx, signers, err
	})
	if err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}
	outShown := s.outputDisplay(ctx, req.OutputMint, quote)
	if impact, err = quote.PriceImpact(); err != nil {
		impact = decimal.Zero
	}
	route = quote.Route()
	s.record("swap", sig, map[string]string{
		"input_mint": req.InputMint.String(), "output_mint": req.OutputMint.String(),
		"in_amount": inShown, "out_amount": outShown,
	})
	return &SwapResult{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		InAmount:    inShown,
		OutAmount:   outShown,
		PriceImpact: impact.String(),
		Route:       route,
		Signature:   sig,
	}, nil
}

// outputDisplay renders the quoted output in output-mint units, falling back to raw base
// units when the mint cannot be read.
func (s *Service) outputDisplay(ctx context.Context, mint solana.PublicKey, quote *jupiter.Quote) string {
	out, err := s.mintInfo(ctx, mint)
	if err != nil {
		return quote.OutAmount
	}
	base, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return quote.OutAmount
	}
	return amount.ToDisplay(base, out.Decimals)
}
