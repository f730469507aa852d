// Package actions composes identity, connection, amount codec and the submit protocol into
// one orchestrator per command.
package actions

import (
	"context"
	"fmt"
	"io"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/0toBillions/solana-wingman/internal/dex/jupiter"
	"github.com/0toBillions/solana-wingman/internal/journal"
	"github.com/0toBillions/solana-wingman/internal/risk"
	"github.com/0toBillions/solana-wingman/internal/submit"
	"github.com/0toBillions/solana-wingman/internal/wallet"
)

// RPC lists every node call the orchestrators make; *rpc.Client satisfies it.
type RPC interface {
	submit.Client
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error)
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// Swapper is the aggregator surface used by Swap; *jupiter.Client satisfies it.
type Swapper interface {
	GetQuote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.Quote, error)
	BuildSwap(ctx context.Context, req jupiter.QuoteRequest, quote *jupiter.Quote, user solana.PublicKey) (*jupiter.SwapTransaction, error)
}

// Options carries everything besides the RPC client and submitter.
type Options struct {
	Cluster     string
	RPCURL      string
	Signer      *wallet.Identity
	Limits      risk.Limits
	Journal     journal.Recorder
	Swapper     Swapper
	SlippageBps int
	DeployTool  string
	KeypairPath string
	Out         io.Writer
	ErrOut      io.Writer
	Log         zerolog.Logger
}

type Service struct {
	rpc       RPC
	submitter *submit.Submitter
	opts      Options
}

func NewService(client RPC, submitter *submit.Submitter, opts Options) *Service {
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.ErrOut == nil {
		opts.ErrOut = io.Discard
	}
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = jupiter.DefaultSlippageBps
	}
	if opts.DeployTool == "" {
		opts.DeployTool = "solana"
	}
	return &Service{rpc: client, submitter: submitter, opts: opts}
}

func (s *Service) commitment() rpc.CommitmentType { return s.submitter.Commitment() }

func (s *Service) signer() (*wallet.Identity, error) {
	if s.opts.Signer == nil {
		return nil, ErrNoSigner
	}
	return s.opts.Signer, nil
}

// summary prints the pre-submission line for the user.
func (s *Service) summary(format string, args ...any) {
	fmt.Fprintf(s.opts.Out, format+"\n", args...)
}

// advise surfaces an advisory warning without blocking the action.
func (s *Service) advise(msg string) {
	if msg == "" {
		return
	}
	s.opts.Log.Warn().Msg(msg)
	fmt.Fprintf(s.opts.Out, "warning: %s\n", msg)
}

func (s *Service) record(action string, sig solana.Signature, details map[string]string) {
	receipt := journal.Receipt{Action: action, Cluster: s.opts.Cluster, Details: details}
	if s.opts.Signer != nil {
		receipt.Signer = s.opts.Signer.PublicKey().String()
	}
	if !sig.IsZero() {
		receipt.Signature = sig.String()
	}
	if err := s.opts.Journal.Record(receipt); err != nil {
		s.opts.Log.Warn().Err(err).Str("action", action).Msg("journal write failed")
	}
}

// send submits instructions paid for and signed by the identity plus extra signers.
func (s *Service) send(ctx context.Context, payer *wallet.Identity, instructions []solana.Instruction, extra ...solana.PrivateKey) (solana.Signature, error) {
	signers := append([]solana.PrivateKey{payer.Key()}, extra...)
	return s.submitter.SubmitWithRetry(ctx, func(ctx context.Context) (*solana.Transaction, []solana.PrivateKey, error) {
		tx, err := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(payer.PublicKey()))
		return tx, signers, err
	})
}
