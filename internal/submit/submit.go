// Package submit signs, sends and confirms transactions, retrying only transient failures.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/0toBillions/solana-wingman/internal/metrics"
)

// Client is the slice of the RPC surface the protocol needs; *rpc.Client satisfies it.
type Client interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Config tunes confirmation and retry behavior.
type Config struct {
	Commitment    rpc.CommitmentType
	MaxAttempts   int
	RetryDelay    time.Duration
	PollInterval  time.Duration
	SkipPreflight bool
}

const (
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = 1500 * time.Millisecond
	DefaultPollInterval = 500 * time.Millisecond

	// consecutive status/height lookups that may fail before confirmation gives up
	maxPollFailures = 5
)

// BuildFunc produces a transaction and its signers. It runs once per attempt.
type BuildFunc func(ctx context.Context) (*solana.Transaction, []solana.PrivateKey, error)

// Submitter drives Built -> Signed -> Submitted -> {Confirmed, Failed, Expired}.
type Submitter struct {
	client Client
	cfg    Config
	log    zerolog.Logger
}

// New fills zero config fields with defaults.
func New(client Client, log zerolog.Logger, cfg Config) *Submitter {
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Submitter{client: client, cfg: cfg, log: log}
}

// Commitment is the level transactions are confirmed at.
func (s *Submitter) Commitment() rpc.CommitmentType { return s.cfg.Commitment }

// SubmitAndConfirm stamps a fresh blockhash, signs, sends and waits for the configured
// commitment. Fees may be charged once the send succeeds, even if execution fails.
func (s *Submitter) SubmitAndConfirm(ctx context.Context, tx *solana.Transaction, signers []solana.PrivateKey) (solana.Signature, error) {
	sig, _, err := s.submitOnce(ctx, tx, signers, nil)
	return sig, err
}

func (s *Submitter) submitOnce(ctx context.Context, tx *solana.Transaction, signers []solana.PrivateKey, stale *solana.Hash) (solana.Signature, solana.Hash, error) {
	anchor, err := s.client.GetLatestBlockhash(ctx, s.cfg.Commitment)
	if err != nil {
		return solana.Signature{}, solana.Hash{}, fmt.Errorf("fetch blockhash: %w", err)
	}
	if anchor == nil || anchor.Value == nil {
		return solana.Signature{}, solana.Hash{}, errors.New("fetch blockhash: empty response")
	}
	blockhash := anchor.Value.Blockhash
	if stale != nil && blockhash.Equals(*stale) {
		return solana.Signature{}, blockhash, ErrStaleBlockhash
	}

	tx.Message.RecentBlockhash = blockhash
	if err := sign(tx, signers); err != nil {
		return solana.Signature{}, blockhash, fmt.Errorf("sign transaction: %w", err)
	}
	sig := tx.Signatures[0]

	s.log.Debug().Str("signature", sig.String()).Str("blockhash", blockhash.String()).
		Uint64("last_valid_block_height", anchor.Value.LastValidBlockHeight).Msg("sending transaction")
	_, err = s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       s.cfg.SkipPreflight,
		PreflightCommitment: s.cfg.Commitment,
	})
	if err != nil {
		metrics.SubmitAttemptsTotal.WithLabelValues("send_error").Inc()
		return sig, blockhash, fmt.Errorf("send transaction: %w", err)
	}

	err = s.AwaitConfirmation(ctx, sig, anchor.Value.LastValidBlockHeight)
	switch {
	case err == nil:
		metrics.SubmitAttemptsTotal.WithLabelValues("confirmed").Inc()
	case errors.Is(err, ErrExpired):
		metrics.SubmitAttemptsTotal.WithLabelValues("expired").Inc()
	default:
		metrics.SubmitAttemptsTotal.WithLabelValues("failed").Inc()
	}
	return sig, blockhash, err
}

// AwaitConfirmation polls until sig reaches the configured commitment, fails on chain, or the
// block height passes lastValidBlockHeight. ErrExpired is only returned once a history
// lookup shows the signature absent; when the node cannot answer, the result is an
// *UnknownOutcomeError and the transaction must not be resent blindly.
func (s *Submitter) AwaitConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	start := time.Now()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var statusFailures, heightFailures int
	for {
		status, err := s.lookupStatus(ctx, sig, false)
		if err != nil {
			statusFailures++
			s.log.Warn().Err(err).Str("signature", sig.String()).Int("failures", statusFailures).Msg("status lookup failed")
			if statusFailures >= maxPollFailures {
				return &UnknownOutcomeError{Signature: sig, Err: err}
			}
		} else {
			statusFailures = 0
			if done, err := s.settled(sig, status); done {
				if err == nil {
					metrics.ConfirmSeconds.Observe(time.Since(start).Seconds())
				}
				return err
			}
		}

		height, herr := s.client.GetBlockHeight(ctx, s.cfg.Commitment)
		switch {
		case herr != nil:
			heightFailures++
			s.log.Warn().Err(herr).Str("signature", sig.String()).Msg("block height lookup failed")
			if heightFailures >= maxPollFailures {
				return &UnknownOutcomeError{Signature: sig, Err: herr}
			}
		case height > lastValidBlockHeight && status == nil:
			heightFailures = 0
			landed, err := s.finalCheck(ctx, sig)
			if err != nil {
				return err
			}
			if !landed {
				return fmt.Errorf("%w: %s (block height %d > last valid %d)", ErrExpired, sig, height, lastValidBlockHeight)
			}
			// landed in time, keep polling for the requested commitment
		default:
			heightFailures = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// finalCheck searches the node's transaction history for sig once the anchor expired. It
// reports whether the signature landed; a lookup that keeps failing yields an
// *UnknownOutcomeError, or a terminal result when the status carries one.
func (s *Submitter) finalCheck(ctx context.Context, sig solana.Signature) (bool, error) {
	var last error
	for i := 0; i < maxPollFailures; i++ {
		status, err := s.lookupStatus(ctx, sig, true)
		if err == nil {
			if status == nil {
				return false, nil
			}
			if done, err := s.settled(sig, status); done {
				return true, err
			}
			return true, nil
		}
		last = err
		s.log.Warn().Err(err).Str("signature", sig.String()).Msg("history lookup after expiry failed")
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
	return false, &UnknownOutcomeError{Signature: sig, Err: last}
}

// lookupStatus returns the status of sig, or nil when the node does not know it.
func (s *Submitter) lookupStatus(ctx context.Context, sig solana.Signature, searchHistory bool) (*rpc.SignatureStatusesResult, error) {
	res, err := s.client.GetSignatureStatuses(ctx, searchHistory, sig)
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

// settled reports whether status is terminal: failed on chain or at the wanted commitment.
func (s *Submitter) settled(sig solana.Signature, status *rpc.SignatureStatusesResult) (bool, error) {
	if status == nil {
		return false, nil
	}
	if status.Err != nil {
		return true, &ExecutionError{Signature: sig, Payload: status.Err}
	}
	return reached(status.ConfirmationStatus, s.cfg.Commitment), nil
}

// SubmitWithRetry rebuilds, re-signs and resubmits on transient failures, at most
// MaxAttempts times in total. Deterministic failures return immediately.
func (s *Submitter) SubmitWithRetry(ctx context.Context, build BuildFunc) (solana.Signature, error) {
	var (
		sig      solana.Signature
		attempts int
		stale    *solana.Hash
	)
	operation := func() error {
		attempts++
		if attempts > 1 {
			metrics.SubmitRetriesTotal.Inc()
		}
		tx, signers, err := build(ctx)
		if err != nil {
			err = fmt.Errorf("build transaction: %w", err)
		} else {
			var blockhash solana.Hash
			sig, blockhash, err = s.submitOnce(ctx, tx, signers, stale)
			if errors.Is(err, ErrExpired) {
				stale = &blockhash
			}
		}
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || Classify(err) == Deterministic {
			return backoff.Permanent(err)
		}
		s.log.Warn().Err(err).Int("attempt", attempts).Int("max_attempts", s.cfg.MaxAttempts).Msg("transient submit failure")
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(s.pause(), uint64(s.cfg.MaxAttempts-1)), ctx))
	if err == nil {
		return sig, nil
	}
	if ctx.Err() == nil && Classify(err) == Transient {
		return sig, &RetryError{Attempts: attempts, Last: err}
	}
	return sig, err
}

// pause spreads waits between RetryDelay*2/3 and RetryDelay*4/3, 1s..2s with the default.
func (s *Submitter) pause() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryDelay
	b.MaxInterval = s.cfg.RetryDelay * 2
	b.RandomizationFactor = 1.0 / 3
	b.Multiplier = 1
	b.MaxElapsedTime = 0
	return b
}

func sign(tx *solana.Transaction, signers []solana.PrivateKey) error {
	tx.Signatures = nil
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(tx.Signatures) == 0 {
		return errors.New("transaction has no signers")
	}
	return nil
}

var commitmentRank = map[string]int{
	string(rpc.CommitmentProcessed): 1,
	string(rpc.CommitmentConfirmed): 2,
	string(rpc.CommitmentFinalized): 3,
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	got := commitmentRank[string(status)]
	return got > 0 && got >= commitmentRank[string(want)]
}
