package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	mu sync.Mutex

	nextHash   func(call int) solana.Hash
	lastValid  uint64
	height     uint64
	sendErr    func(call int) error
	status     func(sig solana.Signature) *rpc.SignatureStatusesResult
	statusErr  func(search bool) error
	heightErr  error
	searches   []bool
	hashCalls  int
	sendCalls  int
	sentBytes  [][]byte
	sentHashes []solana.Hash
}

func (f *fakeNode) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashCalls++
	h := solana.Hash{0xAA}
	if f.nextHash != nil {
		h = f.nextHash(f.hashCalls)
	}
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: h, LastValidBlockHeight: f.lastValid}}, nil
}

func (f *fakeNode) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heightErr != nil {
		return 0, f.heightErr
	}
	return f.height, nil
}

func (f *fakeNode) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		if err := f.sendErr(f.sendCalls); err != nil {
			return solana.Signature{}, err
		}
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, err
	}
	f.sentBytes = append(f.sentBytes, raw)
	f.sentHashes = append(f.sentHashes, tx.Message.RecentBlockhash)
	return tx.Signatures[0], nil
}

func (f *fakeNode) GetSignatureStatuses(ctx context.Context, search bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, search)
	if f.statusErr != nil {
		if err := f.statusErr(search); err != nil {
			return nil, err
		}
	}
	var st *rpc.SignatureStatusesResult
	if f.status != nil {
		st = f.status(sigs[0])
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{st}}, nil
}

func confirmed(solana.Signature) *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{Slot: 10, ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
}

func newSubmitter(node *fakeNode) *Submitter {
	return New(node, zerolog.Nop(), Config{
		Commitment:   rpc.CommitmentConfirmed,
		MaxAttempts:  3,
		RetryDelay:   0,
		PollInterval: time.Millisecond,
	})
}

func transferBuilder(t *testing.T, payer solana.PrivateKey, calls *int) BuildFunc {
	t.Helper()
	to := solana.NewWallet().PublicKey()
	return func(ctx context.Context) (*solana.Transaction, []solana.PrivateKey, error) {
		*calls++
		tx, err := solana.NewTransaction(
			[]solana.Instruction{system.NewTransferInstruction(1000, payer.PublicKey(), to).Build()},
			solana.Hash{},
			solana.TransactionPayer(payer.PublicKey()),
		)
		return tx, []solana.PrivateKey{payer}, err
	}
}

func TestSubmitAndConfirmStampsFreshBlockhashAndSigns(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	node := &fakeNode{lastValid: 100, height: 50, status: confirmed, nextHash: func(int) solana.Hash { return solana.Hash{7} }}
	calls := 0
	tx, signers, err := transferBuilder(t, payer, &calls)(context.Background())
	require.NoError(t, err)

	sig, err := newSubmitter(node).SubmitAndConfirm(context.Background(), tx, signers)
	require.NoError(t, err)
	require.Equal(t, tx.Signatures[0], sig)
	require.Equal(t, solana.Hash{7}, tx.Message.RecentBlockhash)
	require.Equal(t, 1, node.sendCalls)
	require.NoError(t, tx.VerifySignatures())
}

func TestSubmitAndConfirmMissingSigner(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	node := &fakeNode{lastValid: 100, status: confirmed}
	calls := 0
	tx, _, err := transferBuilder(t, payer, &calls)(context.Background())
	require.NoError(t, err)

	_, err = newSubmitter(node).SubmitAndConfirm(context.Background(), tx, []solana.PrivateKey{solana.NewWallet().PrivateKey})
	require.Error(t, err)
	require.Equal(t, 0, node.sendCalls)
	require.Equal(t, Deterministic, Classify(err))
}

func TestAwaitConfirmationExpiredAnchorDoesNotWait(t *testing.T) {
	node := &fakeNode{lastValid: 100, height: 151}
	done := make(chan error, 1)
	go func() {
		done <- newSubmitter(node).AwaitConfirmation(context.Background(), solana.Signature{1}, 100)
	}()
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrExpired)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation waited past the validity window")
	}
}

func TestAwaitConfirmationWaitsForRequestedCommitment(t *testing.T) {
	polls := 0
	node := &fakeNode{lastValid: 100, height: 10, status: func(solana.Signature) *rpc.SignatureStatusesResult {
		polls++
		if polls < 3 {
			return &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
		}
		return &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusFinalized}
	}}
	s := New(node, zerolog.Nop(), Config{Commitment: rpc.CommitmentFinalized, PollInterval: time.Millisecond})
	require.NoError(t, s.AwaitConfirmation(context.Background(), solana.Signature{2}, 100))
	require.Equal(t, 3, polls)
}

func TestSubmitWithRetryExecutionFailureNotRetried(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	payload := map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 1}}}
	node := &fakeNode{lastValid: 100, height: 1, status: func(solana.Signature) *rpc.SignatureStatusesResult {
		return &rpc.SignatureStatusesResult{Err: payload, ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
	}}
	calls := 0

	_, err := newSubmitter(node).SubmitWithRetry(context.Background(), transferBuilder(t, payer, &calls))
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, payload, execErr.Payload)
	require.Contains(t, err.Error(), "InstructionError")
	require.Equal(t, 1, calls)
	require.Equal(t, 1, node.sendCalls)
}

func TestSubmitWithRetryDeterministicSendErrorNotRetried(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	node := &fakeNode{lastValid: 100, sendErr: func(int) error {
		return &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit."}
	}}
	calls := 0

	_, err := newSubmitter(node).SubmitWithRetry(context.Background(), transferBuilder(t, payer, &calls))
	require.Error(t, err)
	var retryErr *RetryError
	require.False(t, errors.As(err, &retryErr))
	require.Equal(t, 1, calls)
}

func TestSubmitWithRetryExpiryRebuildsWithFreshAnchor(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	node := &fakeNode{
		lastValid: 100,
		height:    101,
		nextHash:  func(call int) solana.Hash { return solana.Hash{byte(call)} },
	}
	calls := 0

	_, err := newSubmitter(node).SubmitWithRetry(context.Background(), transferBuilder(t, payer, &calls))
	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	require.Equal(t, 3, retryErr.Attempts)
	require.ErrorIs(t, err, ErrExpired)
	require.Equal(t, 3, calls)
	require.Equal(t, 3, node.hashCalls)
	require.Len(t, node.sentBytes, 3)

	seen := map[string]bool{}
	for i, raw := range node.sentBytes {
		require.False(t, seen[string(raw)], "attempt %d resent identical bytes", i+1)
		seen[string(raw)] = true
	}
	require.NotEqual(t, node.sentHashes[0], node.sentHashes[1])
	require.NotEqual(t, node.sentHashes[1], node.sentHashes[2])
}

func TestSubmitWithRetryRefusesExpiredBlockhash(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	node := &fakeNode{lastValid: 100, height: 101}
	calls := 0

	_, err := newSubmitter(node).SubmitWithRetry(context.Background(), transferBuilder(t, payer, &calls))
	require.Error(t, err)
	require.Equal(t, 1, node.sendCalls, "expired bytes must not be sent again")
	require.ErrorIs(t, err, ErrStaleBlockhash)
}

func TestSubmitWithRetryRecoversFromRateLimit(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	node := &fakeNode{lastValid: 100, height: 1, status: confirmed, sendErr: func(call int) error {
		if call == 1 {
			return errors.New("rpc call sendTransaction(): 429 Too Many Requests")
		}
		return nil
	}}
	calls := 0

	sig, err := newSubmitter(node).SubmitWithRetry(context.Background(), transferBuilder(t, payer, &calls))
	require.NoError(t, err)
	require.False(t, sig.IsZero())
	require.Equal(t, 2, calls)
	require.Equal(t, 2, node.hashCalls)
}

func TestSubmitWithRetryAtMostThreeAttempts(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	node := &fakeNode{lastValid: 100, sendErr: func(int) error {
		return fmt.Errorf("post: %w", context.DeadlineExceeded)
	}}
	calls := 0
	s := New(node, zerolog.Nop(), Config{MaxAttempts: 3, PollInterval: time.Millisecond})

	_, err := s.SubmitWithRetry(context.Background(), transferBuilder(t, payer, &calls))
	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	require.Equal(t, 3, retryErr.Attempts)
	require.Equal(t, 3, node.sendCalls)
}

func TestClassify(t *testing.T) {
	transient := []error{
		ErrExpired,
		fmt.Errorf("wrap: %w", ErrExpired),
		ErrStaleBlockhash,
		errors.New("Transaction simulation failed: Blockhash not found"),
		errors.New("429 Too Many Requests"),
		&jsonrpc.RPCError{Code: -32005, Message: "Node is behind by 42 slots"},
		context.DeadlineExceeded,
	}
	for _, err := range transient {
		require.Equal(t, Transient, Classify(err), err.Error())
	}
	deterministic := []error{
		&ExecutionError{Payload: "InsufficientFundsForRent"},
		errors.New("Transaction simulation failed: Attempt to debit an account but found no record of a prior credit."),
		errors.New("custom program error: 0x4"),
		errors.New("invalid account data for instruction"),
		context.Canceled,
		&UnknownOutcomeError{Err: errors.New("429 Too Many Requests")},
	}
	for _, err := range deterministic {
		require.Equal(t, Deterministic, Classify(err), err.Error())
	}
}

func rateLimited(bool) error {
	return &jsonrpc.RPCError{Code: 429, Message: "Too Many Requests"}
}

func TestSubmitWithRetryStatusOutageIsNotExpiry(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	node := &fakeNode{
		lastValid: 100,
		height:    101,
		statusErr: rateLimited,
		nextHash:  func(call int) solana.Hash { return solana.Hash{byte(call)} },
	}
	calls := 0

	_, err := newSubmitter(node).SubmitWithRetry(context.Background(), transferBuilder(t, payer, &calls))
	require.ErrorIs(t, err, ErrOutcomeUnknown)
	require.NotErrorIs(t, err, ErrExpired)
	require.Equal(t, Deterministic, Classify(err))
	require.Equal(t, 1, node.sendCalls, "an unknown outcome must not be resent")

	var unknown *UnknownOutcomeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, node.sentBytes[0][1:65], unknown.Signature[:])
}

func TestAwaitConfirmationExpiryRequiresHistoryLookup(t *testing.T) {
	// recent-status lookups fail, the history search answers: the signature is absent
	node := &fakeNode{
		lastValid: 100,
		height:    101,
		statusErr: func(search bool) error {
			if search {
				return nil
			}
			return errors.New("status code: 429")
		},
	}
	err := newSubmitter(node).AwaitConfirmation(context.Background(), solana.Signature{3}, 100)
	require.ErrorIs(t, err, ErrExpired)
	require.Contains(t, node.searches, true)
}

func TestAwaitConfirmationLandedBeforeExpiryIsNotResent(t *testing.T) {
	// the recent-status cache missed it, history shows it confirmed
	node := &fakeNode{
		lastValid: 100,
		height:    101,
		status: func(solana.Signature) *rpc.SignatureStatusesResult {
			return nil
		},
	}
	node.statusErr = func(search bool) error {
		if search {
			node.status = confirmed
		}
		return nil
	}
	err := newSubmitter(node).AwaitConfirmation(context.Background(), solana.Signature{4}, 100)
	require.NoError(t, err)
}

func TestAwaitConfirmationHeightOutageIsUnknown(t *testing.T) {
	node := &fakeNode{lastValid: 100, heightErr: &jsonrpc.RPCError{Code: 429, Message: "Too Many Requests"}}
	err := newSubmitter(node).AwaitConfirmation(context.Background(), solana.Signature{5}, 100)
	require.ErrorIs(t, err, ErrOutcomeUnknown)
	require.Equal(t, Deterministic, Classify(err))
}
