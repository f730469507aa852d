package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionInfo is the decoded view of a landed transaction.
type TransactionInfo struct {
	Signature    solana.Signature
	Slot         uint64
	BlockTime    *time.Time
	Fee          uint64
	Err          any
	Signers      []solana.PublicKey
	Instructions int
	Logs         []string
}

// Succeeded reports whether the transaction executed without error.
func (t *TransactionInfo) Succeeded() bool { return t.Err == nil }

// FetchTransaction decodes a submitted transaction. ErrNotFound means the node has not
// indexed it (yet); retrying later is safe.
func (s *Service) FetchTransaction(ctx context.Context, sig solana.Signature) (*TransactionInfo, error) {
	commitment := s.commitment()
	if commitment == rpc.CommitmentProcessed {
		// getTransaction does not serve processed data
		commitment = rpc.CommitmentConfirmed
	}
	maxVersion := uint64(0)
	res, err := s.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (res == nil || res.Transaction == nil)) {
		return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, sig)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	info := &TransactionInfo{Signature: sig, Slot: res.Slot}
	if res.BlockTime != nil {
		t := time.Unix(int64(*res.BlockTime), 0).UTC()
		info.BlockTime = &t
	}
	if res.Meta != nil {
		info.Fee = res.Meta.Fee
		info.Err = res.Meta.Err
		info.Logs = res.Meta.LogMessages
	}
	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", sig, err)
	}
	n := int(tx.Message.Header.NumRequiredSignatures)
	if n > len(tx.Message.AccountKeys) {
		n = len(tx.Message.AccountKeys)
	}
	info.Signers = append(info.Signers, tx.Message.AccountKeys[:n]...)
	info.Instructions = len(tx.Message.Instructions)
	return info, nil
}
