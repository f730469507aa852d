package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrExpired means the blockhash validity window closed before the transaction confirmed.
	// The signed bytes are dead; a new blockhash and signature are required.
	ErrExpired = errors.New("transaction expired before confirmation")
	// ErrStaleBlockhash means the node handed back a blockhash that already expired once.
	ErrStaleBlockhash = errors.New("node returned an already expired blockhash")
	// ErrOutcomeUnknown means the node could not say whether a sent transaction landed.
	ErrOutcomeUnknown = errors.New("transaction outcome unknown")
)

// ExecutionError is a definitive on-chain failure reported for a landed transaction.
type ExecutionError struct {
	Signature solana.Signature
	Payload   any
}

func (e *ExecutionError) Error() string {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Payload)
	}
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, raw)
}

// UnknownOutcomeError carries the signature of a sent transaction whose fate could not be
// determined. Resending could execute the action twice, so it is never retried.
type UnknownOutcomeError struct {
	Signature solana.Signature
	Err       error
}

func (e *UnknownOutcomeError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrOutcomeUnknown, e.Signature, e.Err)
}

func (e *UnknownOutcomeError) Is(target error) bool { return target == ErrOutcomeUnknown }

func (e *UnknownOutcomeError) Unwrap() error { return e.Err }

// RetryError is returned once every attempt failed with a transient error.
type RetryError struct {
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() error { return e.Last }

// Class separates failures worth another attempt from those that will fail again.
type Class int

const (
	Deterministic Class = iota
	Transient
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "deterministic"
}

// JSON-RPC server error codes for a lagging node and for rate limiting.
const (
	rpcCodeNodeBehind  = -32005
	rpcCodeRateLimited = 429
)

var transientMarkers = []string{
	"blockhash not found",
	"block height exceeded",
	"too many requests",
	"rate limit",
	"status code: 429",
	"i/o timeout",
	"timed out",
	"node is behind",
}

// Classify decides whether err may succeed on a rebuilt, re-signed attempt.
func Classify(err error) Class {
	if err == nil || errors.Is(err, context.Canceled) {
		return Deterministic
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) || errors.Is(err, ErrOutcomeUnknown) {
		return Deterministic
	}
	if errors.Is(err, ErrExpired) || errors.Is(err, ErrStaleBlockhash) || errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code == rpcCodeRateLimited {
		return Transient
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && (rpcErr.Code == rpcCodeNodeBehind || rpcErr.Code == rpcCodeRateLimited) {
		return Transient
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return Transient
		}
	}
	return Deterministic
}
