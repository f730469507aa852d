package actions

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/0toBillions/solana-wingman/internal/conn"
	"github.com/0toBillions/solana-wingman/internal/journal"
	"github.com/0toBillions/solana-wingman/internal/risk"
	"github.com/0toBillions/solana-wingman/internal/submit"
	"github.com/0toBillions/solana-wingman/internal/wallet"
)

// fakeNode is an in-memory stand-in for a Solana RPC node. Every call is counted.
type fakeNode struct {
	mu sync.Mutex

	calls         int
	methods       []string
	hashes        int
	balance       uint64
	rent          uint64
	accounts      map[solana.PublicKey]*rpc.Account
	tokenAccounts []*rpc.TokenAccount
	airdrops      []uint64
	sent          []*solana.Transaction
	sendErr       error
	failSends     int
	txResult      *rpc.GetTransactionResult
	onSend        func(tx *solana.Transaction)
}

func newFakeNode() *fakeNode {
	return &fakeNode{accounts: map[solana.PublicKey]*rpc.Account{}, rent: 1_461_600}
}

func (f *fakeNode) touch(method string) {
	f.mu.Lock()
	f.calls++
	f.methods = append(f.methods, method)
	f.mu.Unlock()
}

func (f *fakeNode) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.touch("getLatestBlockhash")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes++
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{
		Blockhash:            solana.Hash{byte(f.hashes), 0xBB},
		LastValidBlockHeight: 1000,
	}}, nil
}

func (f *fakeNode) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	f.touch("getBlockHeight")
	return 10, nil
}

func (f *fakeNode) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.touch("sendTransaction")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	if f.failSends > 0 {
		f.failSends--
		return solana.Signature{}, errors.New("rpc call sendTransaction(): 429 Too Many Requests")
	}
	f.sent = append(f.sent, tx)
	if f.onSend != nil {
		f.onSend(tx)
	}
	return tx.Signatures[0], nil
}

func (f *fakeNode) GetSignatureStatuses(ctx context.Context, search bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.touch("getSignatureStatuses")
	out := &rpc.GetSignatureStatusesResult{}
	for range sigs {
		out.Value = append(out.Value, &rpc.SignatureStatusesResult{Slot: 5, ConfirmationStatus: rpc.ConfirmationStatusFinalized})
	}
	return out, nil
}

func (f *fakeNode) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	f.touch("getBalance")
	return &rpc.GetBalanceResult{Value: f.balance}, nil
}

func (f *fakeNode) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.touch("getAccountInfo")
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acct}, nil
}

func (f *fakeNode) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	f.touch("getTokenAccountsByOwner")
	return &rpc.GetTokenAccountsResult{Value: f.tokenAccounts}, nil
}

func (f *fakeNode) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error) {
	f.touch("getMinimumBalanceForRentExemption")
	return f.rent, nil
}

func (f *fakeNode) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error) {
	f.touch("requestAirdrop")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.airdrops = append(f.airdrops, lamports)
	return solana.Signature{0xA1}, nil
}

func (f *fakeNode) GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	f.touch("getTransaction")
	if f.txResult == nil {
		return nil, rpc.ErrNotFound
	}
	return f.txResult, nil
}

// mintData lays out an initialized SPL mint the way the token program stores it.
func mintData(authority solana.PublicKey, decimals uint8, supply uint64) []byte {
	data := make([]byte, mintAccountSize)
	binary.LittleEndian.PutUint32(data[0:4], 1)
	copy(data[4:36], authority[:])
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	return data
}

// tokenAccountData lays out an initialized SPL token account.
func tokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1
	return data
}

func (f *fakeNode) addMint(mint, authority solana.PublicKey, decimals uint8) {
	f.accounts[mint] = &rpc.Account{
		Owner:    solana.TokenProgramID,
		Lamports: 1_461_600,
		Data:     rpc.DataBytesOrJSONFromBytes(mintData(authority, decimals, 0)),
	}
}

func (f *fakeNode) addTokenAccount(address, mint, owner solana.PublicKey, amount uint64) {
	acct := &rpc.Account{
		Owner:    solana.TokenProgramID,
		Lamports: 2_039_280,
		Data:     rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, owner, amount)),
	}
	f.accounts[address] = acct
	f.tokenAccounts = append(f.tokenAccounts, &rpc.TokenAccount{Pubkey: address, Account: *acct})
}

type harness struct {
	node    *fakeNode
	svc     *Service
	signer  *wallet.Identity
	out     *bytes.Buffer
	journal *memJournal
}

type memJournal struct{ receipts []journal.Receipt }

func (m *memJournal) Record(r journal.Receipt) error {
	m.receipts = append(m.receipts, r)
	return nil
}

func newHarness(t *testing.T, cluster string, mutate ...func(*Options)) *harness {
	t.Helper()
	id, err := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	require.NoError(t, err)
	node := newFakeNode()
	out := &bytes.Buffer{}
	mem := &memJournal{}
	opts := Options{
		Cluster: cluster,
		Signer:  id,
		Limits:  risk.NewLimits(10, 1),
		Journal: mem,
		Out:     out,
		ErrOut:  out,
		Log:     zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	sub := submit.New(node, zerolog.Nop(), submit.Config{
		Commitment:   rpc.CommitmentConfirmed,
		MaxAttempts:  3,
		PollInterval: time.Millisecond,
	})
	return &harness{node: node, svc: NewService(node, sub, opts), signer: id, out: out, journal: mem}
}

func newDevnetHarness(t *testing.T, mutate ...func(*Options)) *harness {
	return newHarness(t, conn.Devnet, mutate...)
}

func programOf(tx *solana.Transaction, ix solana.CompiledInstruction) solana.PublicKey {
	return tx.Message.AccountKeys[ix.ProgramIDIndex]
}
