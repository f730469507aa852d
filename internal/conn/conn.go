// Package conn owns the RPC connection shared by every action in a process.
package conn

import (
	"fmt"
	neturl "net/url"
	"strings"
	"sync/atomic"

	"github.com/gagliardetto/solana-go/rpc"
)

// Connection is an RPC client bound to one endpoint and one commitment level.
type Connection struct {
	URL        string
	Commitment rpc.CommitmentType
	RPC        *rpc.Client
}

// Create builds an independent connection that is not shared through a Manager.
func Create(url string, commitment rpc.CommitmentType) *Connection {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Connection{URL: url, Commitment: commitment, RPC: rpc.New(url)}
}

// Manager lazily constructs the process-wide connection. Racing first calls each build a
// connection; one wins the swap and the rest are discarded.
type Manager struct {
	url        string
	commitment rpc.CommitmentType
	shared     atomic.Pointer[Connection]
}

// NewManager records the endpoint and commitment used by Get.
func NewManager(url string, commitment rpc.CommitmentType) *Manager {
	return &Manager{url: url, commitment: commitment}
}

// Get returns the shared connection, creating it on first use.
func (m *Manager) Get() *Connection {
	if c := m.shared.Load(); c != nil {
		return c
	}
	c := Create(m.url, m.commitment)
	if m.shared.CompareAndSwap(nil, c) {
		return c
	}
	return m.shared.Load()
}

// ParseCommitment maps a config string to a commitment level; empty means confirmed.
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("unknown commitment %q (want processed|confirmed|finalized)", s)
	}
}

// Cluster names accepted in configuration.
const (
	Mainnet  = "mainnet-beta"
	Devnet   = "devnet"
	Testnet  = "testnet"
	Localnet = "localnet"
)

// NormalizeCluster canonicalizes aliases such as "mainnet".
func NormalizeCluster(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainnet", "mainnet-beta", "main":
		return Mainnet, nil
	case "", "devnet", "dev":
		return Devnet, nil
	case "testnet", "test":
		return Testnet, nil
	case "localnet", "localhost", "local":
		return Localnet, nil
	default:
		return "", fmt.Errorf("unknown cluster %q", name)
	}
}

// DefaultEndpoint returns the public RPC URL for a cluster.
func DefaultEndpoint(cluster string) string {
	switch cluster {
	case Mainnet:
		return rpc.MainNetBeta_RPC
	case Testnet:
		return rpc.TestNet_RPC
	case Localnet:
		return rpc.LocalNet_RPC
	default:
		return rpc.DevNet_RPC
	}
}

// ClusterForEndpoint recognizes mainnet endpoints: the public one and provider
// hosts that carry "mainnet" in their name. Other URLs report false.
func ClusterForEndpoint(endpoint string) (string, bool) {
	if strings.TrimRight(strings.TrimSpace(endpoint), "/") == rpc.MainNetBeta_RPC {
		return Mainnet, true
	}
	u, err := neturl.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", false
	}
	if strings.Contains(strings.ToLower(u.Hostname()), "mainnet") {
		return Mainnet, true
	}
	return "", false
}
