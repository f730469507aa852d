package config

import (
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "wingman-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "debug" {
		t.Fatalf("unexpected App.LogLevel: %s", cfg.App.LogLevel)
	}
	if cfg.Network.Cluster != "testnet" {
		t.Fatalf("unexpected cluster: %s", cfg.Network.Cluster)
	}
	if cfg.Network.Commitment != "processed" {
		t.Fatalf("expected processed commitment, got %s", cfg.Network.Commitment)
	}
	if cfg.Wallet.KeypairPath != "/tmp/wingman/id.json" {
		t.Fatalf("unexpected keypair path: %s", cfg.Wallet.KeypairPath)
	}
	if cfg.Wallet.EnvVar != "SOLANA_PRIVATE_KEY_BASE58" {
		t.Fatalf("expected default env var to survive partial wallet section, got %s", cfg.Wallet.EnvVar)
	}
	if cfg.Jupiter.BaseURL != "https://jup.example" || cfg.Jupiter.SlippageBps != 75 {
		t.Fatalf("unexpected jupiter section: %+v", cfg.Jupiter)
	}
	if cfg.Jupiter.TimeoutMs != 8000 {
		t.Fatalf("expected default jupiter timeout, got %d", cfg.Jupiter.TimeoutMs)
	}
	if cfg.Submit.MaxAttempts != 2 || cfg.Submit.RetryDelayMs != 1000 || cfg.Submit.PollIntervalMs != 500 {
		t.Fatalf("unexpected submit section: %+v", cfg.Submit)
	}
	if cfg.Risk.LargeTransferSOL != 5 || cfg.Risk.MaxPriceImpactPct != 1 {
		t.Fatalf("unexpected risk section: %+v", cfg.Risk)
	}
	if cfg.Journal.Path != "/tmp/wingman/receipts.jsonl" {
		t.Fatalf("unexpected journal path: %s", cfg.Journal.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault returned error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Network.Cluster != "devnet" || cfg.Network.RpcURL != rpc.DevNet_RPC {
		t.Fatalf("expected devnet default, got %s", cfg.Network.Cluster)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wingman.yaml")
	cfg := Default()
	cfg.Network.Cluster = "mainnet-beta"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Network.Cluster != "mainnet-beta" {
		t.Fatalf("unexpected cluster after round trip: %s", loaded.Network.Cluster)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "http://127.0.0.1:8899")
	t.Setenv("SOLANA_CLUSTER", "localnet")
	t.Setenv("JUPITER_BASE_URL", "http://jup.local")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Network.RpcURL != "http://127.0.0.1:8899" || cfg.Network.Cluster != "localnet" || cfg.Jupiter.BaseURL != "http://jup.local" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Network.Cluster = "mainnet"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Network.Cluster != "mainnet-beta" || cfg.Network.RpcURL != rpc.MainNetBeta_RPC {
		t.Fatalf("unexpected normalized network: %+v", cfg.Network)
	}

	cfg = Default()
	cfg.Submit.MaxAttempts = 5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for more than three attempts")
	}

	cfg = Default()
	cfg.Network.Commitment = "max"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown commitment")
	}
}

func TestValidateInfersMainnetFromEndpoint(t *testing.T) {
	for _, url := range []string{rpc.MainNetBeta_RPC, rpc.MainNetBeta_RPC + "/", "https://mainnet.helius-rpc.com/?api-key=x"} {
		cfg := Default()
		cfg.Network.RpcURL = url
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate(%s) returned error: %v", url, err)
		}
		if cfg.Network.Cluster != "mainnet-beta" {
			t.Fatalf("expected mainnet-beta for %s, got %s", url, cfg.Network.Cluster)
		}
	}

	cfg := Default()
	cfg.Network.RpcURL = "http://127.0.0.1:8899"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Network.Cluster != "devnet" {
		t.Fatalf("expected devnet for an unrecognized endpoint, got %s", cfg.Network.Cluster)
	}
}

func TestValidateRejectsClusterContradictingEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Network.Cluster = "devnet"
	cfg.Network.RpcURL = rpc.MainNetBeta_RPC
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for devnet cluster on a mainnet endpoint")
	}

	cfg = Default()
	cfg.Network.Cluster = "mainnet"
	cfg.Network.RpcURL = rpc.MainNetBeta_RPC
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}
