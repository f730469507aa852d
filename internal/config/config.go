// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/0toBillions/solana-wingman/internal/conn"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Risk holds advisory thresholds; exceeding them prints a warning only.
type Risk struct {
	LargeTransferSOL  float64 `yaml:"large_transfer_sol"`
	MaxPriceImpactPct float64 `yaml:"max_price_impact_pct"`
}

// Submit tunes the send/confirm/retry protocol.
type Submit struct {
	MaxAttempts    int  `yaml:"max_attempts"`
	RetryDelayMs   int  `yaml:"retry_delay_ms"`
	PollIntervalMs int  `yaml:"poll_interval_ms"`
	SkipPreflight  bool `yaml:"skip_preflight"`
}

// Deploy names the external utility used for program deployment.
type Deploy struct {
	Tool string `yaml:"tool"`
}

// Journal configures the receipt log; an empty path disables it.
type Journal struct {
	Path string `yaml:"path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Network Network `yaml:"network"`
	Wallet  Wallet  `yaml:"wallet"`
	Jupiter Jupiter `yaml:"jupiter"`
	Submit  Submit  `yaml:"submit"`
	Risk    Risk    `yaml:"risk"`
	Deploy  Deploy  `yaml:"deploy"`
	Journal Journal `yaml:"journal"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App:     App{Name: "wingman", Env: "dev", LogLevel: "info"},
		Network: Network{Commitment: "confirmed"},
		Wallet:  Wallet{EnvVar: "SOLANA_PRIVATE_KEY_BASE58", KeypairPath: "~/.config/solana/id.json"},
		Jupiter: Jupiter{BaseURL: "https://quote-api.jup.ag", SlippageBps: 50, TimeoutMs: 8000},
		Submit:  Submit{MaxAttempts: 3, RetryDelayMs: 1500, PollIntervalMs: 500},
		Risk:    Risk{LargeTransferSOL: 10, MaxPriceImpactPct: 1},
		Deploy:  Deploy{Tool: "solana"},
	}
}

// Load reads a YAML file from disk and hydrates a Config struct on top of Default.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return config, nil
}

// LoadOrDefault behaves like Load but falls back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv loads .env (best-effort) and lets environment variables override file values.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()
	c.Network.Cluster = getEnv("SOLANA_CLUSTER", c.Network.Cluster)
	c.Network.RpcURL = getEnv("SOLANA_RPC_URL", c.Network.RpcURL)
	c.Network.Commitment = getEnv("SOLANA_COMMITMENT", c.Network.Commitment)
	c.Wallet.KeypairPath = getEnv("SOLANA_KEYPAIR_PATH", c.Wallet.KeypairPath)
	c.Jupiter.BaseURL = getEnv("JUPITER_BASE_URL", c.Jupiter.BaseURL)
	c.App.LogLevel = getEnv("WINGMAN_LOG_LEVEL", c.App.LogLevel)
}

// Validate normalizes the cluster, fills the default RPC endpoint and checks bounds.
// An unset cluster is taken from a recognized mainnet endpoint and otherwise
// defaults to devnet; a cluster that contradicts such an endpoint is refused.
func (c *Config) Validate() error {
	cluster, err := conn.NormalizeCluster(c.Network.Cluster)
	if err != nil {
		return err
	}
	if inferred, ok := conn.ClusterForEndpoint(c.Network.RpcURL); ok {
		if strings.TrimSpace(c.Network.Cluster) == "" {
			cluster = inferred
		} else if cluster != inferred {
			return fmt.Errorf("network.cluster %s does not match rpc endpoint %s (a %s endpoint)", cluster, c.Network.RpcURL, inferred)
		}
	}
	c.Network.Cluster = cluster
	if strings.TrimSpace(c.Network.RpcURL) == "" {
		c.Network.RpcURL = conn.DefaultEndpoint(cluster)
	}
	if _, err := conn.ParseCommitment(c.Network.Commitment); err != nil {
		return err
	}
	if c.Jupiter.SlippageBps < 0 || c.Jupiter.SlippageBps > 10_000 {
		return fmt.Errorf("jupiter.slippage_bps %d out of range 0..10000", c.Jupiter.SlippageBps)
	}
	if c.Submit.MaxAttempts < 1 || c.Submit.MaxAttempts > 3 {
		return fmt.Errorf("submit.max_attempts %d out of range 1..3", c.Submit.MaxAttempts)
	}
	if c.Submit.RetryDelayMs < 0 || c.Submit.PollIntervalMs < 0 {
		return fmt.Errorf("submit delays must not be negative")
	}
	return nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
