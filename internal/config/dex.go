// Package config also contains chain and aggregator configuration surfaces.
package config

// Network defines the cluster, RPC endpoint and commitment for on-chain calls.
type Network struct {
	Cluster    string `yaml:"cluster"`    // mainnet-beta|devnet|testnet|localnet
	RpcURL     string `yaml:"rpc_url"`    // empty means the cluster's public endpoint
	Commitment string `yaml:"commitment"` // processed|confirmed|finalized
}

// Jupiter configures the swap aggregator.
type Jupiter struct {
	BaseURL     string `yaml:"base_url"` // https://quote-api.jup.ag
	SlippageBps int    `yaml:"slippage_bps"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

// Wallet points at the signing material. The secret itself is never stored in config.
type Wallet struct {
	EnvVar      string `yaml:"env_var"`
	KeypairPath string `yaml:"keypair_path"`
}
