// Package cli wires configuration, identity, connection and the action orchestrators into
// the wingman command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/0toBillions/solana-wingman/internal/actions"
	"github.com/0toBillions/solana-wingman/internal/config"
	"github.com/0toBillions/solana-wingman/internal/conn"
	"github.com/0toBillions/solana-wingman/internal/dex/jupiter"
	"github.com/0toBillions/solana-wingman/internal/journal"
	"github.com/0toBillions/solana-wingman/internal/metrics"
	"github.com/0toBillions/solana-wingman/internal/risk"
	"github.com/0toBillions/solana-wingman/internal/submit"
	"github.com/0toBillions/solana-wingman/internal/util"
	"github.com/0toBillions/solana-wingman/internal/wallet"
)

// DefaultConfigPath is read when --config is not given; a missing file means defaults.
const DefaultConfigPath = "wingman.yaml"

type globalFlags struct {
	ConfigPath string
	LogLevel   string
	Cluster    string
	RPCURL     string
}

// app is the per-invocation state shared by every subcommand.
type app struct {
	flags  globalFlags
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	id      *wallet.Identity
	log     zerolog.Logger
	conns   *conn.Manager
	journal journal.Recorder
	closers []func() error
	metrics *http.Server
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout, errOut: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.shutdown()
	if err != nil {
		class, remedy := Describe(err)
		fmt.Fprintf(stderr, "error (%s): %v\n", class, err)
		if remedy != "" {
			fmt.Fprintf(stderr, "hint: %s\n", remedy)
		}
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wingman",
		Short: "Solana on-chain actions from the command line",
		Long: `wingman performs common Solana actions: balances, airdrops, SOL and SPL token
transfers, mint management, aggregator swaps, program deployment and
transaction lookup.

The signing identity comes from SOLANA_PRIVATE_KEY_BASE58 (base58 secret key)
or the solana-keygen key file (default ~/.config/solana/id.json).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	})
	root.PersistentFlags().StringVar(&a.flags.ConfigPath, "config", DefaultConfigPath, "YAML config file (defaults apply when absent)")
	root.PersistentFlags().StringVar(&a.flags.LogLevel, "log-level", "", "debug|info|warn|error (overrides app.log_level)")
	root.PersistentFlags().StringVar(&a.flags.Cluster, "cluster", "", "mainnet-beta|devnet|testnet|localnet (overrides network.cluster)")
	root.PersistentFlags().StringVar(&a.flags.RPCURL, "url", "", "RPC endpoint (overrides network.rpc_url)")

	root.AddCommand(
		a.balanceCmd(),
		a.airdropCmd(),
		a.transferCmd(),
		a.transferTokenCmd(),
		a.createMintCmd(),
		a.createAccountCmd(),
		a.mintToCmd(),
		a.swapCmd(),
		a.deployCmd(),
		a.txCmd(),
		a.addressCmd(),
	)
	return root
}

// setup loads configuration and logging. It never touches the network.
func (a *app) setup() error {
	cfg, err := config.LoadOrDefault(a.flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg.ApplyEnv()
	if a.flags.Cluster != "" {
		cfg.Network.Cluster = a.flags.Cluster
		if a.flags.RPCURL == "" {
			// a cluster switch on the command line also switches endpoints
			cfg.Network.RpcURL = ""
		}
	}
	if a.flags.RPCURL != "" {
		cfg.Network.RpcURL = a.flags.RPCURL
	}
	if a.flags.LogLevel != "" {
		cfg.App.LogLevel = a.flags.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	a.cfg = cfg
	a.log = util.NewLoggerTo(a.errOut, cfg.App.LogLevel)

	commitment, _ := conn.ParseCommitment(cfg.Network.Commitment)
	a.conns = conn.NewManager(cfg.Network.RpcURL, commitment)

	if cfg.App.MetricsAddr != "" {
		a.metrics = metrics.Serve(cfg.App.MetricsAddr)
		a.log.Debug().Str("addr", cfg.App.MetricsAddr).Msg("metrics endpoint started")
	}
	a.log.Debug().
		Str("cluster", cfg.Network.Cluster).
		Str("rpc", cfg.Network.RpcURL).
		Str("commitment", cfg.Network.Commitment).
		Msg("config loaded")
	return nil
}

// identity resolves the signer. Only the public key is ever logged.
func (a *app) identity() (*wallet.Identity, error) {
	if a.id != nil {
		return a.id, nil
	}
	keyPath, err := wallet.ExpandPath(a.cfg.Wallet.KeypairPath)
	if err != nil {
		keyPath = a.cfg.Wallet.KeypairPath
	}
	id, err := wallet.Resolve(wallet.Options{EnvVar: a.cfg.Wallet.EnvVar, KeypairPath: keyPath})
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("signer", id.PublicKey().String()).Msg("identity resolved")
	a.id = id
	return id, nil
}

// service builds the orchestrator. needSigner controls whether identity resolution runs.
func (a *app) service(needSigner bool) (*actions.Service, error) {
	var signer *wallet.Identity
	if needSigner {
		id, err := a.identity()
		if err != nil {
			return nil, err
		}
		signer = id
	}

	rec, err := a.openJournal()
	if err != nil {
		return nil, err
	}

	c := a.conns.Get()
	sub := submit.New(c.RPC, a.log, submit.Config{
		Commitment:    c.Commitment,
		MaxAttempts:   a.cfg.Submit.MaxAttempts,
		RetryDelay:    time.Duration(a.cfg.Submit.RetryDelayMs) * time.Millisecond,
		PollInterval:  time.Duration(a.cfg.Submit.PollIntervalMs) * time.Millisecond,
		SkipPreflight: a.cfg.Submit.SkipPreflight,
	})
	keyPath, _ := wallet.ExpandPath(a.cfg.Wallet.KeypairPath)
	return actions.NewService(c.RPC, sub, actions.Options{
		Cluster:     a.cfg.Network.Cluster,
		RPCURL:      a.cfg.Network.RpcURL,
		Signer:      signer,
		Limits:      risk.NewLimits(a.cfg.Risk.LargeTransferSOL, a.cfg.Risk.MaxPriceImpactPct),
		Journal:     rec,
		Swapper:     jupiter.NewClient(a.cfg.Jupiter.BaseURL, time.Duration(a.cfg.Jupiter.TimeoutMs)*time.Millisecond),
		SlippageBps: a.cfg.Jupiter.SlippageBps,
		DeployTool:  a.cfg.Deploy.Tool,
		KeypairPath: keyPath,
		Out:         a.out,
		ErrOut:      a.errOut,
		Log:         a.log,
	}), nil
}

func (a *app) openJournal() (journal.Recorder, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	if a.cfg.Journal.Path == "" {
		a.journal = journal.Nop{}
		return a.journal, nil
	}
	path, err := wallet.ExpandPath(a.cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: journal path: %v", ErrConfig, err)
	}
	rec, err := journal.NewJSONLRecorder(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	a.journal = rec
	a.closers = append(a.closers, rec.Close)
	return rec, nil
}

func (a *app) shutdown() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
}

// track counts the action outcome.
func track(action string, err error) error {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ActionsTotal.WithLabelValues(action, result).Inc()
	return err
}
