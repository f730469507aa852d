package cli

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/0toBillions/solana-wingman/internal/actions"
)

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show SOL and SPL token balances (defaults to the signer)",
		Args:  argRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner solana.PublicKey
			if len(args) == 1 {
				key, err := parseAddress("address", args[0])
				if err != nil {
					return err
				}
				owner = key
			}
			svc, err := a.service(owner.IsZero())
			if err != nil {
				return err
			}
			if owner.IsZero() {
				owner = a.id.PublicKey()
			}
			report, err := svc.Balance(cmd.Context(), owner)
			if err != nil {
				return track("balance", err)
			}
			a.renderBalance(report)
			return track("balance", nil)
		},
	}
}

func (a *app) airdropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop [amount]",
		Short: "Request test SOL for the signer (not available on mainnet-beta)",
		Args:  argRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			display := "1"
			if len(args) == 1 {
				display = args[0]
			}
			if err := checkAmount(display); err != nil {
				return err
			}
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			res, err := svc.Airdrop(cmd.Context(), display)
			if err != nil {
				return track("airdrop", err)
			}
			a.success(fmt.Sprintf("Airdropped %s SOL to %s", res.Amount, res.Recipient), res.Signature)
			return track("airdrop", nil)
		},
	}
}

func (a *app) transferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <recipient> <amount>",
		Short: "Send SOL",
		Args:  argRange(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress("recipient", args[0])
			if err != nil {
				return err
			}
			if err := checkAmount(args[1]); err != nil {
				return err
			}
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			res, err := svc.TransferSOL(cmd.Context(), to, args[1])
			if err != nil {
				return track("transfer", err)
			}
			a.success(fmt.Sprintf("Transferred %s SOL to %s", res.Amount, res.To), res.Signature)
			return track("transfer", nil)
		},
	}
}

func (a *app) transferTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-token <mint> <recipient> <amount>",
		Short: "Send SPL tokens, creating the recipient's token account when missing",
		Args:  argRange(3, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseAddress("mint", args[0])
			if err != nil {
				return err
			}
			to, err := parseAddress("recipient", args[1])
			if err != nil {
				return err
			}
			if err := checkAmount(args[2]); err != nil {
				return err
			}
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			res, err := svc.TransferToken(cmd.Context(), mint, to, args[2])
			if err != nil {
				return track("transfer-token", err)
			}
			a.success(fmt.Sprintf("Transferred %s of %s to %s", res.Amount, res.Mint, res.To), res.Signature)
			return track("transfer-token", nil)
		},
	}
}

func (a *app) createMintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-mint [decimals]",
		Short: "Create an SPL token mint with the signer as authority (default 9 decimals)",
		Args:  argRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decimals := uint8(9)
			if len(args) == 1 {
				d, err := parseDecimals(args[0])
				if err != nil {
					return err
				}
				decimals = d
			}
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			res, err := svc.CreateMint(cmd.Context(), decimals)
			if err != nil {
				return track("create-mint", err)
			}
			a.success(fmt.Sprintf("Created mint %s (%d decimals)", res.Mint, res.Decimals), res.Signature)
			return track("create-mint", nil)
		},
	}
}

func (a *app) createAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-account <mint> [owner]",
		Short: "Create the associated token account for owner (defaults to the signer)",
		Args:  argRange(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseAddress("mint", args[0])
			if err != nil {
				return err
			}
			var owner solana.PublicKey
			if len(args) == 2 {
				if owner, err = parseAddress("owner", args[1]); err != nil {
					return err
				}
			}
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			if owner.IsZero() {
				owner = a.id.PublicKey()
			}
			res, err := svc.CreateTokenAccount(cmd.Context(), mint, owner)
			if err != nil {
				return track("create-account", err)
			}
			if !res.Created {
				fmt.Fprintf(a.out, "Token account %s already exists for owner %s\n", res.Account, res.Owner)
				return track("create-account", nil)
			}
			a.success(fmt.Sprintf("Created token account %s for owner %s", res.Account, res.Owner), res.Signature)
			return track("create-account", nil)
		},
	}
}

func (a *app) mintToCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint-to <mint> <amount> [recipient]",
		Short: "Mint tokens to recipient (defaults to the signer); the signer must be mint authority",
		Args:  argRange(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseAddress("mint", args[0])
			if err != nil {
				return err
			}
			if err := checkAmount(args[1]); err != nil {
				return err
			}
			var recipient solana.PublicKey
			if len(args) == 3 {
				if recipient, err = parseAddress("recipient", args[2]); err != nil {
					return err
				}
			}
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			if recipient.IsZero() {
				recipient = a.id.PublicKey()
			}
			res, err := svc.MintTo(cmd.Context(), mint, args[1], recipient)
			if err != nil {
				return track("mint-to", err)
			}
			a.success(fmt.Sprintf("Minted %s of %s to %s", res.Amount, res.Mint, res.Destination), res.Signature)
			return track("mint-to", nil)
		},
	}
}

func (a *app) swapCmd() *cobra.Command {
	var slippage int
	cmd := &cobra.Command{
		Use:   "swap <input-mint> <output-mint> <amount>",
		Short: "Swap through the Jupiter aggregator",
		Args:  argRange(3, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseAddress("input mint", args[0])
			if err != nil {
				return err
			}
			out, err := parseAddress("output mint", args[1])
			if err != nil {
				return err
			}
			if err := checkAmount(args[2]); err != nil {
				return err
			}
			if slippage < 0 || slippage > 10_000 {
				return fmt.Errorf("%w: --slippage-bps %d out of range 0..10000", ErrInvalidArgument, slippage)
			}
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			res, err := svc.Swap(cmd.Context(), actions.SwapRequest{
				InputMint:   in,
				OutputMint:  out,
				Amount:      args[2],
				SlippageBps: slippage,
			})
			if err != nil {
				return track("swap", err)
			}
			a.success(fmt.Sprintf("Swapped %s %s for ~%s %s", res.InAmount, res.InputMint, res.OutAmount, res.OutputMint), res.Signature)
			return track("swap", nil)
		},
	}
	cmd.Flags().IntVar(&slippage, "slippage-bps", 0, "slippage tolerance in basis points (default from config, 50)")
	return cmd
}

func (a *app) deployCmd() *cobra.Command {
	var programID string
	cmd := &cobra.Command{
		Use:   "deploy <program.so>",
		Short: "Deploy a compiled program with the solana CLI",
		Args:  argRange(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			res, err := svc.Deploy(cmd.Context(), actions.DeployRequest{ProgramPath: args[0], ProgramIDPath: programID})
			if err != nil {
				return track("deploy", err)
			}
			fmt.Fprintf(a.out, "Deployed %s to %s\n", res.ProgramPath, a.cfg.Network.Cluster)
			return track("deploy", nil)
		},
	}
	cmd.Flags().StringVar(&programID, "program-id", "", "program id keypair file")
	return cmd
}

func (a *app) txCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tx <signature>",
		Short: "Show a landed transaction",
		Args:  argRange(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := parseSignature(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			info, err := svc.FetchTransaction(cmd.Context(), sig)
			if err != nil {
				return track("tx", err)
			}
			a.renderTransaction(info)
			return track("tx", nil)
		},
	}
}

func (a *app) addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the signer's public key",
		Args:  argRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, id.PublicKey())
			return nil
		},
	}
}
