package cli

import (
	"fmt"
	"net/url"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/0toBillions/solana-wingman/internal/actions"
	"github.com/0toBillions/solana-wingman/internal/conn"
)

// ExplorerURL links a signature on the public explorer for the given cluster.
func ExplorerURL(sig solana.Signature, cluster, rpcURL string) string {
	base := "https://explorer.solana.com/tx/" + sig.String()
	switch cluster {
	case conn.Mainnet:
		return base
	case conn.Localnet:
		return base + "?cluster=custom&customUrl=" + url.QueryEscape(rpcURL)
	default:
		return base + "?cluster=" + cluster
	}
}

// success prints the result line with the signature and its explorer link.
func (a *app) success(msg string, sig solana.Signature) {
	fmt.Fprintf(a.out, "%s\nSignature: %s\nExplorer:  %s\n", msg, sig, ExplorerURL(sig, a.cfg.Network.Cluster, a.cfg.Network.RpcURL))
}

func (a *app) renderBalance(r *actions.BalanceReport) {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetTitle(r.Owner.String())
	t.AppendHeader(table.Row{"Asset", "Account", "Balance", "Decimals"})
	t.AppendRow(table.Row{"SOL", r.Owner.String(), r.SOL, 9})
	for _, tb := range r.Tokens {
		t.AppendRow(table.Row{tb.Mint.String(), tb.Account.String(), tb.Display, tb.Decimals})
	}
	t.Render()
}

func (a *app) renderTransaction(info *actions.TransactionInfo) {
	status := "success"
	if !info.Succeeded() {
		status = fmt.Sprintf("failed: %v", info.Err)
	}
	blockTime := "unknown"
	if info.BlockTime != nil {
		blockTime = info.BlockTime.Format("2006-01-02 15:04:05 MST")
	}
	signers := make([]string, 0, len(info.Signers))
	for _, s := range info.Signers {
		signers = append(signers, s.String())
	}

	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetTitle(info.Signature.String())
	t.AppendRows([]table.Row{
		{"Status", status},
		{"Slot", info.Slot},
		{"Block time", blockTime},
		{"Fee", fmt.Sprintf("%d lamports", info.Fee)},
		{"Signers", strings.Join(signers, "\n")},
		{"Instructions", info.Instructions},
	})
	t.Render()

	if len(info.Logs) > 0 {
		fmt.Fprintln(a.out, "Logs:")
		for _, line := range info.Logs {
			fmt.Fprintf(a.out, "  %s\n", line)
		}
	}
	fmt.Fprintf(a.out, "Explorer: %s\n", ExplorerURL(info.Signature, a.cfg.Network.Cluster, a.cfg.Network.RpcURL))
}
