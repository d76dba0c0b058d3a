package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/greeter/internal/chain"
	"github.com/Mohsinsiddi/greeter/internal/config"
	"github.com/Mohsinsiddi/greeter/internal/rpc"
	"github.com/Mohsinsiddi/greeter/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		nets := chain.NewRegistry().All()
		t := ui.NewTable([]ui.Column{
			{Title: "", Width: 2},
			{Title: "Name", Width: 12},
			{Title: "Display", Width: 18},
			{Title: "Chain ID", Width: 10},
			{Title: "Type", Width: 8},
			{Title: "RPCs", Width: 5},
			{Title: "Status", Width: 8},
		})
		for _, n := range nets {
			mark := ""
			if n.Name == cfg.Network {
				mark = ui.StyleSuccess.Render("▸")
			}
			kind := "mainnet"
			if n.Testnet {
				kind = "testnet"
			}
			status := ui.StyleSuccess.Render("live")
			if n.Retired {
				status = ui.StyleWarning.Render("retired")
			}
			t.AddRow(ui.Row{
				mark,
				ui.ChainName(n.Name),
				n.DisplayName,
				strconv.FormatInt(n.ChainID, 10),
				kind,
				strconv.Itoa(len(cfg.RPCs(n.Name, n.RPCs))),
				status,
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d networks, using %s", len(nets), cfg.Network)))
		return nil
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use <network>",
	Short: "Set the default network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("%w: %q (run `greeter network list`)", err, args[0])
		}
		cfg.Network = n.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default network set to %s", ui.ChainName(n.DisplayName))))
		if n.Retired {
			fmt.Println(ui.Warn(n.DisplayName + " is retired; configure an rpc_url if you still run a node for it."))
		}
		return nil
	},
}

var networkCheckCmd = &cobra.Command{
	Use:   "check [network]",
	Short: "Benchmark the RPC endpoints of a network",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cfg.Network
		if len(args) == 1 {
			name = args[0]
		}
		n, err := chain.NewRegistry().GetByName(name)
		if err != nil {
			return fmt.Errorf("%w: %q", err, name)
		}
		urls := cfg.RPCs(n.Name, n.RPCs)
		if len(urls) == 0 {
			fmt.Println(ui.Warn("No RPC endpoints for " + n.DisplayName))
			fmt.Println(ui.Hint("Add one with: greeter config set rpc_url <url>"))
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
		defer cancel()

		spin := ui.NewSpinner(fmt.Sprintf("Checking %d endpoint(s)…", len(urls)))
		spin.Start()
		results := rpc.Benchmark(ctx, urls)
		spin.Stop()

		t := ui.NewTable([]ui.Column{
			{Title: "Endpoint", Width: 44},
			{Title: "Latency", Width: 10},
			{Title: "Block", Width: 12},
			{Title: "Status", Width: 8},
		})
		for _, r := range results {
			latency, block, status := "-", "-", ui.StyleError.Render("down")
			if r.Healthy {
				latency = r.Latency.Round(time.Millisecond).String()
				block = strconv.FormatUint(r.BlockNumber, 10)
				status = ui.StyleSuccess.Render("ok")
			}
			t.AddRow(ui.Row{r.URL, latency, block, status})
		}
		fmt.Println(t.Render())

		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}
		best, err := rpc.NewPicker(algo).Pick(results)
		if err != nil {
			fmt.Println(ui.Err(err.Error()))
			return nil
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s pick: %s", algo, best.URL)))

		client, err := chain.Dial(ctx, best.URL)
		if err != nil {
			return nil
		}
		defer client.Close()
		id, err := client.ChainID(ctx)
		if err != nil {
			logger.Debug("chain id unavailable", "url", best.URL, "err", err)
			return nil
		}
		if msg := chainMismatch(n, id.Int64()); msg != "" {
			fmt.Println(ui.Warn(msg))
		}
		return nil
	},
}

// chainMismatch describes a node that serves a different chain than the
// network it is configured for, or returns "".
func chainMismatch(n *chain.Network, reported int64) string {
	if reported == n.ChainID {
		return ""
	}
	name := fmt.Sprintf("chain %d", reported)
	if other, err := chain.NewRegistry().GetByChainID(reported); err == nil {
		name = fmt.Sprintf("%s (%d)", other.DisplayName, reported)
	}
	return fmt.Sprintf("endpoint serves %s, not %s (%d)", name, n.DisplayName, n.ChainID)
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkUseCmd, networkCheckCmd)
}
