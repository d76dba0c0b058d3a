package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/greeter/internal/contract"
	"github.com/Mohsinsiddi/greeter/internal/greeter"
	"github.com/Mohsinsiddi/greeter/internal/ui"
)

var (
	greetYesFlag  bool
	greetJSONFlag bool
)

var greetCmd = &cobra.Command{
	Use:   "greet",
	Short: "Read or set the contract greeting",
}

var greetFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Read the current greeting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context(), nil, nil)
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireWallet(); err != nil {
			return err
		}

		ctx, cancel := opContext(cmd.Context())
		defer cancel()

		spin := ui.NewSpinner("Reading greeting from " + s.network.DisplayName + "…")
		spin.Start()
		err = s.flow.FetchGreeting(ctx)
		spin.Stop()
		if err != nil {
			return err
		}

		fmt.Println(ui.KeyValueBlock("Greeter", s.summary(s.flow.State())))
		return nil
	},
}

var greetSetCmd = &cobra.Command{
	Use:   "set <greeting>",
	Short: "Set a new greeting (signs a transaction)",
	Long: `Send setGreeting with the given text, wait for it to be mined and read the
stored value back. Arguments are joined with spaces.

Access to the wallet account is confirmed interactively unless --yes is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		approver := terminalApprover
		if greetYesFlag {
			approver = nil
		}
		s, err := newSession(cmd.Context(), approver, nil)
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireWallet(); err != nil {
			return err
		}

		ctx, cancel := opContext(cmd.Context())
		defer cancel()

		var spin *ui.Spinner
		unsubscribe := s.flow.Subscribe(func(st greeter.State) {
			if spin != nil || st.TxHash == (common.Hash{}) {
				return
			}
			fmt.Println(ui.Info("Transaction sent: " + ui.Addr(st.TxHash.Hex())))
			if url := s.network.TxURL(st.TxHash.Hex()); url != "" {
				fmt.Println("  " + ui.Meta(url))
			}
			spin = ui.NewSpinner("Waiting for the transaction to be mined…")
			spin.Start()
		})
		defer unsubscribe()

		s.flow.OnInputChange(strings.Join(args, " "))
		err = s.flow.SetGreeting(ctx)
		if spin != nil {
			if err != nil {
				spin.Stop()
			} else {
				spin.StopWithMsg(ui.Success("Transaction mined"))
			}
		}
		if err != nil {
			return err
		}

		fmt.Println(ui.Success("Greeting updated"))
		fmt.Println(ui.KeyValueBlock("Greeter", s.summary(s.flow.State())))
		return nil
	},
}

var greetABICmd = &cobra.Command{
	Use:   "abi",
	Short: "Show the Greeter contract interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if greetJSONFlag {
			fmt.Println(contract.ABIJSON())
			return nil
		}
		t := ui.NewTable([]ui.Column{
			{Title: "Function", Width: 22},
			{Title: "Selector", Width: 12},
			{Title: "Mutability", Width: 12},
			{Title: "Returns", Width: 10},
		})
		for _, m := range contract.Methods() {
			t.AddRow(ui.Row{m.Signature, m.Selector, m.Mutability, strings.Join(m.Outputs, ", ")})
		}
		fmt.Println(t.Render())
		return nil
	},
}

func init() {
	greetSetCmd.Flags().BoolVarP(&greetYesFlag, "yes", "y", false, "approve account access without asking")
	greetABICmd.Flags().BoolVar(&greetJSONFlag, "json", false, "print the raw ABI JSON")
	greetCmd.AddCommand(greetFetchCmd, greetSetCmd, greetABICmd)
}

// terminalApprover asks on the terminal before exposing the account.
func terminalApprover(_ context.Context, account common.Address) (bool, error) {
	return ui.Confirm(fmt.Sprintf("Allow greeter to use account %s?", account.Hex())), nil
}

// summary lists what a command acted on.
func (s *session) summary(st greeter.State) [][2]string {
	pairs := [][2]string{
		{"Network", s.network.DisplayName},
		{"Contract", s.contract.Hex()},
	}
	if a := s.account(); a != "" {
		pairs = append(pairs, [2]string{"Account", a})
	}
	if st.TxHash != (common.Hash{}) {
		pairs = append(pairs, [2]string{"Transaction", st.TxHash.Hex()})
	}
	return append(pairs, [2]string{"Greeting", st.Greeting})
}
