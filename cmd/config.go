package cmd

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Mohsinsiddi/greeter/internal/config"
	"github.com/Mohsinsiddi/greeter/internal/deployments"
	"github.com/Mohsinsiddi/greeter/internal/ui"
)

var configOutputFlag string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch configOutputFlag {
		case "json":
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		case "yaml":
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		case "", "table":
		default:
			return fmt.Errorf("unknown output %q (want table, json or yaml)", configOutputFlag)
		}

		var pairs [][2]string
		for _, k := range config.Keys() {
			v, _ := cfg.Get(k)
			if v == "" {
				v = "-"
			}
			pairs = append(pairs, [2]string{k, v})
		}
		networks := slices.Sorted(maps.Keys(cfg.CustomRPCs))
		for _, network := range networks {
			if urls := cfg.CustomRPCs[network]; len(urls) > 0 {
				pairs = append(pairs, [2]string{"rpc." + network, strings.Join(urls, ", ")})
			}
		}
		fmt.Println(ui.KeyValueBlock("Configuration", pairs))
		fmt.Println(ui.Meta("File: " + cfg.Path()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Keys: " + strings.Join(config.Keys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		v, _ := cfg.Get(args[0])
		fmt.Println(ui.Success(fmt.Sprintf("%s = %s", args[0], v)))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(cfg.Path())
		return nil
	},
}

var configRPCCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage custom RPC endpoints",
}

var configRPCAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC endpoint for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.AddRPC(args[0], args[1]); err != nil {
			// Already present, not fatal.
			fmt.Println(ui.Warn(err.Error()))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC %s added for %s", args[1], args[0])))
		return nil
	},
}

var configRPCRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC endpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC %s removed from %s", args[1], args[0])))
		return nil
	},
}

var configSyncCmd = &cobra.Command{
	Use:   "sync [manifest-url]",
	Short: "Point contract_address at the Greeter deployment listed in a manifest",
	Long: `Fetch a deployments manifest (JSON or YAML) and set contract_address to
the Greeter entry for the current network. Without an argument the saved
deployments_url is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := ""
		if len(args) == 1 {
			source = args[0]
		}
		sp := ui.NewSpinner("Fetching deployments manifest...")
		sp.Start()
		addr, err := deployments.New(cfg).Run(cmd.Context(), source)
		sp.Stop()
		if err != nil {
			return err
		}
		logger.Debug("contract synced", "network", cfg.Network, "address", addr.Hex(), "source", cfg.DeploymentsURL)
		fmt.Println(ui.Success(fmt.Sprintf("%s on %s is %s", deployments.ContractName, ui.ChainName(cfg.Network), ui.Addr(addr.Hex()))))
		return nil
	},
}

func init() {
	configShowCmd.Flags().StringVarP(&configOutputFlag, "output", "o", "table", "output format: table, json or yaml")
	configRPCCmd.AddCommand(configRPCAddCmd, configRPCRemoveCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd, configRPCCmd, configSyncCmd)
}
