package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/greeter/internal/config"
	"github.com/Mohsinsiddi/greeter/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/greeter/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir      string
	cfg         *config.Config
	logger      *slog.Logger
	verbose     bool
	logLevel    string
	logFormat   string
	networkFlag string
	walletFlag  string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "greeter",
	Short: "Read and write a Greeter smart contract",
	Long: `greeter reads and writes the greeting stored in a Greeter contract.

Reads need only an RPC endpoint. Writes are signed by a local wallet whose
key lives in the OS keychain, after you approve access to its account.

  greeter wallet add dev --key <private-key>
  greeter greet fetch
  greeter greet set "Hello, world"
  greeter app`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if networkFlag != "" {
			cfg.Network = networkFlag
		}
		if walletFlag != "" {
			cfg.DefaultWallet = walletFlag
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger, err = newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

func init() {
	// GREETER_CONFIG_DIR env var sets the --config default.
	if envDir := os.Getenv("GREETER_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.SetVersionTemplate(ui.Banner(Version) + "\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.greeter)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	pf.StringVarP(&networkFlag, "network", "n", "", "network to use for this invocation")
	pf.StringVarP(&walletFlag, "wallet", "w", "", "wallet to use for this invocation")

	rootCmd.AddCommand(
		greetCmd,
		appCmd,
		walletCmd,
		networkCmd,
		configCmd,
	)
}
