package cmd

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/greeter/internal/metrics"
	"github.com/Mohsinsiddi/greeter/internal/ui"
	"github.com/Mohsinsiddi/greeter/internal/wallet"
)

var (
	appMetricsAddr string
	appYesFlag     bool
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Interactive greeter",
	Long: `Open the interactive greeter: type a greeting, press enter to set it on
chain and ctrl+f to read the stored value.

With --metrics-addr the session serves Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := cfg.MetricsAddr
		if cmd.Flags().Changed("metrics-addr") {
			addr = appMetricsAddr
		}
		var m *metrics.Metrics
		if addr != "" {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			m = metrics.New(reg)
			go func() {
				if err := metrics.Serve(ctx, addr, reg); err != nil {
					logger.Error("metrics server", "addr", addr, "err", err)
				}
			}()
			logger.Info("serving metrics", "addr", addr)
		}

		prompt := ui.NewApprovalPrompt()
		var approver wallet.Approver = prompt.Approve
		if appYesFlag {
			approver = nil
		}

		s, err := newSession(ctx, approver, m)
		if err != nil {
			return err
		}
		defer s.close()

		return ui.RunApp(ctx, s.flow, ui.AppInfo{
			Network:   s.network,
			Contract:  s.contract,
			Account:   s.account(),
			OpTimeout: cfg.ConfirmTimeoutDuration(),
		}, prompt)
	},
}

func init() {
	appCmd.Flags().StringVar(&appMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	appCmd.Flags().BoolVarP(&appYesFlag, "yes", "y", false, "approve account access without asking")
}
