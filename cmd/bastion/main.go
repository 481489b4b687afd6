package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bastionmc/bastion/internal/app"
)

var opts app.Options

var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Terminal client for the Bastion launcher daemon",
	Long: `Bastion is a terminal client for the Bastion launcher daemon. It mirrors
the daemon's event feed into live log, progress and telemetry views and
drives content search, install and removal for the selected instance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return app.Run(ctx, opts)
	},
}

func init() {
	rootCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "override config path (default ~/.config/bastion/config.toml)")
	rootCmd.Flags().StringVar(&opts.PrefsPath, "prefs", "", "override preferences path (default ~/.config/bastion/prefs.toml)")
	rootCmd.Flags().StringVar(&opts.InstanceID, "instance", "", "instance id to watch on startup")
	rootCmd.Flags().BoolVar(&opts.Headless, "headless", false, "run the sync core without the terminal UI")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "bastion: %v\n", err)
		os.Exit(1)
	}
}
