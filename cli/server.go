package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mobile-next/touchguide/actions"
	"github.com/mobile-next/touchguide/actions/devicekit"
	"github.com/mobile-next/touchguide/config"
	"github.com/mobile-next/touchguide/daemon"
	"github.com/mobile-next/touchguide/explorer"
	"github.com/mobile-next/touchguide/focus"
	"github.com/mobile-next/touchguide/server"
	"github.com/mobile-next/touchguide/utils"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server management commands",
	Long:  `Commands for managing the touchguide server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the touchguide server",
	Long:  `Starts the touchguide server. Pointer events are injected with touch.inject over /rpc or /ws.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if listenAddr != "" {
			cfg.Server.Listen = listenAddr
		}
		if cmd.Flags().Changed("cors") {
			cfg.Server.CORS = enableCORS
		}

		addr, err := server.NormalizeAddr(cfg.Server.Listen)
		if err != nil {
			return err
		}

		if isDaemon && !daemon.InChild() {
			// the child has no terminal, so report a busy port here
			if !utils.IsAddrAvailable(addr) {
				return fmt.Errorf("address %s is already in use", addr)
			}

			if _, err := daemon.Detach(); err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			fmt.Printf("Server daemon spawned, attempting to listen on %s\n", addr)
			return nil
		}

		registry, err := focus.NewRegistry(cfg.Focus.CacheSize)
		if err != nil {
			return err
		}

		executor, closeExecutor := newExecutor(cfg, registry)
		defer closeExecutor()

		srv := server.New(server.Options{
			Config:   cfg,
			Focus:    registry,
			Executor: executor,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.ListenAndServe(ctx, addr)
	},
}

// newExecutor picks how activations are performed.
func newExecutor(cfg config.Config, registry *focus.Registry) (explorer.ActionExecutor, func()) {
	if !cfg.DeviceKit.Enabled {
		return actions.LogExecutor{}, func() {}
	}

	client := devicekit.NewClient(cfg.DeviceKit.Host, cfg.DeviceKit.Port)
	if err := client.WaitForReady(cfg.DeviceKit.ActionTimeout); err != nil {
		utils.Warn("DeviceKit at %s:%d is not reachable yet: %v", cfg.DeviceKit.Host, cfg.DeviceKit.Port, err)
	}
	return actions.NewTapExecutor(registry, client), client.Close
}

var serverKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the daemonized touchguide server",
	Long:  `Asks the server on the configured address to shut down over JSON-RPC.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := listenAddr
		if addr == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			addr = cfg.Server.Listen
		}

		if err := daemon.Stop(cmd.Context(), addr); err != nil {
			return err
		}

		fmt.Printf("Server shutdown command sent successfully\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// add server subcommands
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverKillCmd)

	// server start flags
	serverStartCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (e.g., 'localhost:12100' or '0.0.0.0:13000')")
	serverStartCmd.Flags().BoolVar(&enableCORS, "cors", false, "Enable CORS support")
	serverStartCmd.Flags().BoolVarP(&isDaemon, "daemon", "d", false, "Run server in daemon mode (background)")

	// server kill flags
	serverKillCmd.Flags().StringVar(&listenAddr, "listen", "", "Address of server to kill (default: from configuration)")
}
