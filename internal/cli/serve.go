package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alchemy-engine/alchemy/internal/injector"
	"github.com/alchemy-engine/alchemy/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var httpAddr, quicAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored scenes over HTTP, websockets and QUIC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.Server.HTTPAddr = httpAddr
			}
			if quicAddr != "" {
				cfg.Server.QUICAddr = quicAddr
			}

			ctx := cmd.Context()
			rt, err := injector.InitializeRuntime(ctx, cfg)
			if err != nil {
				return fmt.Errorf("init runtime: %w", err)
			}
			defer rt.Close()

			srv := server.New(rt)
			if err = srv.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "listening on %s\n", srv.Addr())
			if addr := srv.QUICAddr(); addr != nil {
				fmt.Fprintf(c.out, "quic on %s\n", addr)
			}

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
			defer cancel()
			return srv.Stop(stopCtx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "override server.http_addr")
	cmd.Flags().StringVar(&quicAddr, "quic", "", "override server.quic_addr")
	return cmd
}
