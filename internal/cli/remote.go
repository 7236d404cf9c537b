package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alchemy-engine/alchemy/sdk/go/client"
)

type remoteFlags struct {
	url      string
	token    string
	insecure bool
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "ws://127.0.0.1:8080/ws", "server URL (ws, wss or quic)")
	cmd.Flags().StringVar(&f.token, "token", "", "bearer token")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "skip TLS verification")
}

func (c *CLI) dial(cmd *cobra.Command, f *remoteFlags) (*client.Client, error) {
	opts := []client.Option{client.WithLogger(c.logger())}
	if f.token != "" {
		opts = append(opts, client.WithToken(f.token))
	}
	if f.insecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	return client.Dial(cmd.Context(), f.url, opts...)
}

func (c *CLI) pushCommand() *cobra.Command {
	var f remoteFlags
	cmd := &cobra.Command{
		Use:   "push NAME FILE",
		Short: "Upload a sealed scene file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			cl, err := c.dial(cmd, &f)
			if err != nil {
				return err
			}
			defer cl.Close()

			if err = cl.Put(cmd.Context(), args[0], data); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "pushed %s (%d bytes)\n", args[0], len(data))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (c *CLI) pullCommand() *cobra.Command {
	var (
		f      remoteFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "pull NAME",
		Short: "Download a sealed scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.dial(cmd, &f)
			if err != nil {
				return err
			}
			defer cl.Close()

			data, err := cl.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".scene"
			}
			if err = os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default NAME.scene)")
	return cmd
}

func (c *CLI) listCommand() *cobra.Command {
	var f remoteFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored scenes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := c.dial(cmd, &f)
			if err != nil {
				return err
			}
			defer cl.Close()

			names, err := cl.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(c.out, name)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
