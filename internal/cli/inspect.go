package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var headerOnly bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the envelope header and field tree of a sealed scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			h, err := storage.Inspect(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(c.out, "version:  %d\nchecksum: %016x\npayload:  %d bytes\n", h.Version, h.Checksum, h.Size)
			if headerOnly {
				return nil
			}

			payload, err := storage.Open(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(c.out)
			return binary.Dump(c.out, payload)
		},
	}

	cmd.Flags().BoolVar(&headerOnly, "header", false, "print the envelope header only")
	return cmd
}
