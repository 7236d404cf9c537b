package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alchemy-engine/alchemy/internal/config"
	"github.com/alchemy-engine/alchemy/internal/core/asset"
	"github.com/alchemy-engine/alchemy/internal/core/scene"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
	"github.com/alchemy-engine/alchemy/internal/injector"
)

func (c *CLI) verifyCommand() *cobra.Command {
	var assetsDir string

	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Check a sealed scene and decode it against an asset directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			payload, err := storage.Open(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			cfg := config.Default()
			loader := injector.ProvideLoader(os.DirFS(assetsDir), injector.ProvideOutput(cfg))
			cache := asset.NewCache(loader, asset.WithLogger(c.logger()))
			defer cache.Close()

			sc, err := scene.Unmarshal(cmd.Context(), payload, cache)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			stats := cache.Stats()
			fmt.Fprintf(c.out, "scene %q ok: %d entities, %d assets loaded\n", sc.Name(), sc.Len(), stats.Loads)
			return nil
		},
	}

	cmd.Flags().StringVar(&assetsDir, "assets", ".", "asset root directory")
	return cmd
}
