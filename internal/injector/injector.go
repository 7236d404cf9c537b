//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/alchemy-engine/alchemy/internal/app"
	"github.com/alchemy-engine/alchemy/internal/config"
)

func InitializeRuntime(ctx context.Context, cfg config.Config) (*app.Runtime, error) {
	wire.Build(RuntimeSet)
	return nil, nil
}
