// Package app holds the long-lived components of a running Alchemy process.
package app

import (
	"errors"

	"github.com/alchemy-engine/alchemy/internal/config"
	"github.com/alchemy-engine/alchemy/internal/core/asset"
	"github.com/alchemy-engine/alchemy/internal/core/asset/sound"
	"github.com/alchemy-engine/alchemy/internal/core/events/bus"
	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

// Runtime aggregates the components built from a Config.
type Runtime struct {
	Config  config.Config
	Logger  log.Log
	Events  bus.EventBus
	Output  *sound.Output
	Cache   *asset.Cache
	Store   storage.Store
	Service *storage.Service
}

func NewRuntime(
	cfg config.Config,
	logger log.Log,
	events bus.EventBus,
	output *sound.Output,
	cache *asset.Cache,
	store storage.Store,
	service *storage.Service,
) *Runtime {
	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Events:  events,
		Output:  output,
		Cache:   cache,
		Store:   store,
		Service: service,
	}
}

// Close releases every cached asset, closes the store and flushes the logger.
func (r *Runtime) Close() error {
	err := errors.Join(r.Cache.Close(), r.Store.Close())
	r.Output.Clear()
	_ = r.Logger.Sync()
	return err
}
