package injector

import (
	"context"
	"io/fs"
	"os"

	"github.com/google/wire"
	"github.com/gopxl/beep"
	"github.com/redis/go-redis/v9"

	"github.com/alchemy-engine/alchemy/internal/app"
	"github.com/alchemy-engine/alchemy/internal/config"
	"github.com/alchemy-engine/alchemy/internal/core/asset"
	"github.com/alchemy-engine/alchemy/internal/core/asset/sound"
	"github.com/alchemy-engine/alchemy/internal/core/asset/texture"
	"github.com/alchemy-engine/alchemy/internal/core/events/bus"
	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

// RuntimeSet provides every component of an app.Runtime from a config.Config.
var RuntimeSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	bus.New,
	ProvideOutput,
	ProvideAssetFS,
	ProvideLoader,
	ProvideCache,
	ProvideStore,
	ProvideService,
	app.NewRuntime,
)

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return log.New(level, log.Options{Encoding: cfg.Log.Encoding}), nil
}

func ProvideOutput(cfg config.Config) *sound.Output {
	return sound.NewOutput(beep.SampleRate(cfg.Audio.SampleRate))
}

func ProvideAssetFS(cfg config.Config) fs.FS {
	return os.DirFS(cfg.Assets.Root)
}

// ProvideLoader dispatches image extensions to the texture loader and audio
// extensions to the sound loader.
func ProvideLoader(fsys fs.FS, out *sound.Output) *asset.Mux {
	mux := asset.NewMux()
	mux.Handle(texture.NewLoader(fsys), texture.Extensions...)
	mux.Handle(sound.NewLoader(fsys, out), sound.Extensions...)
	return mux
}

func ProvideCache(cfg config.Config, loader *asset.Mux, logger log.Log, events bus.EventBus) *asset.Cache {
	return asset.NewCache(loader,
		asset.WithLogger(logger),
		asset.WithEventBus(events),
		asset.WithShards(cfg.Assets.Shards),
		asset.WithPreloadWorkers(cfg.Assets.PreloadWorkers),
	)
}

// ProvideStore opens the configured driver. The store is closed by
// app.Runtime.Close.
func ProvideStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	case config.DriverRedis:
		r := cfg.Storage.Redis
		return storage.DialRedis(ctx, redis.Options{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
		}, r.Prefix)
	default:
		return storage.NewFileStore(cfg.Storage.Dir)
	}
}

func ProvideService(store storage.Store, cache *asset.Cache, logger log.Log, events bus.EventBus) *storage.Service {
	return storage.NewService(store, cache,
		storage.WithLogger(logger),
		storage.WithEventBus(events),
	)
}
