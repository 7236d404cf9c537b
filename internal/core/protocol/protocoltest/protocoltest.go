// Package protocoltest provides a scene service and sealed scenes for
// exercising transports in tests.
package protocoltest

import (
	"github.com/alchemy-engine/alchemy/internal/core/asset"
	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/scene"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

// NewService returns a service over an empty in-memory store. Scenes served
// through it must not reference assets.
func NewService() *storage.Service {
	cache := asset.NewCache(asset.NewMux(), asset.WithLogger(log.NewNop()))
	return storage.NewService(storage.NewMemoryStore(), cache, storage.WithLogger(log.NewNop()))
}

// SealedScene returns a sealed scene with a single positioned entity.
func SealedScene(name string) []byte {
	hero := scene.NewEntity("hero")
	hero.AddComponent(scene.NewTransformComponent(3, 4))

	s := scene.New(name)
	s.Add(hero)
	return storage.Seal(scene.Marshal(s))
}
