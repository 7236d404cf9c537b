package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
	"github.com/alchemy-engine/alchemy/internal/core/events/bus"
	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/scene"
)

const (
	EventSceneSaved   = "scene.saved"
	EventSceneLoaded  = "scene.loaded"
	EventSceneDeleted = "scene.deleted"

	eventSource = "storage.service"
)

// Service saves and loads scenes through a Store. Scenes are sealed before
// they reach the store and verified when they come back.
type Service struct {
	store    Store
	resolver binary.AssetResolver
	registry *scene.Registry
	logger   log.Log
	events   bus.EventBus
}

type ServiceOption func(*Service)

func WithRegistry(r *scene.Registry) ServiceOption {
	return func(s *Service) { s.registry = r }
}

func WithLogger(l log.Log) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithEventBus(b bus.EventBus) ServiceOption {
	return func(s *Service) { s.events = b }
}

// NewService resolves asset references of loaded scenes through resolver,
// usually the application's *asset.Cache.
func NewService(store Store, resolver binary.AssetResolver, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		resolver: resolver,
		registry: scene.DefaultRegistry(),
		logger:   log.Provide(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("storage")
	return s
}

func (s *Service) Store() Store {
	return s.store
}

// SaveScene stores s under its name, replacing any previous version.
func (s *Service) SaveScene(ctx context.Context, sc *scene.Scene) error {
	if err := ValidateName(sc.Name()); err != nil {
		return err
	}

	start := time.Now()
	data := Seal(scene.Marshal(sc))
	if err := s.store.Put(ctx, sc.Name(), data); err != nil {
		s.logger.Error("save scene failed", log.String("scene", sc.Name()), log.Error(err))
		return fmt.Errorf("save scene %q: %w", sc.Name(), err)
	}

	s.logger.Info("scene saved",
		log.String("scene", sc.Name()),
		log.Int("entities", sc.Len()),
		log.Int("bytes", len(data)),
		log.Duration("took", time.Since(start)))
	s.publish(EventSceneSaved, sc.Name())
	return nil
}

// LoadScene reads, verifies and decodes the scene stored under name. Asset
// references are resolved while decoding, so this may block on asset loads.
func (s *Service) LoadScene(ctx context.Context, name string) (*scene.Scene, error) {
	payload, err := s.getPayload(ctx, name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sc, err := scene.Unmarshal(ctx, payload, s.resolver, scene.WithRegistry(s.registry))
	if err != nil {
		s.logger.Error("decode scene failed", log.String("scene", name), log.Error(err))
		return nil, fmt.Errorf("load scene %q: %w", name, err)
	}

	s.logger.Info("scene loaded",
		log.String("scene", name),
		log.Int("entities", sc.Len()),
		log.Duration("took", time.Since(start)))
	s.publish(EventSceneLoaded, name)
	return sc, nil
}

func (s *Service) ListScenes(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

func (s *Service) DeleteScene(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete scene %q: %w", name, err)
	}
	s.logger.Info("scene deleted", log.String("scene", name))
	s.publish(EventSceneDeleted, name)
	return nil
}

// PutRaw stores an already sealed scene after checking its envelope and field
// structure. Asset references are not resolved.
func (s *Service) PutRaw(ctx context.Context, name string, sealed []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	payload, err := Open(sealed)
	if err != nil {
		return err
	}
	if _, err := binary.NewReader(ctx, payload, nil); err != nil {
		return err
	}
	if err := s.store.Put(ctx, name, sealed); err != nil {
		return fmt.Errorf("put scene %q: %w", name, err)
	}
	s.logger.Debug("raw scene stored", log.String("scene", name), log.Int("bytes", len(sealed)))
	s.publish(EventSceneSaved, name)
	return nil
}

// GetRaw returns the sealed bytes stored under name after verifying them.
func (s *Service) GetRaw(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, err := Open(data); err != nil {
		return nil, fmt.Errorf("scene %q: %w", name, err)
	}
	return data, nil
}

func (s *Service) getPayload(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	payload, err := Open(data)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", name, err)
	}
	return payload, nil
}

func (s *Service) publish(eventType, name string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(bus.NewEvent(eventType, eventSource, name)); err != nil {
		s.logger.Warn("scene event handler failed", log.String("event", eventType), log.Error(err))
	}
}
