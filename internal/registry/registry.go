// Package registry resolves field names to their stored definitions.
package registry

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/matter-service/internal/domain"
)

// FieldStore is the field schema lookup.
type FieldStore interface {
	GetByName(ctx context.Context, name string) (*domain.FieldDefinition, error)
	GetByID(ctx context.Context, id string) (*domain.FieldDefinition, error)
}

// FieldCache is an optional read-through cache in front of FieldStore.
type FieldCache interface {
	Get(ctx context.Context, key string) (*domain.FieldDefinition, error)
	Set(ctx context.Context, key string, def *domain.FieldDefinition) error
}

// Registry resolves field definitions. Definitions are immutable once created, so
// hits are served from the cache without revalidation.
type Registry struct {
	store  FieldStore
	cache  FieldCache
	logger *zap.Logger
}

// New builds a registry. cache may be nil.
func New(store FieldStore, cache FieldCache, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, cache: cache, logger: logger}
}

// Resolve returns the definition of the field called name, or UnknownFieldError.
func (r *Registry) Resolve(ctx context.Context, name string) (*domain.FieldDefinition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.UnknownFieldError{Name: name}
	}
	return r.lookup(ctx, "name:"+name, func() (*domain.FieldDefinition, error) {
		return r.store.GetByName(ctx, name)
	})
}

// ResolveID returns the definition with the given id, or UnknownFieldError.
func (r *Registry) ResolveID(ctx context.Context, id string) (*domain.FieldDefinition, error) {
	return r.lookup(ctx, "id:"+id, func() (*domain.FieldDefinition, error) {
		return r.store.GetByID(ctx, id)
	})
}

func (r *Registry) lookup(ctx context.Context, key string, load func() (*domain.FieldDefinition, error)) (*domain.FieldDefinition, error) {
	if r.cache != nil {
		def, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.Warn("field cache read failed", zap.String("key", key), zap.Error(err))
		} else if def != nil {
			return def, nil
		}
	}

	def, err := load()
	if err != nil {
		return nil, err
	}
	if _, err := domain.ParseFieldType(string(def.Type)); err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, def); err != nil {
			r.logger.Warn("field cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return def, nil
}
