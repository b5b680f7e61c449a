package sqlstore

import (
	"context"
	"fmt"
	"net/url"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-carrier-billing/core"
)

const registrationCacheKeyPrefix = "carrier-billing::operator_registration::v1"

// CachedRegistrationStore caches per-code registration reads in front of the
// relational store. Writes invalidate the cached entry so the next read
// refetches. Listing stays uncached; it runs once per dispatcher bootstrap.
type CachedRegistrationStore struct {
	base  core.RegistrationStore
	cache repositorycache.CacheService
}

func NewCachedRegistrationStore(
	base core.RegistrationStore,
	cacheService repositorycache.CacheService,
) (*CachedRegistrationStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base registration store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: registration cache service is required")
	}
	return &CachedRegistrationStore{base: base, cache: cacheService}, nil
}

// RegistrationCacheKey returns the deterministic cache key contract for
// registration reads: carrier-billing::operator_registration::v1::<code>
// with the code normalized and URL-path escaped.
func RegistrationCacheKey(code string) (string, error) {
	normalized := core.NormalizeOperatorCode(code)
	if err := core.ValidateOperatorCode(normalized); err != nil {
		return "", err
	}
	return registrationCacheKeyPrefix + "::" + url.PathEscape(normalized), nil
}

func (s *CachedRegistrationStore) FindActive(ctx context.Context) ([]core.OperatorRegistration, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached registration store is not configured")
	}
	return s.base.FindActive(ctx)
}

func (s *CachedRegistrationStore) Load(ctx context.Context, code string) (core.OperatorRegistration, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.OperatorRegistration{}, fmt.Errorf("sqlstore: cached registration store is not configured")
	}
	cacheKey, err := RegistrationCacheKey(code)
	if err != nil {
		return core.OperatorRegistration{}, err
	}
	registration, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.OperatorRegistration, error) {
		fetched, fetchErr := s.base.Load(ctx, core.NormalizeOperatorCode(code))
		if fetchErr != nil {
			return core.OperatorRegistration{}, fetchErr
		}
		return cloneRegistration(fetched), nil
	})
	if err != nil {
		return core.OperatorRegistration{}, err
	}
	return cloneRegistration(registration), nil
}

func (s *CachedRegistrationStore) Update(ctx context.Context, code string, update core.RegistrationUpdate) (core.OperatorRegistration, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.OperatorRegistration{}, fmt.Errorf("sqlstore: cached registration store is not configured")
	}
	updated, err := s.base.Update(ctx, code, update)
	if err != nil {
		return core.OperatorRegistration{}, err
	}
	cacheKey, err := RegistrationCacheKey(code)
	if err != nil {
		return core.OperatorRegistration{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.OperatorRegistration{}, err
	}
	return updated, nil
}

func cloneRegistration(registration core.OperatorRegistration) core.OperatorRegistration {
	cloned := registration
	if registration.Config != nil {
		config := make(map[string]any, len(registration.Config))
		for key, value := range registration.Config {
			config[key] = value
		}
		cloned.Config = config
	}
	if registration.LastHealthCheckAt != nil {
		checked := *registration.LastHealthCheckAt
		cloned.LastHealthCheckAt = &checked
	}
	return cloned
}

var _ core.RegistrationStore = (*CachedRegistrationStore)(nil)
