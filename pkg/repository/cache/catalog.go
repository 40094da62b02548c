package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

const facilitiesKey = "catalog:facilities:active"

func templatesKey(facilityID int64) string {
	return fmt.Sprintf("catalog:facility:%d:templates:active", facilityID)
}

// Source is where catalog lists come from on a cache miss.
type Source interface {
	ActiveFacilities(ctx context.Context) ([]model.Facility, error)
	ActiveTemplates(ctx context.Context, facilityID int64) ([]model.Template, error)
}

// Catalog serves Source lists from redis. Redis failures fall through to the
// source.
type Catalog struct {
	cache  *Cache
	source Source
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCatalog(c *Cache, source Source, ttl time.Duration, logger zerolog.Logger) *Catalog {
	return &Catalog{
		cache:  c,
		source: source,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

func (c *Catalog) ActiveFacilities(ctx context.Context) ([]model.Facility, error) {
	return cached(ctx, c, facilitiesKey, func(ctx context.Context) ([]model.Facility, error) {
		return c.source.ActiveFacilities(ctx)
	})
}

func (c *Catalog) ActiveTemplates(ctx context.Context, facilityID int64) ([]model.Template, error) {
	return cached(ctx, c, templatesKey(facilityID), func(ctx context.Context) ([]model.Template, error) {
		return c.source.ActiveTemplates(ctx, facilityID)
	})
}

// InvalidateTemplates drops the cached template list of a facility.
func (c *Catalog) InvalidateTemplates(ctx context.Context, facilityID int64) error {
	return c.cache.Invalidate(ctx, templatesKey(facilityID))
}

func cached[T any](ctx context.Context, c *Catalog, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	var out []T
	found, err := c.cache.Get(ctx, key, &out)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	if found {
		return out, nil
	}

	out, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, out, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return out, nil
}
