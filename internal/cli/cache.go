package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/retrocausal/pkg/cache"
	"github.com/matzehuels/retrocausal/pkg/config"
	"github.com/matzehuels/retrocausal/pkg/render"
)

// openCache returns the artifact cache described by cfg. Failing to open
// it is never fatal: the render goes ahead uncached.
func openCache(cfg config.Cache, logger *log.Logger) (cache.Cache, func()) {
	if cfg.Disabled {
		return cache.NullCache{}, func() {}
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cache.NewRedisCache(client, ""), func() { client.Close() }
	}

	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = cache.DefaultDir(); err != nil {
			logger.Warn("Cache disabled", "err", err)
			return cache.NullCache{}, func() {}
		}
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		logger.Warn("Cache disabled", "dir", dir, "err", err)
		return cache.NullCache{}, func() {}
	}
	return fc, func() {}
}

// convertCached converts svg through the cache. Cache errors are logged and
// otherwise ignored. status, when set, is told which step is running.
func convertCached(ctx context.Context, c cache.Cache, cfg *config.Config, svg []byte, f render.Format, logger *log.Logger, status func(string)) ([]byte, bool, error) {
	if status == nil {
		status = func(string) {}
	}

	key := cache.ConvertKey(svg, string(f), cfg.Render.Scale)
	status("Checking cache...")
	if data, ok, err := c.Get(ctx, key); err != nil {
		logger.Warn("Cache read failed", "err", err)
	} else if ok {
		return data, true, nil
	}

	status(fmt.Sprintf("Converting to %s...", f))
	data, err := render.Convert(ctx, svg, f, cfg.Render.Scale)
	if err != nil {
		return nil, false, err
	}
	status(fmt.Sprintf("Caching %s...", f))
	if err := c.Set(ctx, key, data, cfg.Cache.TTL.Duration); err != nil {
		logger.Warn("Cache write failed", "err", err)
	}
	return data, false, nil
}
