package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/retrocausal/pkg/cache"
	"github.com/matzehuels/retrocausal/pkg/config"
	"github.com/matzehuels/retrocausal/pkg/render"
)

func TestOpenCache(t *testing.T) {
	logger := log.New(io.Discard)

	c, done := openCache(config.Cache{Disabled: true}, logger)
	done()
	assert.IsType(t, cache.NullCache{}, c)

	c, done = openCache(config.Cache{Dir: t.TempDir()}, logger)
	done()
	assert.IsType(t, &cache.FileCache{}, c)

	c, done = openCache(config.Cache{RedisAddr: "localhost:6379"}, logger)
	done()
	assert.IsType(t, &cache.RedisCache{}, c)
}

func TestConvertCachedHit(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	store, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	svg := []byte("<svg/>")
	key := cache.ConvertKey(svg, string(render.FormatPNG), cfg.Render.Scale)
	require.NoError(t, store.Set(ctx, key, []byte("png"), 0))

	data, cached, err := convertCached(ctx, store, cfg, svg, render.FormatPNG, log.New(io.Discard), nil)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, []byte("png"), data)
}

func TestConvertCachedSVGPassThrough(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	var steps []string
	record := func(msg string) { steps = append(steps, msg) }

	svg := []byte("<svg/>")
	data, cached, err := convertCached(ctx, store, config.Default(), svg, render.FormatSVG, log.New(io.Discard), record)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, svg, data)
	assert.Equal(t, []string{"Checking cache...", "Converting to svg...", "Caching svg..."}, steps)

	// The result is stored for the next call.
	steps = nil
	_, cached, err = convertCached(ctx, store, config.Default(), svg, render.FormatSVG, log.New(io.Discard), record)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, []string{"Checking cache..."}, steps)
}
