package cli

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/retrocausal/pkg/config"
	"github.com/matzehuels/retrocausal/pkg/feed"
)

func TestFeedFlagsApply(t *testing.T) {
	var flags feedFlags
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--file", "trades.ndjson",
		"--interval", "1s",
		"--redis", "localhost:6379",
	}))

	cfg := config.Default()
	cfg.Feed.URL = "http://example.com/{token}"
	flags.apply(cmd, cfg)

	assert.Equal(t, "trades.ndjson", cfg.Feed.File)
	assert.Equal(t, time.Second, cfg.Feed.Interval.Duration)
	assert.Equal(t, "localhost:6379", cfg.Feed.RedisAddr)
	assert.Equal(t, "http://example.com/{token}", cfg.Feed.URL, "unset flags keep the config value")
	assert.Equal(t, config.Default().Feed.RedisChannel, cfg.Feed.RedisChannel)
	assert.False(t, cfg.Feed.Loop)
}

func TestBuildSources(t *testing.T) {
	logger := log.New(io.Discard)

	none := buildSources(config.Default(), logger, nil)
	assert.Empty(t, none.list)
	assert.NoError(t, none.Close())

	cfg := config.Default()
	cfg.Feed.File = "trades.ndjson"
	cfg.Feed.Loop = true
	cfg.Feed.URL = "http://example.com/trades/{token}"
	cfg.Feed.RedisAddr = "localhost:6379"
	token := func() string { return testMint }

	srcs := buildSources(cfg, logger, token)
	defer srcs.Close()
	require.Len(t, srcs.list, 3)

	file, ok := srcs.list[0].(*feed.FileSource)
	require.True(t, ok)
	assert.True(t, file.Loop)
	assert.True(t, file.Restamp)

	httpSrc, ok := srcs.list[1].(*feed.HTTPSource)
	require.True(t, ok)
	assert.Equal(t, testMint, httpSrc.Token())
	assert.Equal(t, cfg.Feed.PollInterval.Duration, httpSrc.Interval)

	redisSrc, ok := srcs.list[2].(*feed.RedisSource)
	require.True(t, ok)
	assert.Equal(t, cfg.Feed.RedisChannel, redisSrc.Channel)
	assert.NotNil(t, srcs.redis)
}
