package cli

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/retrocausal/pkg/config"
	"github.com/matzehuels/retrocausal/pkg/feed"
	"github.com/matzehuels/retrocausal/pkg/httputil"
)

// feedFlags are the source flags shared by watch and serve. Flags that are
// set override the config file.
type feedFlags struct {
	file     string
	loop     bool
	interval time.Duration
	url      string
	poll     time.Duration
	redis    string
	channel  string
	token    string
}

func (f *feedFlags) register(cmd *cobra.Command) {
	d := config.Default().Feed
	fs := cmd.Flags()
	fs.StringVar(&f.file, "file", "", "replay records from a JSON or NDJSON file")
	fs.BoolVar(&f.loop, "loop", false, "restart the replay file when it ends")
	fs.DurationVar(&f.interval, "interval", d.Interval.Duration, "pause between replayed records")
	fs.StringVar(&f.url, "url", "", "poll records from URL ({token} is replaced by the selected token)")
	fs.DurationVar(&f.poll, "poll", d.PollInterval.Duration, "poll interval for --url")
	fs.StringVar(&f.redis, "redis", "", "subscribe to records on a Redis server (host:port)")
	fs.StringVar(&f.channel, "channel", d.RedisChannel, "Redis pub/sub channel")
	fs.StringVar(&f.token, "token", "", "token address to select at start")
}

func (f *feedFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("file") {
		cfg.Feed.File = f.file
	}
	if fs.Changed("loop") {
		cfg.Feed.Loop = f.loop
	}
	if fs.Changed("interval") {
		cfg.Feed.Interval.Duration = f.interval
	}
	if fs.Changed("url") {
		cfg.Feed.URL = f.url
	}
	if fs.Changed("poll") {
		cfg.Feed.PollInterval.Duration = f.poll
	}
	if fs.Changed("redis") {
		cfg.Feed.RedisAddr = f.redis
	}
	if fs.Changed("channel") {
		cfg.Feed.RedisChannel = f.channel
	}
}

// sources holds the configured feeds and anything they need closed.
type sources struct {
	list  []feed.Source
	redis *redis.Client
}

func (s *sources) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// buildSources creates one source per configured feed. token reports the
// current selection for URL templating.
func buildSources(cfg *config.Config, logger *log.Logger, token func() string) *sources {
	s := &sources{}
	fc := cfg.Feed
	if fc.File != "" {
		s.list = append(s.list, &feed.FileSource{
			Path:     fc.File,
			Interval: fc.Interval.Duration,
			Loop:     fc.Loop,
			Restamp:  true,
			Logger:   logger,
		})
	}
	if fc.URL != "" {
		s.list = append(s.list, &feed.HTTPSource{
			URL:      fc.URL,
			Interval: fc.PollInterval.Duration,
			Client:   httputil.NewClient(httputil.WithHeaders(fc.Headers)),
			Logger:   logger,
			Token:    token,
		})
	}
	if fc.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: fc.RedisAddr})
		s.list = append(s.list, &feed.RedisSource{
			Client:  s.redis,
			Channel: fc.RedisChannel,
			Logger:  logger,
		})
	}
	return s
}
