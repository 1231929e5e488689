package feed

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/observability"
)

// DefaultChannel is the pub/sub channel used when RedisSource.Channel is unset.
const DefaultChannel = "retrocausal:events"

// RedisSource subscribes to a pub/sub channel carrying one JSON record
// per message.
type RedisSource struct {
	Client  redis.UniversalClient
	Channel string
	Logger  *log.Logger
}

func (s *RedisSource) Name() string { return "redis" }

func (s *RedisSource) channel() string {
	if s.Channel == "" {
		return DefaultChannel
	}
	return s.Channel
}

// Run subscribes and stages messages until ctx ends.
func (s *RedisSource) Run(ctx context.Context, sink Sink) error {
	if s.Client == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "redis source has no client")
	}
	ps := s.Client.Subscribe(ctx, s.channel())
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "subscribe %s", s.channel())
	}
	logger := loggerOr(s.Logger)
	logger.Debug("subscribed", "channel", s.channel())

	hooks := observability.Feed()
	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			ev, err := event.ParseRecord([]byte(msg.Payload))
			if err != nil {
				hooks.OnPollError(ctx, s.Name(), err)
				logger.Debug("dropped message", "channel", msg.Channel, "err", err)
				continue
			}
			stage(ctx, s.Name(), sink, []event.Event{ev})
		}
	}
}

// Publish sends ev to channel in wire format.
func Publish(ctx context.Context, client redis.UniversalClient, channel string, ev event.Event) error {
	if !ev.Valid() {
		return errors.New(errors.ErrCodeInvalidEvent, "cannot publish invalid event")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	data, err := json.Marshal(event.NewRecord(ev))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode event")
	}
	if err := client.Publish(ctx, channel, data).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "publish %s", channel)
	}
	return nil
}
