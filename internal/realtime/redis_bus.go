package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dharsanguruparan/TalentFlow/internal/logger"
)

const defaultRedisChannel = "talentflow:changes"

// RedisOptions configures NewRedisBus.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisBus publishes every table's changes on one pub/sub channel;
// subscribers filter by table locally.
type RedisBus struct {
	client  *goredis.Client
	channel string
	log     *logger.Logger
}

// NewRedisBus connects and pings Redis.
func NewRedisBus(ctx context.Context, log *logger.Logger, opts RedisOptions) (*RedisBus, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address required")
	}
	if opts.Channel == "" {
		opts.Channel = defaultRedisChannel
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &RedisBus{client: client, channel: opts.Channel, log: log.With("service", "RedisChangeBus")}, nil
}

func (b *RedisBus) Publish(ctx context.Context, change Change) error {
	raw, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	return b.client.Publish(ctx, b.channel, raw).Err()
}

// Subscribe returns once Redis confirms the subscription; delivery runs on
// its own goroutine until ctx is cancelled.
func (b *RedisBus) Subscribe(ctx context.Context, table string, fn func(Change)) error {
	if fn == nil {
		return errors.New("subscribe: nil callback")
	}
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	go b.deliver(ctx, ps, table, fn)
	return nil
}

func (b *RedisBus) deliver(ctx context.Context, ps *goredis.PubSub, table string, fn func(Change)) {
	defer ps.Close()
	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			change, err := decodeChange(msg.Payload)
			if err != nil {
				b.log.Warn("dropping malformed change", "channel", b.channel, "error", err)
				continue
			}
			if matchesTable(table, change.Table) {
				fn(change)
			}
		}
	}
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

func decodeChange(payload string) (Change, error) {
	var c Change
	err := json.Unmarshal([]byte(payload), &c)
	return c, err
}

func matchesTable(want, got string) bool {
	return want == "*" || want == got
}
