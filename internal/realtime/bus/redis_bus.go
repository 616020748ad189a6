package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/sse"
)

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

type redisOptions struct {
	addr     string
	password string
	db       int
	channel  string
}

func loadRedisOptions() (redisOptions, error) {
	opts := redisOptions{
		addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		password: os.Getenv("REDIS_PASSWORD"),
		channel:  strings.TrimSpace(os.Getenv("REDIS_CHANNEL")),
	}
	if opts.addr == "" {
		return opts, fmt.Errorf("missing REDIS_ADDR")
	}
	if opts.channel == "" {
		opts.channel = "docsight.events"
	}
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid REDIS_DB %q", raw)
		}
		opts.db = n
	}
	return opts, nil
}

func NewRedisBus(log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts, err := loadRedisOptions()
	if err != nil {
		return nil, err
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.addr,
		Password:    opts.password,
		DB:          opts.db,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("service", "RedisEventBus"),
		rdb:     rdb,
		channel: opts.channel,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg sse.SSEMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", b.channel, err)
	}
	return nil
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	// Receive confirms the subscription before any publisher can race it.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	go func() {
		for m := range sub.Channel() {
			var msg sse.SSEMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.log.Warn("dropping undecodable event", "channel", b.channel, "error", err)
				continue
			}
			onMsg(msg)
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	return b.rdb.Close()
}
