package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	logx "nftbot/pkg/logx"
)

const defaultRedisPrefix = "nftbot:ledger"

type redisStore struct {
	client *redis.Client
	prefix string
}

type redisLedger struct {
	client *redis.Client
	key    string
}

func openRedis(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("redis dsn is required")
	}

	var opts *redis.Options
	if strings.Contains(dsn, "://") {
		o, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = o
	} else {
		opts = &redis.Options{Addr: dsn}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	log.Debug("redis ledger opened", logx.String("addr", opts.Addr), logx.String("prefix", prefix))
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) Ledger(kind Kind) (Ledger, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	if s.client == nil {
		return nil, ErrClosed
	}
	return &redisLedger{client: s.client, key: s.prefix + ":" + string(kind)}, nil
}

func (s *redisStore) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (l *redisLedger) Contains(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	return l.client.SIsMember(ctx, l.key, id).Result()
}

// Record relies on SADD being applied before the reply; durability beyond that
// is the server's appendfsync policy.
func (l *redisLedger) Record(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	return l.client.SAdd(ctx, l.key, id).Err()
}
