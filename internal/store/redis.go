package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key the encoded document is stored under.
const DefaultRedisKey = "salafibot:config"

const redisTimeout = 5 * time.Second

// redisUpdateAttempts bounds how often Update retries after another writer
// changed the key between read and write.
const redisUpdateAttempts = 10

// ErrUpdateConflict is returned when Update keeps losing the race for the key.
var ErrUpdateConflict = errors.New("document changed concurrently")

// RedisSink stores the encoded document as a single string value, so several
// bot replicas can share one catalog. Update uses WATCH/MULTI so concurrent
// writers never overwrite each other's changes.
type RedisSink struct {
	client *redis.Client
	key    string
}

// OpenRedisSink connects using a redis:// URL and checks the connection.
func OpenRedisSink(url string) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisSink(client, DefaultRedisKey), nil
}

// NewRedisSink wraps an existing client.
func NewRedisSink(client *redis.Client, key string) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{client: client, key: key}
}

func (s *RedisSink) Load() (*Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return s.load(ctx, s.client)
}

// getter is satisfied by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisSink) load(ctx context.Context, c getter) (*Document, error) {
	data, err := c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", s.key, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse document %q: %w", s.key, err)
	}
	return doc, nil
}

func (s *RedisSink) Save(doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save document %q: %w", s.key, err)
	}
	return nil
}

func (s *RedisSink) Update(fn func(doc *Document) error) (*Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	var out *Document
	txf := func(tx *redis.Tx) error {
		doc, err := s.load(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		data, err := Encode(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		out = doc
		return nil
	}

	for attempt := 0; attempt < redisUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("update document %q: %w", s.key, ErrUpdateConflict)
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
