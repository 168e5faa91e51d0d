package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sessions only need to outlive a conversation; the TTL is a safety net
// against abandoned chats, not a contract.
const redisSessionTTL = 7 * 24 * time.Hour

// RedisStore keeps sessions in Redis so multiple bot instances can resume the
// same conversation. State is serialized losslessly as JSON: user identity,
// cursor and the answer map.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "sess:"}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "sess:"}
}

func (s *RedisStore) key(kind Kind, chatID int64) string {
	return s.prefix + string(kind) + ":" + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) GetSurvey(ctx context.Context, chatID int64) (*Survey, error) {
	data, err := s.client.Get(ctx, s.key(KindSurvey, chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get survey session: %w", err)
	}
	var sess Survey
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal survey session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) PutSurvey(ctx context.Context, chatID int64, sess *Survey) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal survey session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(KindSurvey, chatID), data, redisSessionTTL).Err(); err != nil {
		return fmt.Errorf("put survey session: %w", err)
	}
	return nil
}

func (s *RedisStore) GetCase(ctx context.Context, chatID int64) (*Case, error) {
	data, err := s.client.Get(ctx, s.key(KindCase, chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get case session: %w", err)
	}
	var sess Case
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal case session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) PutCase(ctx context.Context, chatID int64, sess *Case) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal case session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(KindCase, chatID), data, redisSessionTTL).Err(); err != nil {
		return fmt.Errorf("put case session: %w", err)
	}
	return nil
}

func (s *RedisStore) Evict(ctx context.Context, chatID int64, kind Kind) error {
	if err := s.client.Del(ctx, s.key(kind, chatID)).Err(); err != nil {
		return fmt.Errorf("evict %s session: %w", kind, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
