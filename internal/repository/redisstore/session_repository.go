// Package redisstore keeps conversation sessions in Redis so several API
// instances can share them.
package redisstore

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/conversation"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

type SessionRepository struct {
	client *redis.Client
}

var _ conversation.Store = &SessionRepository{}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// NewClient parses a redis:// URL, falling back to a bare address, and pings
// the server.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func key(id string) string {
	return keyPrefix + id
}

func idFromKey(k string) string {
	return strings.TrimPrefix(k, keyPrefix)
}

func encode(s *consultation.Session) ([]byte, error) {
	return json.Marshal(s)
}

func decode(raw []byte) (*consultation.Session, error) {
	var s consultation.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*consultation.Session, bool, error) {
	raw, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (r *SessionRepository) Put(ctx context.Context, s *consultation.Session) error {
	raw, err := encode(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(s.ID), raw, 0).Err()
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, key(id)).Err()
}

func (r *SessionRepository) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, idFromKey(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
