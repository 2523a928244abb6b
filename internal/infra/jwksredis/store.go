package jwksredis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"veraauth/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "veraauth:jwks:"

// Store keeps cached JWKS documents in Redis, leaning on native key expiry
// instead of filtering on read. Deployments with several authority replicas
// share one cache this way instead of each warming its own.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

type entry struct {
	Document []byte    `json:"document"`
	Expiry   time.Time `json:"expiry"`
}

func New(addr, password string, db int) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: client, now: time.Now}, nil
}

func NewWithClient(client *redis.Client, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{client: client, now: now}
}

func (s *Store) Find(ctx context.Context, issuerURL string) (*domain.CachedJWKS, error) {
	payload, err := s.client.Get(ctx, keyPrefix+issuerURL).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var e entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return &domain.CachedJWKS{
		IssuerURL: issuerURL,
		Document:  e.Document,
		Expiry:    e.Expiry,
	}, nil
}

func (s *Store) Upsert(ctx context.Context, cached domain.CachedJWKS) error {
	ttl := cached.Expiry.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(entry{Document: cached.Document, Expiry: cached.Expiry})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+cached.IssuerURL, payload, ttl).Err()
}
