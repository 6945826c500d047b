package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session exists for a platform.
var ErrNotFound = errors.New("no stored session for platform")

// Store persists fingerprints and playwright storage-state blobs per
// platform so a later scrape replays the exact login environment.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func fingerprintKey(platform string) string {
	return fmt.Sprintf("session:%s:fingerprint", platform)
}

func storageStateKey(platform string) string {
	return fmt.Sprintf("session:%s:storage_state", platform)
}

// SaveFingerprint stores the fingerprint captured from a live context.
func (s *Store) SaveFingerprint(ctx context.Context, platform string, fp Fingerprint) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("failed to marshal fingerprint: %w", err)
	}

	if err := s.client.Set(ctx, fingerprintKey(platform), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store fingerprint: %w", err)
	}
	return nil
}

// LoadFingerprint returns the stored fingerprint, or ErrNotFound.
func (s *Store) LoadFingerprint(ctx context.Context, platform string) (Fingerprint, error) {
	data, err := s.client.Get(ctx, fingerprintKey(platform)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Fingerprint{}, ErrNotFound
	}
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to load fingerprint: %w", err)
	}

	var fp Fingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		return Fingerprint{}, fmt.Errorf("failed to unmarshal fingerprint: %w", err)
	}
	return fp, nil
}

// SaveStorageState stores the serialized cookie/local-storage snapshot.
func (s *Store) SaveStorageState(ctx context.Context, platform string, state []byte) error {
	if err := s.client.Set(ctx, storageStateKey(platform), state, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store storage state: %w", err)
	}
	return nil
}

// LoadStorageState returns the stored snapshot, or ErrNotFound.
func (s *Store) LoadStorageState(ctx context.Context, platform string) ([]byte, error) {
	data, err := s.client.Get(ctx, storageStateKey(platform)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load storage state: %w", err)
	}
	return data, nil
}
