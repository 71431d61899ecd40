package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const finishLockTTL = 30 * time.Second

// Store keeps each user's active exam in Redis under exam:active:<user>.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get returns the active exam, or a fresh one in selecting-scope when none exists.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*Exam, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	exam := &Exam{}
	if err := json.Unmarshal(raw, exam); err != nil {
		return nil, fmt.Errorf("failed to decode exam: %w", err)
	}
	return exam, nil
}

// Save writes the exam and refreshes its TTL.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, exam *Exam) error {
	data, err := json.Marshal(exam)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), data, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

// ClaimFinish takes the per-user lock held while a finished attempt's result
// is written. ok is false when another request already holds it.
func (s *Store) ClaimFinish(ctx context.Context, userID uuid.UUID) (release func(), ok bool, err error) {
	key := "exam:finishing:" + userID.String()
	ok, err = s.client.SetNX(ctx, key, "1", finishLockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock exam: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { s.client.Del(context.Background(), key) }, true, nil
}

func (s *Store) key(userID uuid.UUID) string {
	return "exam:active:" + userID.String()
}
