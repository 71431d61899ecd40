package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sciencebindu-backend/internal/models"
)

// MailQueueKey is the Redis list drained by the worker pool.
const MailQueueKey = "mail_queue"

type MailQueue struct {
	redis *redis.Client
}

func NewMailQueue(redisClient *redis.Client) *MailQueue {
	return &MailQueue{redis: redisClient}
}

func (q *MailQueue) Enqueue(ctx context.Context, mailType, to string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}
	job := models.MailJob{
		ID:        uuid.New(),
		Type:      mailType,
		To:        to,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.redis.RPush(ctx, MailQueueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to queue %s mail: %w", mailType, err)
	}
	return nil
}
