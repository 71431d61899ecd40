package services

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/repository"
)

const (
	weeklyDigestLastSentPrefix = "weekly_digest_last_sent_at:"
	weeklyDigestInterval       = 7 * 24 * time.Hour
	notificationPollInterval   = 1 * time.Hour
)

type digestSource interface {
	ListDigestRecipients(ctx context.Context, since time.Time) ([]repository.DigestRecipient, error)
}

type mailEnqueuer interface {
	Enqueue(ctx context.Context, mailType, to string, payload interface{}) error
}

// NotificationScheduler queues a weekly progress digest for every learner who
// completed a quiz in the past week.
type NotificationScheduler struct {
	users    digestSource
	mail     mailEnqueuer
	redis    *redis.Client
	stopChan chan struct{}
}

func NewNotificationScheduler(users digestSource, mail mailEnqueuer, redisClient *redis.Client) *NotificationScheduler {
	return &NotificationScheduler{
		users:    users,
		mail:     mail,
		redis:    redisClient,
		stopChan: make(chan struct{}),
	}
}

func (s *NotificationScheduler) Start() {
	if s.users == nil || s.mail == nil {
		return
	}

	go s.loop(s.sendWeeklyDigests)

	log.Printf("Notification scheduler started")
}

func (s *NotificationScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *NotificationScheduler) loop(runFn func(ctx context.Context, now time.Time) int) {
	// Run on startup as well as by interval.
	runFn(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(notificationPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			runFn(context.Background(), time.Now().UTC())
		}
	}
}

// sendWeeklyDigests returns how many digests were queued.
func (s *NotificationScheduler) sendWeeklyDigests(ctx context.Context, now time.Time) int {
	recipients, err := s.users.ListDigestRecipients(ctx, now.Add(-weeklyDigestInterval))
	if err != nil {
		log.Printf("weekly digest: failed to list recipients: %v", err)
		return 0
	}

	queued := 0
	for _, recipient := range recipients {
		lastSent, err := s.redis.Get(ctx, weeklyDigestLastSentPrefix+recipient.ID.String()).Result()
		if err != nil && err != redis.Nil {
			log.Printf("weekly digest: failed to read last sent at for user %s: %v", recipient.ID, err)
			continue
		}
		if !shouldSendByLastSent(lastSent, weeklyDigestInterval, now) {
			continue
		}

		payload := models.WeeklyDigestMail{
			Name:         recipient.Name,
			QuizCount:    recipient.QuizCount,
			AverageScore: int(math.Round(recipient.AverageScore)),
		}
		if err := s.mail.Enqueue(ctx, models.MailWeeklyDigest, recipient.Email, payload); err != nil {
			log.Printf("weekly digest: failed to queue for user %s: %v", recipient.ID, err)
			continue
		}
		queued++

		if err := s.markSent(ctx, recipient.ID, now); err != nil {
			log.Printf("weekly digest: failed to persist last sent at for user %s: %v", recipient.ID, err)
		}
	}
	return queued
}

func (s *NotificationScheduler) markSent(ctx context.Context, userID uuid.UUID, now time.Time) error {
	return s.redis.Set(ctx, weeklyDigestLastSentPrefix+userID.String(), now.Format(time.RFC3339), 2*weeklyDigestInterval).Err()
}

func shouldSendByLastSent(lastSentRaw string, minInterval time.Duration, now time.Time) bool {
	if lastSentRaw == "" {
		return true
	}

	lastSentAt, err := time.Parse(time.RFC3339, lastSentRaw)
	if err != nil {
		return true
	}

	return now.Sub(lastSentAt) >= minInterval
}
