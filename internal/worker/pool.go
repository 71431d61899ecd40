package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sciencebindu-backend/internal/metrics"
	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/services"
)

const maxMailAttempts = 3

type mailDeliverer interface {
	Deliver(job models.MailJob) error
}

// Pool drains the mail queue. Each job is locked while in flight so a
// re-queued duplicate is never delivered twice concurrently.
type Pool struct {
	redis       *redis.Client
	mailer      mailDeliverer
	workerCount int
	popTimeout  time.Duration
	after       func(d time.Duration, f func())

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(redisClient *redis.Client, mailer mailDeliverer, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		mailer:      mailer,
		workerCount: workerCount,
		popTimeout:  30 * time.Second,
		after:       func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Stop interrupts pending pops and waits for in-flight deliveries.
func (p *Pool) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	for ctx.Err() == nil {
		entry, err := p.redis.BLPop(ctx, p.popTimeout, services.MailQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Mail worker %d: pop failed: %v", id, err)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
			continue
		}
		// BLPOP replies [key, value].
		p.process(context.Background(), id, entry[1])
	}
	log.Printf("Mail worker %d stopped", id)
}

// process handles one raw queue entry and reports whether it was delivered.
func (p *Pool) process(ctx context.Context, workerID int, raw string) bool {
	var job models.MailJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Printf("Worker %d: failed to parse mail job: %v", workerID, err)
		return false
	}

	lockKey := fmt.Sprintf("mail_lock:%s", job.ID.String())
	locked, err := p.redis.SetNX(ctx, lockKey, "1", 5*time.Minute).Result()
	if err != nil || !locked {
		return false
	}
	defer p.redis.Del(ctx, lockKey)

	log.Printf("Worker %d: delivering mail %s (type: %s)", workerID, job.ID, job.Type)

	if err := p.mailer.Deliver(job); err != nil {
		p.handleFailure(ctx, &job, err)
		return false
	}

	metrics.MailJobs.WithLabelValues(job.Type, "sent").Inc()
	return true
}

func (p *Pool) handleFailure(ctx context.Context, job *models.MailJob, err error) {
	job.RetryCount++

	if job.RetryCount >= maxMailAttempts {
		log.Printf("Mail %s failed permanently: %v", job.ID, err)
		metrics.MailJobs.WithLabelValues(job.Type, "dropped").Inc()
		return
	}

	log.Printf("Mail %s failed (attempt %d): %v, retrying", job.ID, job.RetryCount, err)
	metrics.MailJobs.WithLabelValues(job.Type, "retried").Inc()

	jobBytes, _ := json.Marshal(job)
	backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
	p.after(backoff, func() {
		if err := p.redis.RPush(context.Background(), services.MailQueueKey, string(jobBytes)).Err(); err != nil {
			log.Printf("Mail %s: failed to re-queue: %v", job.ID, err)
		}
	})
}
