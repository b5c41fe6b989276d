package worker

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/leadbridge/internal/entity"
	"github.com/xavierca1/leadbridge/internal/infra/http/middleware"
	"github.com/xavierca1/leadbridge/internal/infra/queue"
)

// Sender redrives one stored lead through the same gated send path the
// submission pipeline uses.
type Sender interface {
	Send(ctx context.Context, lead *entity.Lead) error
}

type ConnectionChecker interface {
	ConnectedAccount(ctx context.Context) (string, error)
}

type RunStats struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// RetryWorker rescans locally persisted leads whose CRM delivery did
// not succeed and redrives them. Runs on a ticker and on operator
// demand; both paths share RunOnce.
type RetryWorker struct {
	repo   entity.DeliveryRepositoryInterface
	sender Sender
	conn   ConnectionChecker
	alerts queue.AlertProducerInterface

	window       time.Duration
	batchSize    int
	maxRetries   int
	attemptDelay time.Duration
	tickInterval time.Duration
}

func NewRetryWorker(repo entity.DeliveryRepositoryInterface, sender Sender, conn ConnectionChecker) *RetryWorker {
	return &RetryWorker{
		repo:         repo,
		sender:       sender,
		conn:         conn,
		window:       7 * 24 * time.Hour,
		batchSize:    10,
		maxRetries:   5,
		attemptDelay: 1 * time.Second, // courtesy to the CRM, not a backoff
		tickInterval: 15 * time.Minute,
	}
}

// WithAlerts wires the permanent-failure alert producer. Optional.
func (w *RetryWorker) WithAlerts(alerts queue.AlertProducerInterface) *RetryWorker {
	w.alerts = alerts
	return w
}

// WithSchedule overrides the default tick interval.
func (w *RetryWorker) WithSchedule(interval time.Duration) *RetryWorker {
	if interval > 0 {
		w.tickInterval = interval
	}
	return w
}

func (w *RetryWorker) Start(ctx context.Context) {
	log.Printf("🕒 lead retry worker started (every %s, batch %d)", w.tickInterval, w.batchSize)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ lead retry worker stopped")
			return
		case <-ticker.C:
			stats, err := w.RunOnce(ctx)
			if err != nil {
				log.Printf("❌ retry run failed: %v", err)
				continue
			}
			if stats.Processed > 0 {
				log.Printf("✅ retry run: %d processed, %d delivered, %d still failing",
					stats.Processed, stats.Successful, stats.Failed)
			}
		}
	}
}

// RunOnce selects retryable records and redrives them. Aborts the
// whole run with zero processed when the FUB account is not connected:
// every attempt would fail the same way.
func (w *RetryWorker) RunOnce(ctx context.Context) (RunStats, error) {
	var stats RunStats

	if _, err := w.conn.ConnectedAccount(ctx); err != nil {
		log.Printf("⚠️ retry run skipped: %v (0 processed)", err)
		return stats, nil
	}

	records, err := w.repo.FindRetryable(ctx, w.window, w.batchSize)
	if err != nil {
		return stats, err
	}

	for i, rec := range records {
		if i > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(w.attemptDelay):
			}
		}

		stats.Processed++
		if err := w.sender.Send(ctx, &rec.Lead); err != nil {
			stats.Failed++
			middleware.RecordRetry("failed")
			w.recordFailure(ctx, rec, err)
			continue
		}

		stats.Successful++
		middleware.RecordRetry("delivered")
		if err := w.repo.MarkSent(ctx, rec.ID, "delivered on retry"); err != nil {
			log.Printf("❌ failed to mark lead %s sent: %v", rec.ID, err)
		}
	}

	return stats, nil
}

func (w *RetryWorker) recordFailure(ctx context.Context, rec entity.DeliveryRecord, sendErr error) {
	status, count, err := w.repo.MarkFailed(ctx, rec.ID, truncate(sendErr.Error()), w.maxRetries)
	if err != nil {
		log.Printf("❌ failed to record retry failure for lead %s: %v", rec.ID, err)
		return
	}
	if status != entity.StatusPermanentlyFailed {
		return
	}

	log.Printf("⛔ lead %s permanently failed after %d retries", rec.ID, count)
	if w.alerts == nil {
		return
	}
	alert := queue.FailureAlert{
		LeadID:       rec.ID,
		Email:        rec.Lead.Email,
		RetryCount:   count,
		LastResponse: truncate(sendErr.Error()),
		FailedAt:     time.Now(),
	}
	if err := w.alerts.PublishPermanentFailure(ctx, alert); err != nil {
		// Alerting is best effort; the terminal status is already
		// durable and visible in the delivery log.
		log.Printf("⚠️ failed to publish failure alert for lead %s: %v", rec.ID, err)
	}
}

func truncate(s string) string {
	const max = 500
	if len(s) > max {
		return s[:max]
	}
	return s
}
