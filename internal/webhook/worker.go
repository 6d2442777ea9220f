package webhook

import (
	"context"
	"time"
)

const (
	retryInterval = time.Second
	maxBackoff    = 10 * time.Minute
)

// Run delivers queued events until ctx is cancelled. Failed deliveries are
// retried after 1s, 2s, 4s... until MaxAttempts; pending retries are dropped
// on shutdown.
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	n.logger.Info("webhook worker started", "url", n.cfg.URL)

	var pending []*Job
	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				n.logger.Warn("webhook worker stopped with pending deliveries", "pending", len(pending))
			} else {
				n.logger.Info("webhook worker stopped")
			}
			return
		case job := <-n.jobs:
			pending = n.deliver(ctx, job, pending)
		case <-ticker.C:
			pending = n.processRetries(ctx, pending)
		}
	}
}

// backoff is 1s after the first failure, doubling up to maxBackoff
func backoff(attempts int) time.Duration {
	d := time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// processRetries delivers the jobs whose backoff has elapsed
func (n *Notifier) processRetries(ctx context.Context, pending []*Job) []*Job {
	now := n.now()
	var keep []*Job
	for _, job := range pending {
		if job.NextRetryAt.After(now) {
			keep = append(keep, job)
			continue
		}
		keep = n.deliver(ctx, job, keep)
	}
	return keep
}

// deliver sends job and appends it to pending when it should be retried
func (n *Notifier) deliver(ctx context.Context, job *Job, pending []*Job) []*Job {
	err := n.Send(ctx, job)
	if err == nil {
		n.logger.Debug("webhook delivered", "job_id", job.ID, "event_type", job.EventType, "attempts", job.Attempts+1)
		return pending
	}

	job.Attempts++
	job.LastError = err.Error()

	if job.Attempts >= n.cfg.MaxAttempts {
		n.logger.Warn("webhook job failed", "job_id", job.ID, "event_type", job.EventType, "error", job.LastError)
		return pending
	}

	job.NextRetryAt = n.now().Add(backoff(job.Attempts))
	n.logger.Info("webhook job scheduled for retry",
		"job_id", job.ID,
		"attempts", job.Attempts,
		"next_retry", job.NextRetryAt,
		"error", job.LastError,
	)
	return append(pending, job)
}
