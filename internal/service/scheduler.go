package service

import (
	"context"
	"sync"
	"time"

	"github.com/serhatipek/choreline/internal/domain"
	"go.uber.org/zap"
)

const defaultSweepInterval = 30 * time.Second

// Scheduler holds deferred notifications keyed by recipient and periodically
// sweeps due entries back into immediate delivery. State is owned by the
// service instance that constructed it; nothing lives at package level.
type Scheduler struct {
	mu          sync.Mutex
	byRecipient map[string][]domain.Notification

	interval time.Duration
	deliver  func(ctx context.Context, n domain.Notification)
	logger   *zap.Logger
	now      func() time.Time
}

func NewScheduler(
	interval time.Duration,
	deliver func(ctx context.Context, n domain.Notification),
	logger *zap.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		byRecipient: make(map[string][]domain.Notification),
		interval:    interval,
		deliver:     deliver,
		logger:      logger,
		now:         time.Now,
	}
}

// Enqueue stores a deferred notification under its recipient's queue. The
// notification must carry a ScheduleAt.
func (s *Scheduler) Enqueue(notification domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := notification.Recipient.UserID
	s.byRecipient[userID] = append(s.byRecipient[userID], notification)
}

// Cancel removes a pending deferred notification before its sweep fires.
// Returns false when no queued entry carries the id.
func (s *Scheduler) Cancel(notificationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, queue := range s.byRecipient {
		for i, queued := range queue {
			if queued.ID != notificationID {
				continue
			}
			queue = append(queue[:i], queue[i+1:]...)
			if len(queue) == 0 {
				delete(s.byRecipient, userID)
			} else {
				s.byRecipient[userID] = queue
			}
			return true
		}
	}
	return false
}

// Size returns the total number of queued notifications across recipients.
func (s *Scheduler) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, queue := range s.byRecipient {
		total += len(queue)
	}
	return total
}

// Sweep removes every entry whose due time has passed and re-submits it for
// immediate delivery. Entries not yet due remain queued; running a sweep
// twice with no time passing re-examines but never re-delivers.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	due := s.collectDue(now)
	if len(due) == 0 {
		return
	}

	s.logger.Info("sweeping due notifications", zap.Int("count", len(due)))
	for _, notification := range due {
		// The stored send time is stripped so the notification re-enters
		// the immediate path instead of deferring again.
		notification.ScheduleAt = nil
		s.deliver(ctx, notification)
	}
}

func (s *Scheduler) collectDue(now time.Time) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.Notification
	for userID, queue := range s.byRecipient {
		remaining := queue[:0]
		for _, queued := range queue {
			if queued.ScheduleAt != nil && queued.ScheduleAt.After(now) {
				remaining = append(remaining, queued)
				continue
			}
			due = append(due, queued)
		}
		if len(remaining) == 0 {
			delete(s.byRecipient, userID)
		} else {
			s.byRecipient[userID] = remaining
		}
	}
	return due
}

// Start runs the sweep loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
