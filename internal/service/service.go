package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/serhatipek/choreline/internal/channel"
	"github.com/serhatipek/choreline/internal/domain"
	"github.com/serhatipek/choreline/internal/observability"
	"github.com/serhatipek/choreline/internal/prefs"
	"github.com/serhatipek/choreline/internal/ratelimit"
	"github.com/serhatipek/choreline/internal/repository"
	"go.uber.org/zap"
)

// Config tunes one delivery service instance.
type Config struct {
	SweepInterval  time.Duration
	BulkBatchSize  int
	BulkPause      time.Duration
	AttemptTimeout time.Duration
}

// Status is the serviceStatus snapshot exposed to callers.
type Status struct {
	Channels           map[domain.Channel]bool
	QueueSize          int
	ActiveRateLimiters int
	TrackedResults     int
}

// Service is the notification delivery engine. All mutable state (rate
// windows, scheduled queues, tracked results) is owned by the instance and
// dies with it.
type Service struct {
	registry  channel.Registry
	store     prefs.Store
	gate      *Gate
	executor  *Executor
	tracker   *Tracker
	scheduler *Scheduler
	archive   repository.Archive
	metrics   *observability.Metrics
	logger    *zap.Logger

	bulkBatchSize int
	bulkPause     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(
	registry channel.Registry,
	store prefs.Store,
	counter ratelimit.Counter,
	archive repository.Archive,
	cfg Config,
	logger *zap.Logger,
) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("channel registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BulkBatchSize <= 0 {
		cfg.BulkBatchSize = defaultBulkBatchSize
	}
	if cfg.BulkPause <= 0 {
		cfg.BulkPause = defaultBulkPause
	}

	gate, err := NewGate(counter, logger)
	if err != nil {
		return nil, err
	}

	tracker := NewTracker()
	executor, err := NewExecutor(registry, gate, tracker, cfg.AttemptTimeout, logger)
	if err != nil {
		return nil, err
	}

	s := &Service{
		registry:      registry,
		store:         store,
		gate:          gate,
		executor:      executor,
		tracker:       tracker,
		archive:       archive,
		logger:        logger,
		bulkBatchSize: cfg.BulkBatchSize,
		bulkPause:     cfg.BulkPause,
		now:           time.Now,
		sleep:         sleepWithContext,
	}
	s.scheduler = NewScheduler(cfg.SweepInterval, s.redeliver, logger)

	return s, nil
}

// SetMetrics attaches Prometheus collectors after construction.
func (s *Service) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
	s.executor.SetMetrics(metrics)
}

// Submit accepts one notification and either delivers it immediately or
// defers it. Deferral is not a failure: the returned result reports a
// successful submission with ScheduledAt populated and no attempts.
func (s *Service) Submit(ctx context.Context, notification domain.Notification) (*domain.DeliveryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := notification.Validate(); err != nil {
		return nil, err
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now()
	}
	ctx = observability.WithNotificationID(ctx, notification.ID)

	preferences, err := prefs.Resolve(ctx, s.store, notification.Recipient.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preferences: %w", err)
	}

	if !preferences.KindEnabled(notification.Kind) {
		s.logger.Debug("notification kind disabled by recipient",
			zap.String("notificationId", notification.ID),
			zap.String("kind", notification.Kind.String()),
		)
		return &domain.DeliveryResult{
			NotificationID: notification.ID,
			Success:        true,
			DeliveredAt:    s.now(),
		}, nil
	}

	now := s.now()
	if notification.ScheduleAt != nil && notification.ScheduleAt.After(now) {
		return s.deferUntil(notification, *notification.ScheduleAt, "scheduled"), nil
	}

	sendNow, err := s.gate.ShouldSendNow(
		ctx,
		notification.Recipient.UserID,
		preferences,
		notification.Priority,
		notification.BypassQuietHours,
	)
	if err != nil {
		return nil, err
	}
	if !sendNow {
		return s.deferUntil(notification, s.gate.NextAvailableTime(preferences), "gated"), nil
	}

	result := s.executor.Deliver(ctx, notification, preferences)
	s.archiveResult(ctx, notification, result)
	return &result, nil
}

func (s *Service) deferUntil(notification domain.Notification, at time.Time, reason string) *domain.DeliveryResult {
	s.scheduler.Enqueue(notification.Deferred(at))
	if s.metrics != nil {
		s.metrics.IncDeferred(reason)
		s.metrics.SetScheduledQueueDepth(s.scheduler.Size())
	}

	s.logger.Info("notification deferred",
		zap.String("notificationId", notification.ID),
		zap.String("userId", notification.Recipient.UserID),
		zap.String("reason", reason),
		zap.Time("scheduledAt", at),
	)
	return &domain.DeliveryResult{
		NotificationID: notification.ID,
		Success:        true,
		ScheduledAt:    &at,
	}
}

// redeliver is the sweep callback: a due notification re-enters the immediate
// delivery path. Preferences are resolved fresh; a failing preference store
// falls back to defaults so the deferred message is not lost.
func (s *Service) redeliver(ctx context.Context, notification domain.Notification) {
	ctx = observability.WithNotificationID(ctx, notification.ID)
	preferences, err := prefs.Resolve(ctx, s.store, notification.Recipient.UserID)
	if err != nil {
		s.logger.Warn("preference lookup failed during sweep, using defaults",
			zap.String("notificationId", notification.ID),
			zap.Error(err),
		)
		preferences = domain.DefaultPreferences()
	}

	result := s.executor.Deliver(ctx, notification, preferences)
	s.archiveResult(ctx, notification, result)
	if s.metrics != nil {
		s.metrics.SetScheduledQueueDepth(s.scheduler.Size())
	}
}

func (s *Service) archiveResult(ctx context.Context, notification domain.Notification, result domain.DeliveryResult) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveResult(ctx, notification, result); err != nil {
		s.logger.Warn("failed to archive delivery result",
			zap.String("notificationId", notification.ID),
			zap.Error(err),
		)
	}
}

// Cancel removes a deferred notification before its sweep fires.
func (s *Service) Cancel(notificationID string) bool {
	removed := s.scheduler.Cancel(notificationID)
	if removed && s.metrics != nil {
		s.metrics.SetScheduledQueueDepth(s.scheduler.Size())
	}
	return removed
}

// Stats aggregates tracked delivery results over the window.
func (s *Service) Stats(window StatsWindow) Stats {
	return s.tracker.Stats(window)
}

// ServiceStatus reports channel configuration and internal state sizes.
func (s *Service) ServiceStatus(ctx context.Context) Status {
	return Status{
		Channels:           s.registry.ConfiguredStatus(),
		QueueSize:          s.scheduler.Size(),
		ActiveRateLimiters: s.gate.ActiveLimiters(ctx),
		TrackedResults:     s.tracker.Size(),
	}
}

// Sweep runs one scheduler pass; exposed for callers that drive time
// explicitly (tests, manual flushes).
func (s *Service) Sweep(ctx context.Context) {
	s.scheduler.Sweep(ctx)
	if s.metrics != nil {
		s.metrics.SetScheduledQueueDepth(s.scheduler.Size())
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	return s.scheduler.Start(ctx)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
