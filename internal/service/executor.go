package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/serhatipek/choreline/internal/channel"
	"github.com/serhatipek/choreline/internal/domain"
	"github.com/serhatipek/choreline/internal/observability"
	"github.com/serhatipek/choreline/internal/prefs"
	"go.uber.org/zap"
)

const defaultAttemptTimeout = 10 * time.Second

// Executor walks a request's resolved channel order, invoking adapters until
// one succeeds, and records the per-channel attempt trail.
type Executor struct {
	registry       channel.Registry
	gate           *Gate
	tracker        *Tracker
	metrics        *observability.Metrics
	logger         *zap.Logger
	attemptTimeout time.Duration
	now            func() time.Time
}

func NewExecutor(
	registry channel.Registry,
	gate *Gate,
	tracker *Tracker,
	attemptTimeout time.Duration,
	logger *zap.Logger,
) (*Executor, error) {
	if registry == nil {
		return nil, fmt.Errorf("channel registry is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		registry:       registry,
		gate:           gate,
		tracker:        tracker,
		logger:         logger,
		attemptTimeout: attemptTimeout,
		now:            time.Now,
	}, nil
}

func (e *Executor) SetMetrics(metrics *observability.Metrics) {
	if e == nil {
		return
	}
	e.metrics = metrics
}

// Deliver attempts the notification over its fallback chain. Unconfigured
// adapters and missing contact info are skipped with an unavailable attempt;
// provider failures fall through to the next channel; the first success
// short-circuits the rest. The rate limiter is charged exactly once per
// request regardless of how many channels were tried.
func (e *Executor) Deliver(
	ctx context.Context,
	notification domain.Notification,
	preferences domain.Preferences,
) domain.DeliveryResult {
	logger := observability.WithContextLogger(e.logger, ctx)
	order := prefs.ResolveChannelOrder(preferences, notification.ForceChannel)
	subject, body := domain.RenderMessage(notification)
	msg := channel.Message{Subject: subject, Body: body}

	result := domain.DeliveryResult{NotificationID: notification.ID}
	attempts := make([]domain.ChannelAttempt, 0, len(order))

	for _, ch := range order {
		adapter, registered := e.registry[ch]
		contact, hasContact := notification.Recipient.ContactFor(ch)

		if !registered || !adapter.IsConfigured() || !hasContact {
			attempts = append(attempts, domain.ChannelAttempt{
				Channel: ch,
				Error:   domain.ChannelUnavailableError,
				At:      e.now(),
			})
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
		sendStart := e.now()
		resp, err := adapter.Send(attemptCtx, contact, msg)
		cancel()
		if e.metrics != nil {
			e.metrics.ObserveSendDuration(channelLabel(ch), e.now().Sub(sendStart))
		}

		attempt := domain.ChannelAttempt{Channel: ch, At: e.now()}
		if err != nil {
			attempt.Error = err.Error()
			attempts = append(attempts, attempt)
			logger.Warn("channel send failed",
				zap.String("channel", ch.String()),
				zap.Error(err),
			)
			continue
		}

		attempt.Success = true
		if resp != nil {
			attempt.ProviderMessageID = resp.ProviderMessageID
		}
		attempts = append(attempts, attempt)

		result.Success = true
		result.Channel = ch
		break
	}

	result.Attempts = attempts
	result.DeliveredAt = e.now()
	if !result.Success {
		if len(attempts) > 0 {
			result.Channel = attempts[len(attempts)-1].Channel
		}
		result.Error = domain.AllChannelsFailedError
	}

	if err := e.gate.RecordSend(ctx, notification.Recipient.UserID); err != nil {
		e.logger.Warn("failed to charge rate limiter",
			zap.String("userId", notification.Recipient.UserID),
			zap.Error(err),
		)
	}

	trackingID := e.tracker.Record(notification.Recipient.UserID, result)

	if e.metrics != nil {
		label := channelLabel(result.Channel)
		if result.Success {
			e.metrics.IncDelivered(label)
		} else {
			e.metrics.IncFailed(label, failureReason(attempts))
		}
	}

	logger.Info("delivery finished",
		zap.String("trackingId", trackingID),
		zap.Bool("success", result.Success),
		zap.String("channel", result.Channel.String()),
		zap.Int("attempts", len(attempts)),
	)
	return result
}

func channelLabel(ch domain.Channel) string {
	if ch == "" {
		return "none"
	}
	return strings.ToLower(ch.String())
}

func failureReason(attempts []domain.ChannelAttempt) string {
	for _, attempt := range attempts {
		if attempt.Error != domain.ChannelUnavailableError {
			return "provider_failure"
		}
	}
	return "no_channel_available"
}
