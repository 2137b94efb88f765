package service

import (
	"context"
	"fmt"
	"time"

	"github.com/serhatipek/choreline/internal/domain"
	"github.com/serhatipek/choreline/internal/ratelimit"
	"go.uber.org/zap"
)

// minimalDeferral is how far out a request is pushed when it cannot go now
// but no quiet-hours window supplies a natural resume time.
const minimalDeferral = 5 * time.Minute

// Gate decides whether a request may be attempted now or must wait, combining
// the recipient's quiet hours with per-recipient rate limiting.
type Gate struct {
	counter ratelimit.Counter
	logger  *zap.Logger
	now     func() time.Time
}

func NewGate(counter ratelimit.Counter, logger *zap.Logger) (*Gate, error) {
	if counter == nil {
		return nil, fmt.Errorf("rate limit counter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gate{
		counter: counter,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// ShouldSendNow reports whether the request may be attempted immediately.
// Urgent priority and the bypass flag skip quiet hours but not the rate
// limiter; the per-hour cap holds for every priority.
func (g *Gate) ShouldSendNow(
	ctx context.Context,
	userID string,
	preferences domain.Preferences,
	priority domain.Priority,
	bypassQuietHours bool,
) (bool, error) {
	count, err := g.counter.Peek(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	if count >= preferences.Limit() {
		g.logger.Debug("rate limit reached",
			zap.String("userId", userID),
			zap.Int("count", count),
			zap.Int("limit", preferences.Limit()),
		)
		return false, nil
	}

	if priority == domain.PriorityUrgent || bypassQuietHours {
		return true, nil
	}

	if isWithinQuietHours(g.now(), preferences.QuietHours) {
		return false, nil
	}
	return true, nil
}

// NextAvailableTime computes when a deferred request becomes eligible: the
// end of the quiet-hours window (today or tomorrow), or a minimal delay when
// quiet hours are disabled and only the rate limiter blocked the send.
func (g *Gate) NextAvailableTime(preferences domain.Preferences) time.Time {
	now := g.now()
	quiet := preferences.QuietHours
	if !quiet.Enabled {
		return now.Add(minimalDeferral)
	}

	endH, endM, ok := parseClock(quiet.End)
	if !ok {
		return now.Add(minimalDeferral)
	}

	loc := quietHoursLocation(quiet, now)
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), endH, endM, 0, 0, loc)
	if !end.After(local) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// RecordSend charges the recipient's rolling-hour counter once.
func (g *Gate) RecordSend(ctx context.Context, userID string) error {
	return g.counter.Record(ctx, userID)
}

// ActiveLimiters returns how many recipients currently hold a live window.
func (g *Gate) ActiveLimiters(ctx context.Context) int {
	active, err := g.counter.Active(ctx)
	if err != nil {
		g.logger.Warn("failed to count active rate limiters", zap.Error(err))
		return 0
	}
	return active
}

// isWithinQuietHours reports whether now falls inside the window. Start > End
// denotes a window wrapping midnight (22:00-08:00). Times are compared in the
// recipient's stored timezone, falling back to the server's when absent or
// unknown.
func isWithinQuietHours(now time.Time, quiet domain.QuietHours) bool {
	if !quiet.Enabled {
		return false
	}

	startH, startM, okStart := parseClock(quiet.Start)
	endH, endM, okEnd := parseClock(quiet.End)
	if !okStart || !okEnd {
		return false
	}

	local := now.In(quietHoursLocation(quiet, now))
	minute := local.Hour()*60 + local.Minute()
	start := startH*60 + startM
	end := endH*60 + endM

	if start > end {
		return minute >= start || minute < end
	}
	return minute >= start && minute < end
}

func quietHoursLocation(quiet domain.QuietHours, now time.Time) *time.Location {
	name := quiet.Location()
	if name == "" {
		return now.Location()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return now.Location()
	}
	return loc
}

// parseClock parses a "HH:MM" time of day.
func parseClock(value string) (hour, minute int, ok bool) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, false
	}
	return parsed.Hour(), parsed.Minute(), true
}
