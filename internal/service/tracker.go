package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/serhatipek/choreline/internal/domain"
)

// StatsWindow selects the aggregation period for delivery statistics.
type StatsWindow string

const (
	WindowHour StatsWindow = "hour"
	WindowDay  StatsWindow = "day"
	WindowWeek StatsWindow = "week"
)

func ParseStatsWindow(s string) (StatsWindow, error) {
	w := StatsWindow(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case WindowHour, WindowDay, WindowWeek:
		return w, nil
	}
	return "", fmt.Errorf("%w: invalid stats window %q", domain.ErrValidation, s)
}

func (w StatsWindow) Duration() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// Stats aggregates delivery outcomes over one window.
type Stats struct {
	Total       int
	Successful  int
	Failed      int
	ByChannel   map[domain.Channel]int
	AvgAttempts float64
}

// trackerRetention bounds memory: entries older than the widest stats window
// can never be queried again and are pruned on write.
const trackerRetention = 7 * 24 * time.Hour

type trackedResult struct {
	userID string
	result domain.DeliveryResult
}

// Tracker records every finalized delivery result and answers windowed
// aggregate queries. Append-only; results are never updated in place.
type Tracker struct {
	mu      sync.RWMutex
	results map[string]trackedResult
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		results: make(map[string]trackedResult),
		now:     time.Now,
	}
}

// Record stores a finalized result and returns its tracking id.
func (t *Tracker) Record(userID string, result domain.DeliveryResult) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-trackerRetention)
	for id, tracked := range t.results {
		if tracked.result.DeliveredAt.Before(cutoff) {
			delete(t.results, id)
		}
	}

	trackingID := fmt.Sprintf("%s-%d", userID, now.UnixNano())
	t.results[trackingID] = trackedResult{userID: userID, result: result}
	return trackingID
}

// Stats aggregates results delivered after now minus the window.
func (t *Tracker) Stats(window StatsWindow) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := t.now().Add(-window.Duration())
	stats := Stats{ByChannel: make(map[domain.Channel]int)}
	totalAttempts := 0

	for _, tracked := range t.results {
		result := tracked.result
		if !result.DeliveredAt.After(cutoff) {
			continue
		}

		stats.Total++
		if result.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
		if result.Channel != "" {
			stats.ByChannel[result.Channel]++
		}
		totalAttempts += len(result.Attempts)
	}

	if stats.Total > 0 {
		stats.AvgAttempts = float64(totalAttempts) / float64(stats.Total)
	}
	return stats
}

// Size returns the number of tracked results currently retained.
func (t *Tracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.results)
}
