package domain

import "time"

// ChannelAttempt records one channel tried for one notification.
type ChannelAttempt struct {
	Channel           Channel
	Success           bool
	Error             string
	At                time.Time
	ProviderMessageID string
}

// DeliveryResult is the final, immutable outcome of one notification request.
// A deferred submission carries ScheduledAt and no attempts; the real result
// is produced when the scheduler re-submits the request.
type DeliveryResult struct {
	NotificationID string
	Success        bool
	Channel        Channel
	Attempts       []ChannelAttempt
	Error          string
	DeliveredAt    time.Time
	ScheduledAt    *time.Time
}

// AttemptedChannels returns the channels in the order they were tried.
func (r DeliveryResult) AttemptedChannels() []Channel {
	channels := make([]Channel, 0, len(r.Attempts))
	for _, attempt := range r.Attempts {
		channels = append(channels, attempt.Channel)
	}
	return channels
}
