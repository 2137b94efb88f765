package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel represents a communication transport used to reach a family member.
type Channel string

const (
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelSMS      Channel = "SMS"
	ChannelEmail    Channel = "EMAIL"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelWhatsApp, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// AllChannels lists every supported channel in a stable order.
func AllChannels() []Channel {
	return []Channel{ChannelWhatsApp, ChannelSMS, ChannelEmail}
}

// Kind represents what a notification is about.
type Kind string

const (
	KindAssigned  Kind = "ASSIGNED"
	KindReminder  Kind = "REMINDER"
	KindCompleted Kind = "COMPLETED"
	KindApproved  Kind = "APPROVED"
	KindRejected  Kind = "REJECTED"
	KindDigest    Kind = "DIGEST"
	KindUpdate    Kind = "UPDATE"
)

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case KindAssigned, KindReminder, KindCompleted, KindApproved, KindRejected, KindDigest, KindUpdate:
		return true
	}
	return false
}

func ParseKindFromString(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid kind %q", ErrValidation, s)
	}
	return k, nil
}

// Priority represents the message priority level.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ParsePriorityFromString(s string) (Priority, error) {
	pr := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !pr.IsValid() {
		return "", fmt.Errorf("%w: invalid priority %q", ErrValidation, s)
	}
	return pr, nil
}

// Recipient identifies a family member plus the contact details needed per channel.
type Recipient struct {
	UserID string
	Name   string
	Phone  string
	Email  string
}

// ContactFor returns the address used by the given channel and whether it is present.
func (r Recipient) ContactFor(channel Channel) (string, bool) {
	switch channel {
	case ChannelWhatsApp, ChannelSMS:
		phone := strings.TrimSpace(r.Phone)
		return phone, phone != ""
	case ChannelEmail:
		email := strings.TrimSpace(r.Email)
		return email, email != ""
	}
	return "", false
}

// Notification is one outbound delivery request. Immutable once accepted; a
// deferred copy carries an updated ScheduleAt.
type Notification struct {
	ID               string
	Recipient        Recipient
	Kind             Kind
	Priority         Priority
	Payload          map[string]string
	Reason           string
	ScheduleAt       *time.Time
	ForceChannel     *Channel
	BypassQuietHours bool
	CreatedAt        time.Time
}

func (n *Notification) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: notification is required", ErrValidation)
	}
	if strings.TrimSpace(n.Recipient.UserID) == "" {
		return fmt.Errorf("%w: recipient user id is required", ErrValidation)
	}
	if !n.Kind.IsValid() {
		return fmt.Errorf("%w: invalid kind %q", ErrValidation, n.Kind)
	}
	if !n.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, n.Priority)
	}
	if n.ForceChannel != nil && !n.ForceChannel.IsValid() {
		return fmt.Errorf("%w: invalid forced channel %q", ErrValidation, *n.ForceChannel)
	}
	return nil
}

// Deferred returns a copy of the notification carrying the given send time.
func (n Notification) Deferred(at time.Time) Notification {
	deferred := n
	deferred.ScheduleAt = &at
	return deferred
}
