// Package channel holds the outbound transport adapters and the narrow
// contract the delivery executor depends on.
package channel

import (
	"context"

	"github.com/serhatipek/choreline/internal/domain"
)

// Message is the rendered content handed to an adapter.
type Message struct {
	Subject string
	Body    string
}

// SendResponse stores provider call metadata for the attempt trail.
type SendResponse struct {
	ProviderMessageID string
}

// Adapter is one communication transport. Send is a single best-effort call;
// ordinary provider failures come back as a *ProviderError, never a panic.
type Adapter interface {
	Channel() domain.Channel
	IsConfigured() bool
	Send(ctx context.Context, to string, msg Message) (*SendResponse, error)
}

// Registry maps channels to their adapters so the executor selects transports
// via lookup instead of branching. Adding a channel means adding one adapter.
type Registry map[domain.Channel]Adapter

func NewRegistry(adapters ...Adapter) Registry {
	registry := make(Registry, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		registry[adapter.Channel()] = adapter
	}
	return registry
}

// ConfiguredStatus reports, per known channel, whether its adapter is present
// and carries the minimum credentials to send.
func (r Registry) ConfiguredStatus() map[domain.Channel]bool {
	status := make(map[domain.Channel]bool, len(domain.AllChannels()))
	for _, ch := range domain.AllChannels() {
		adapter, ok := r[ch]
		status[ch] = ok && adapter.IsConfigured()
	}
	return status
}
