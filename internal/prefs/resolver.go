// Package prefs resolves a recipient's communication preferences into the
// ordered fallback chain the delivery executor walks.
package prefs

import (
	"context"

	"github.com/serhatipek/choreline/internal/domain"
)

// ResolveChannelOrder computes the ordered, de-duplicated list of channels to
// attempt. A forced channel always wins and yields a single-element list;
// otherwise the order is primary first, then fallbacks, first occurrence kept.
// Pure function, no failure modes.
func ResolveChannelOrder(preferences domain.Preferences, forced *domain.Channel) []domain.Channel {
	if forced != nil {
		return []domain.Channel{*forced}
	}

	order := make([]domain.Channel, 0, 1+len(preferences.Fallbacks))
	seen := make(map[domain.Channel]struct{}, 1+len(preferences.Fallbacks))

	appendUnique := func(ch domain.Channel) {
		if _, ok := seen[ch]; ok {
			return
		}
		seen[ch] = struct{}{}
		order = append(order, ch)
	}

	appendUnique(preferences.Primary)
	for _, ch := range preferences.Fallbacks {
		appendUnique(ch)
	}
	return order
}

// Store is the engine's read-only view of stored preferences. The chore/family
// data store behind it is not part of the delivery engine.
type Store interface {
	// Get returns the recipient's preferences and whether any were stored.
	Get(ctx context.Context, userID string) (domain.Preferences, bool, error)
}

// Resolve loads preferences from the store, substituting defaults when the
// recipient has none stored or the store is absent.
func Resolve(ctx context.Context, store Store, userID string) (domain.Preferences, error) {
	if store == nil {
		return domain.DefaultPreferences(), nil
	}
	preferences, ok, err := store.Get(ctx, userID)
	if err != nil {
		return domain.Preferences{}, err
	}
	if !ok {
		return domain.DefaultPreferences(), nil
	}
	return preferences, nil
}
