package domain

import "errors"

var (
	// ErrValidation marks caller mistakes in submitted data.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks lookups of unknown notifications or scheduled entries.
	ErrNotFound = errors.New("not found")
)

// AllChannelsFailedError is the terminal error text for a request whose every
// resolved channel was unavailable or failed.
const AllChannelsFailedError = "all delivery channels failed"

// ChannelUnavailableError marks a channel skipped because the adapter is not
// configured or the recipient lacks the required contact info.
const ChannelUnavailableError = "channel unavailable"
