package domain

import "strings"

// DefaultMaxPerHour caps sends per recipient per rolling hour when preferences
// carry no explicit limit.
const DefaultMaxPerHour = 10

// QuietHours is a recipient-configured window during which only urgent or
// explicitly bypassing notifications go out immediately. Start and End are
// times of day in "HH:MM"; Start > End denotes a window wrapping midnight.
type QuietHours struct {
	Enabled  bool
	Start    string
	End      string
	Timezone string
}

// Preferences holds a recipient's communication preferences. Owned by the
// recipient; the delivery engine only reads them.
type Preferences struct {
	Primary    Channel
	Fallbacks  []Channel
	QuietHours QuietHours
	MaxPerHour int
	Kinds      map[Kind]bool
}

// DefaultPreferences is what a recipient without stored preferences gets.
func DefaultPreferences() Preferences {
	return Preferences{
		Primary:    ChannelWhatsApp,
		Fallbacks:  []Channel{ChannelSMS, ChannelEmail},
		QuietHours: QuietHours{Enabled: false, Start: "22:00", End: "08:00"},
		MaxPerHour: DefaultMaxPerHour,
	}
}

// KindEnabled reports whether the recipient accepts notifications of the given
// kind. A nil map or a kind with no entry means enabled.
func (p Preferences) KindEnabled(kind Kind) bool {
	if p.Kinds == nil {
		return true
	}
	enabled, ok := p.Kinds[kind]
	if !ok {
		return true
	}
	return enabled
}

// Limit returns the per-hour cap, falling back to the default when unset.
func (p Preferences) Limit() int {
	if p.MaxPerHour <= 0 {
		return DefaultMaxPerHour
	}
	return p.MaxPerHour
}

// Location returns the IANA timezone name for quiet-hours arithmetic, empty
// when none is stored.
func (q QuietHours) Location() string {
	return strings.TrimSpace(q.Timezone)
}
