package domain

import (
	"fmt"
	"strings"
)

// RenderMessage builds the subject and body a channel adapter sends for a
// notification. The payload is opaque to the rest of the engine; only the
// well-known keys below are read here.
//
// Payload keys: "chore", "assignee", "due", "points", "by", "period".
func RenderMessage(n Notification) (subject, body string) {
	chore := n.Payload["chore"]
	if chore == "" {
		chore = "a chore"
	}

	switch n.Kind {
	case KindAssigned:
		subject = "New chore assigned"
		body = fmt.Sprintf("You have been assigned %q", chore)
		if due := n.Payload["due"]; due != "" {
			body += ", due " + due
		}
	case KindReminder:
		subject = "Chore reminder"
		body = fmt.Sprintf("Reminder: %q is waiting for you", chore)
		if due := n.Payload["due"]; due != "" {
			body += ", due " + due
		}
	case KindCompleted:
		subject = "Chore completed"
		who := n.Payload["by"]
		if who == "" {
			who = "someone"
		}
		body = fmt.Sprintf("%s marked %q as done", who, chore)
	case KindApproved:
		subject = "Chore approved"
		body = fmt.Sprintf("%q was approved", chore)
		if points := n.Payload["points"]; points != "" {
			body += fmt.Sprintf(", you earned %s points", points)
		}
	case KindRejected:
		subject = "Chore needs another look"
		body = fmt.Sprintf("%q was sent back", chore)
	case KindDigest:
		period := n.Payload["period"]
		if period == "" {
			period = "weekly"
		}
		subject = fmt.Sprintf("Your %s chore digest", period)
		body = fmt.Sprintf("Here is your %s summary of household chores", period)
	default:
		subject = "Household update"
		body = fmt.Sprintf("There is an update on %q", chore)
	}

	if reason := strings.TrimSpace(n.Reason); reason != "" {
		body += ". " + reason
	}
	return subject, body
}
