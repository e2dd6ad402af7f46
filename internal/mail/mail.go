// Package mail formats the two notification payloads spec.md §4.5
// touches (rank changes and host-run results) and hands them to an
// injected transport. Per spec.md §1's Non-goals, the mailer transport
// itself is out of scope: this package only builds the message and
// calls whatever Sender the caller wired up, the way internal/game's
// Message type separates "what the notification says" from how it
// reaches a player.
package mail

import (
	"fmt"
	"time"
)

// Notification is a single outgoing message, addressed by recipient
// user id, with a template-style Subject/Body pair mirroring
// internal/game.Message's content/arguments split.
type Notification struct {
	Recipient string
	Subject   string
	Body      string
	CreatedAt time.Time
}

// Sender is the injected transport. Its implementation (SMTP, a queue,
// a test spy) lives outside this package entirely.
type Sender interface {
	Send(Notification) error
}

// RankChangeNotification builds the notification spec.md §4.5 implies
// for a reliability rank transition: "drop to a visibly worse rank" is
// the scenario users actually care to be told about.
func RankChangeNotification(recipient string, gameID string, oldRank, newRank int, at time.Time) Notification {
	direction := "promoted"
	if newRank < oldRank {
		direction = "demoted"
	}

	return Notification{
		Recipient: recipient,
		Subject:   fmt.Sprintf("Reliability rank changed in game %s", gameID),
		Body:      fmt.Sprintf("Your reliability rank in game %s has been %s from %d to %d.", gameID, direction, oldRank, newRank),
		CreatedAt: at,
	}
}

// HostRunNotification builds the notification sent to a game's players
// once a host run (spec.md §4.4's HostAction) has completed and result
// files are available.
func HostRunNotification(recipient string, gameID string, turn int, at time.Time) Notification {
	return Notification{
		Recipient: recipient,
		Subject:   fmt.Sprintf("Turn %d results ready in game %s", turn, gameID),
		Body:      fmt.Sprintf("Turn %d has been hosted for game %s. Result files are available for download.", turn, gameID),
		CreatedAt: at,
	}
}

// Dispatcher sends a batch of notifications through Sender, logging
// nothing itself: transient send failures are spec.md §7's Transient
// kind and are the caller's responsibility to classify and log.
type Dispatcher struct {
	sender Sender
}

// NewDispatcher wraps a Sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// SendAll attempts every notification in order, collecting (not
// aborting on) individual failures so one bad address does not prevent
// the rest of a batch from being sent.
func (d *Dispatcher) SendAll(notifications []Notification) []error {
	var errs []error
	for _, n := range notifications {
		if err := d.sender.Send(n); err != nil {
			errs = append(errs, fmt.Errorf("mail: sending to %s: %w", n.Recipient, err))
		}
	}
	return errs
}
