// Package notify fans a transition's message out to its recipients.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/simaogato/finflow-backend/internal/metrics"
)

// Message is a notification without a recipient
type Message struct {
	Text      string
	EventType domain.EventType
	Context   map[string]string
}

// Broadcast sends msg to every distinct non-nil recipient and returns how many
// deliveries succeeded. Failures are logged and never returned: a notification
// must not undo the transition that produced it.
func Broadcast(ctx context.Context, notifier domain.Notifier, log logger.Logger, recipients []uuid.UUID, msg Message) int {
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	sent := 0

	for _, id := range recipients {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		err := notifier.Notify(ctx, domain.Notification{
			RecipientID: id,
			Message:     msg.Text,
			EventType:   msg.EventType,
			Context:     msg.Context,
		})
		if err != nil {
			metrics.NotificationFailures.WithLabelValues(string(msg.EventType)).Inc()
			log.Warn("notification dispatch failed", logger.Fields{
				"recipientId": id.String(),
				"eventType":   string(msg.EventType),
				"error":       err,
			})
			continue
		}
		sent++
	}

	return sent
}

// Recipients collects user ids from resolver lookups, logging lookups that fail
// so that one broken lookup does not silence the others.
type Recipients struct {
	log logger.Logger
	ids []uuid.UUID
}

// NewRecipients starts an empty recipient list
func NewRecipients(log logger.Logger) *Recipients {
	return &Recipients{log: log}
}

// Add appends a single resolved user
func (r *Recipients) Add(id uuid.UUID, err error, target string) *Recipients {
	if err != nil {
		r.log.Warn("notification target lookup failed", logger.Fields{"target": target, "error": err})
		return r
	}
	r.ids = append(r.ids, id)
	return r
}

// AddAll appends a resolved group of users
func (r *Recipients) AddAll(ids []uuid.UUID, err error, target string) *Recipients {
	if err != nil {
		r.log.Warn("notification target lookup failed", logger.Fields{"target": target, "error": err})
		return r
	}
	r.ids = append(r.ids, ids...)
	return r
}

// IDs returns the collected user ids
func (r *Recipients) IDs() []uuid.UUID {
	return r.ids
}
