package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// InboxEntry is a stored in-app notification
type InboxEntry struct {
	ID        uuid.UUID
	domain.Notification
	IsRead    bool
	CreatedAt time.Time
}

// NotificationRepository stores in-app notifications; it is the inbox channel
type NotificationRepository struct {
	db  *DB
	now func() time.Time
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Notify inserts n into the recipient's inbox
func (r *NotificationRepository) Notify(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n.Context)
	if err != nil {
		return fmt.Errorf("failed to encode notification context: %w", err)
	}
	if n.Context == nil {
		payload = []byte(`{}`)
	}

	query := `
		INSERT INTO notifications (id, recipient_id, message, event_type, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.conn(ctx).ExecContext(ctx, query,
		uuid.New(),
		n.RecipientID,
		n.Message,
		string(n.EventType),
		payload,
		r.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// ListByRecipient returns a recipient's notifications, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]InboxEntry, error) {
	query := `
		SELECT id, recipient_id, message, event_type, context, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var entries []InboxEntry
	for rows.Next() {
		var (
			e         InboxEntry
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&e.ID, &e.RecipientID, &e.Message, &eventType, &payload, &e.IsRead, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		e.EventType = domain.EventType(eventType)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Context); err != nil {
				return nil, fmt.Errorf("failed to decode notification context: %w", err)
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return entries, nil
}
