package domain

import (
	"context"

	"github.com/google/uuid"
)

// EventType tags a notification with the transition that produced it
type EventType string

const (
	EventFinancingStageCompleted EventType = "financing_stage_completed"
	EventFinancingCompleted      EventType = "financing_completed"
	EventFinancingRejected       EventType = "financing_rejected"
	EventFinancingStageOverdue   EventType = "financing_stage_overdue"
	EventTitleTransferScheduled  EventType = "title_transfer_scheduled"
	EventTitleTransferCompleted  EventType = "title_transfer_completed"
)

// Notification is a message for one recipient
type Notification struct {
	RecipientID uuid.UUID
	Message     string
	EventType   EventType
	Context     map[string]string
}

// Notifier delivers notifications. Callers treat delivery as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationTargetResolver resolves who should hear about a transition
type NotificationTargetResolver interface {
	// ResolveAssigned returns the user responsible for a financing tracker
	ResolveAssigned(ctx context.Context, trackerID uuid.UUID) (uuid.UUID, error)

	// ResolveDepartmentManagers returns active managers of a department
	ResolveDepartmentManagers(ctx context.Context, dept Department) ([]uuid.UUID, error)

	// ResolveDepartmentMembers returns every active user of a department
	ResolveDepartmentMembers(ctx context.Context, dept Department) ([]uuid.UUID, error)

	// ResolveMarketer returns the marketer who owns a reservation
	ResolveMarketer(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, error)
}

// Contact is the delivery address of a user
type Contact struct {
	UserID uuid.UUID
	Email  string
	Phone  string
}

// ContactDirectory looks up delivery addresses for external channels
type ContactDirectory interface {
	GetContact(ctx context.Context, userID uuid.UUID) (*Contact, error)
}
