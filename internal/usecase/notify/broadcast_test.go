package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of Notifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	ok1, ok2, failing := uuid.New(), uuid.New(), uuid.New()
	msg := Message{
		Text:      "Financing stage 3 is overdue",
		EventType: domain.EventFinancingStageOverdue,
		Context:   map[string]string{"stage": "3"},
	}

	notifier := new(MockNotifier)
	notifier.On("Notify", ctx, mock.MatchedBy(func(n domain.Notification) bool {
		return n.RecipientID == failing
	})).Return(errors.New("inbox full"))
	notifier.On("Notify", ctx, mock.MatchedBy(func(n domain.Notification) bool {
		return n.RecipientID != failing && n.Message == msg.Text && n.EventType == msg.EventType && n.Context["stage"] == "3"
	})).Return(nil)

	sent := Broadcast(ctx, notifier, logger.NewTestLogger(t), []uuid.UUID{ok1, uuid.Nil, failing, ok2, ok1}, msg)

	assert.Equal(t, 2, sent)
	notifier.AssertNumberOfCalls(t, "Notify", 3)
}

func TestRecipients(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	ids := NewRecipients(logger.NewTestLogger(t)).
		Add(a, nil, "marketer").
		Add(uuid.New(), errors.New("lookup failed"), "assigned user").
		AddAll([]uuid.UUID{b, c}, nil, "credit department").
		AddAll([]uuid.UUID{uuid.New()}, errors.New("directory down"), "accounting").
		IDs()

	assert.Equal(t, []uuid.UUID{a, b, c}, ids)
}
