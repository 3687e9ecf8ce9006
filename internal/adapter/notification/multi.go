package notification

import (
	"context"
	"errors"

	"github.com/simaogato/finflow-backend/internal/domain"
)

// MultiChannel fans a notification out to every channel. A failing channel does
// not stop the others; their errors are joined.
type MultiChannel struct {
	channels []domain.Notifier
}

// NewMultiChannel combines channels, skipping nil ones
func NewMultiChannel(channels ...domain.Notifier) *MultiChannel {
	m := &MultiChannel{}
	for _, c := range channels {
		if c != nil {
			m.channels = append(m.channels, c)
		}
	}
	return m
}

// Len reports how many channels are active
func (m *MultiChannel) Len() int {
	return len(m.channels)
}

// Notify delivers n on every channel
func (m *MultiChannel) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
