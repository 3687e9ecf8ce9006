package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/simaogato/finflow-backend/internal/domain"
)

var subjects = map[domain.EventType]string{
	domain.EventFinancingStageCompleted: "Financing stage completed",
	domain.EventFinancingCompleted:      "Financing completed",
	domain.EventFinancingRejected:       "Financing rejected",
	domain.EventFinancingStageOverdue:   "Financing stage overdue",
	domain.EventTitleTransferScheduled:  "Title transfer scheduled",
	domain.EventTitleTransferCompleted:  "Title transfer completed",
}

// Subject returns the email subject of an event type
func Subject(event domain.EventType) string {
	if s, ok := subjects[event]; ok {
		return s
	}
	return "Financing update"
}

// EmailNotifier sends notifications through AWS SES
type EmailNotifier struct {
	ses       SESService
	contacts  domain.ContactDirectory
	fromEmail string
}

// NewEmailNotifier creates an SES-backed notifier
func NewEmailNotifier(client SESService, contacts domain.ContactDirectory, fromEmail string) *EmailNotifier {
	return &EmailNotifier{ses: client, contacts: contacts, fromEmail: fromEmail}
}

// Notify emails the recipient; recipients without an address are skipped
func (e *EmailNotifier) Notify(ctx context.Context, n domain.Notification) error {
	contact, err := e.contacts.GetContact(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("email: resolve contact: %w", err)
	}
	if contact.Email == "" {
		return nil
	}

	_, err = e.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{contact.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(Subject(n.EventType))},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(n.Message)},
			},
		},
		Source: aws.String(e.fromEmail),
	})
	if err != nil {
		return fmt.Errorf("email: send to %s: %w", n.RecipientID, err)
	}
	return nil
}
