package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// SMSNotifier sends urgent notifications as SMS through AWS SNS
type SMSNotifier struct {
	sns      SNSService
	contacts domain.ContactDirectory
	senderID string
	events   map[domain.EventType]bool
}

// NewSMSNotifier creates an SNS-backed notifier. Only the given event types are
// sent; with none given, only overdue alerts are.
func NewSMSNotifier(client SNSService, contacts domain.ContactDirectory, senderID string, events ...domain.EventType) *SMSNotifier {
	if len(events) == 0 {
		events = []domain.EventType{domain.EventFinancingStageOverdue}
	}
	set := make(map[domain.EventType]bool, len(events))
	for _, e := range events {
		set[e] = true
	}
	return &SMSNotifier{sns: client, contacts: contacts, senderID: senderID, events: set}
}

// Notify texts the recipient when the event type is enabled and a phone is on file
func (s *SMSNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if !s.events[n.EventType] {
		return nil
	}

	contact, err := s.contacts.GetContact(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("sms: resolve contact: %w", err)
	}
	if contact.Phone == "" {
		return nil
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(contact.Phone),
		Message:     aws.String(n.Message),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(s.senderID)},
		}
	}

	if _, err := s.sns.Publish(ctx, input); err != nil {
		return fmt.Errorf("sms: publish to %s: %w", n.RecipientID, err)
	}
	return nil
}
