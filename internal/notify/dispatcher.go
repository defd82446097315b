// internal/notify/dispatcher.go
// Package notify delivers workflow notifications over SES email and, for
// high-priority messages, SNS SMS. Delivery is fire-and-forget at call
// sites: a failed send is recorded and logged, never surfaced to the
// transition that triggered it.
package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"talent-platform/internal/common/logger"
	"talent-platform/internal/common/metrics"
	"talent-platform/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Interfaces over the AWS clients for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	FromEmail    string
	EmailEnabled bool
	SMSEnabled   bool
	// SMSPriority is the notification priority that triggers an SMS on top
	// of the email. Empty means "high".
	SMSPriority string
	// SMSSenderID is the alphanumeric sender id attached to outgoing SMS,
	// where the destination country supports one.
	SMSSenderID string
	AdminEmail  string
	AdminPhone  string
}

func (c Config) smsPriority() string {
	if c.SMSPriority == "" {
		return "high"
	}
	return c.SMSPriority
}

type Dispatcher struct {
	config    Config
	db        *sql.DB
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

func NewDispatcher(config Config, db *sql.DB, sesClient SESService, snsClient SNSService, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		config:    config,
		db:        db,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Send resolves the recipient's contact details, delivers over the enabled
// channels and records the outcome. SMS goes out only for notifications at
// the configured SMS priority.
func (d *Dispatcher) Send(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	email, phone, err := d.recipientContact(ctx, n.RecipientID, n.RecipientType)
	if err != nil {
		d.logger.Warn("recipient not found", map[string]interface{}{
			"recipientId": n.RecipientID,
			"type":        n.RecipientType,
		})
		d.record(ctx, n, StatusDisabled)
		return nil
	}

	emailSent := false
	smsSent := false

	if d.config.EmailEnabled && email != "" {
		if err := d.sendEmail(ctx, email, n.Subject, n.Body); err != nil {
			d.logger.Error("email send failed", map[string]interface{}{
				"error": err,
				"email": email,
			})
			metrics.NotificationsSentTotal.WithLabelValues("email", StatusFailed).Inc()
			d.record(ctx, n, StatusFailed)
			return fmt.Errorf("send email: %w", err)
		}
		emailSent = true
		metrics.NotificationsSentTotal.WithLabelValues("email", StatusSent).Inc()
	}

	if d.config.SMSEnabled && phone != "" && n.Priority == d.config.smsPriority() {
		if err := d.sendSMS(ctx, phone, n.Body); err != nil {
			d.logger.Error("SMS send failed", map[string]interface{}{
				"error": err,
				"phone": phone,
			})
			metrics.NotificationsSentTotal.WithLabelValues("sms", StatusFailed).Inc()
			d.record(ctx, n, StatusFailed)
			return fmt.Errorf("send SMS: %w", err)
		}
		smsSent = true
		metrics.NotificationsSentTotal.WithLabelValues("sms", StatusSent).Inc()
	}

	status := StatusDisabled
	if emailSent || smsSent {
		status = StatusSent
	}
	d.record(ctx, n, status)

	return nil
}

func (d *Dispatcher) recipientContact(ctx context.Context, recipientID, recipientType string) (string, string, error) {
	// Admin notifications go to the configured operations contact, not a row.
	if recipientType == "admin" {
		return d.config.AdminEmail, d.config.AdminPhone, nil
	}

	var query string
	switch recipientType {
	case "talent":
		query = `SELECT email, COALESCE(phone, '') FROM talents WHERE id = $1`
	case "employer":
		query = `SELECT email, COALESCE(phone, '') FROM employers WHERE id = $1`
	default:
		return "", "", fmt.Errorf("invalid recipient type: %s", recipientType)
	}

	var email, phone string
	err := d.db.QueryRowContext(ctx, query, recipientID).Scan(&email, &phone)
	return email, phone, err
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := d.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(d.config.FromEmail),
	})
	return err
}

func (d *Dispatcher) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if d.config.SMSSenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(d.config.SMSSenderID),
			},
		}
	}
	_, err := d.snsClient.Publish(ctx, input)
	return err
}

func (d *Dispatcher) record(ctx context.Context, n models.Notification, status string) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, recipient_type, type, subject, body, priority, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.RecipientID, n.RecipientType, n.Type, n.Subject, n.Body, n.Priority, status, time.Now().UTC())
	if err != nil {
		d.logger.Warn("notification record write failed", map[string]interface{}{
			"notificationId": n.ID,
			"error":          err,
		})
	}
}
