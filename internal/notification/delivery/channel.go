// Package delivery sends a formatted notification and records it.
package delivery

import (
	"context"
	"encoding/json"
	"time"

	apperrors "insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/notification/formatter"
	"insurance-notifications/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

const EventNotificationSent = "notification.sent"

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SearchIndexer stores a document under index/id.
type SearchIndexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

type Config struct {
	FromEmail   string
	TopicARN    string
	SearchIndex string
}

// Channel delivers over SES and persists the history record. The SNS event
// and the search index write are optional and best-effort.
type Channel struct {
	config  Config
	mailer  SESService
	repo    store.NotificationRepository
	events  SNSService
	indexer SearchIndexer
	logger  logger.Logger
	now     func() time.Time
}

type Option func(*Channel)

// WithEventPublisher publishes a notification.sent event after each delivery.
func WithEventPublisher(events SNSService) Option {
	return func(c *Channel) { c.events = events }
}

// WithSearchIndexer mirrors each record into the search index.
func WithSearchIndexer(indexer SearchIndexer) Option {
	return func(c *Channel) { c.indexer = indexer }
}

func WithClock(now func() time.Time) Option {
	return func(c *Channel) { c.now = now }
}

func NewChannel(cfg Config, mailer SESService, repo store.NotificationRepository, log logger.Logger, opts ...Option) *Channel {
	c := &Channel{
		config: cfg,
		mailer: mailer,
		repo:   repo,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver sends n to user and writes its NotificationRecord. A failure of
// either step is returned; side channel failures are only logged.
func (c *Channel) Deliver(ctx context.Context, user *models.User, n *formatter.Notification) (*models.NotificationRecord, error) {
	kind := n.Kind.String()

	htmlBody, textBody, err := n.Message.Render()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if err := c.sendEmail(ctx, user.Email, n.Message.Subject, htmlBody, textBody); err != nil {
		return nil, apperrors.NewNotificationSendFailedError(kind, err)
	}

	payload, err := json.Marshal(n.Summary)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	rec := &models.NotificationRecord{
		ID:          uuid.New(),
		RecipientID: user.ID,
		Type:        n.Kind,
		Payload:     payload,
		CreatedAt:   c.now(),
	}
	if err := c.repo.InsertNotification(ctx, rec); err != nil {
		return nil, apperrors.NewNotificationPersistFailedError(kind, err)
	}

	c.publish(ctx, user, rec)
	c.index(ctx, user, rec)

	return rec, nil
}

func (c *Channel) sendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	_, err := c.mailer.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(textBody)},
				Html: &types.Content{Data: aws.String(htmlBody)},
			},
		},
		Source: aws.String(c.config.FromEmail),
	})
	return err
}

type sentEvent struct {
	Event          string    `json:"event"`
	NotificationID string    `json:"notification_id"`
	RecipientID    int64     `json:"recipient_id"`
	RecipientEmail string    `json:"recipient_email"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c *Channel) publish(ctx context.Context, user *models.User, rec *models.NotificationRecord) {
	if c.events == nil || c.config.TopicARN == "" {
		return
	}

	body, _ := json.Marshal(sentEvent{
		Event:          EventNotificationSent,
		NotificationID: rec.ID.String(),
		RecipientID:    rec.RecipientID,
		RecipientEmail: user.Email,
		Type:           rec.Type.String(),
		CreatedAt:      rec.CreatedAt,
	})

	_, err := c.events.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.config.TopicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(EventNotificationSent)},
			"type":  {DataType: aws.String("String"), StringValue: aws.String(rec.Type.String())},
		},
	})
	if err != nil {
		c.logger.Warn("Notification event publish failed", map[string]interface{}{
			"notification_id": rec.ID.String(),
			"error":           apperrors.NewEventPublishFailedError(c.config.TopicARN, err).Error(),
		})
	}
}

func (c *Channel) index(ctx context.Context, user *models.User, rec *models.NotificationRecord) {
	if c.indexer == nil || c.config.SearchIndex == "" {
		return
	}

	doc := map[string]interface{}{
		"id":              rec.ID.String(),
		"recipient_id":    rec.RecipientID,
		"recipient_email": user.Email,
		"type":            rec.Type,
		"payload":         rec.Payload,
		"created_at":      rec.CreatedAt,
	}
	if err := c.indexer.IndexDocument(ctx, c.config.SearchIndex, rec.ID.String(), doc); err != nil {
		c.logger.Warn("Notification search index failed", map[string]interface{}{
			"notification_id": rec.ID.String(),
			"error":           apperrors.NewSearchIndexFailedError(c.config.SearchIndex, err).Error(),
		})
	}
}
