package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/notification/formatter"
	"insurance-notifications/internal/store/storetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// ==========================
// Mocks
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

type MockSearchIndexer struct {
	IndexDocumentFunc func(ctx context.Context, index, id string, doc interface{}) error
}

func (m *MockSearchIndexer) IndexDocument(ctx context.Context, index, id string, doc interface{}) error {
	return m.IndexDocumentFunc(ctx, index, id, doc)
}

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		FromEmail:   "no-reply@insuremore.test",
		TopicARN:    "arn:aws:sns:us-east-1:000000000000:notifications",
		SearchIndex: "notifications",
	}
}

func welcomeNotification(t *testing.T, user *models.User) *formatter.Notification {
	t.Helper()
	n, err := formatter.New("", "https://app.insuremore.test").Format(formatter.WelcomeEvent{User: user})
	require.NoError(t, err)
	return n
}

func okSES(sent *[]*ses.SendEmailInput) *MockSESService {
	return &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		*sent = append(*sent, params)
		return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
	}}
}

func observedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.NewZapAdapter(zap.New(core)), logs
}

// ==========================
// Deliver Tests
// ==========================

func TestChannel_Deliver_Success(t *testing.T) {
	user := &models.User{ID: 1, FirstName: "John", LastName: "Doe", Email: "john@example.com"}
	mem := storetest.NewMemory()

	var sent []*ses.SendEmailInput
	var published []*sns.PublishInput
	var indexed []string

	ch := NewChannel(testConfig(), okSES(&sent), mem, logger.NewTestLogger(t),
		WithClock(func() time.Time { return fixedNow }),
		WithEventPublisher(&MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			published = append(published, params)
			return &sns.PublishOutput{}, nil
		}}),
		WithSearchIndexer(&MockSearchIndexer{IndexDocumentFunc: func(ctx context.Context, index, id string, doc interface{}) error {
			indexed = append(indexed, index+"/"+id)
			return nil
		}}),
	)

	rec, err := ch.Deliver(context.Background(), user, welcomeNotification(t, user))
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.Equal(t, []string{"john@example.com"}, sent[0].Destination.ToAddresses)
	assert.Equal(t, "no-reply@insuremore.test", aws.ToString(sent[0].Source))
	assert.Equal(t, "Welcome to InsureMore!", aws.ToString(sent[0].Message.Subject.Data))
	assert.Contains(t, aws.ToString(sent[0].Message.Body.Text.Data), "Hello John Doe!")
	assert.Contains(t, aws.ToString(sent[0].Message.Body.Html.Data), "Hello John Doe!")

	require.Len(t, mem.Records, 1)
	assert.Equal(t, rec.ID, mem.Records[0].ID)
	assert.Equal(t, int64(1), rec.RecipientID)
	assert.Equal(t, models.KindWelcome, rec.Type)
	assert.Equal(t, fixedNow, rec.CreatedAt)
	assert.JSONEq(t, `{"user_id":1,"user_name":"John Doe","user_email":"john@example.com","notification_type":"welcome"}`, string(rec.Payload))

	require.Len(t, published, 1)
	assert.Equal(t, testConfig().TopicARN, aws.ToString(published[0].TopicArn))
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(published[0].Message)), &event))
	assert.Equal(t, EventNotificationSent, event["event"])
	assert.Equal(t, rec.ID.String(), event["notification_id"])

	assert.Equal(t, []string{"notifications/" + rec.ID.String()}, indexed)
}

func TestChannel_Deliver_SendFailure(t *testing.T) {
	user := &models.User{ID: 1, Email: "john@example.com"}
	mem := storetest.NewMemory()

	ch := NewChannel(testConfig(), &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		return nil, errors.New("SES service unavailable")
	}}, mem, logger.NewTestLogger(t))

	rec, err := ch.Deliver(context.Background(), user, welcomeNotification(t, user))
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))
	assert.Contains(t, err.Error(), "SES service unavailable")
	assert.Empty(t, mem.Records)
}

func TestChannel_Deliver_PersistFailure(t *testing.T) {
	user := &models.User{ID: 1, Email: "john@example.com"}
	mem := storetest.NewMemory()
	mem.Err = errors.New("relation \"notifications\" does not exist")

	var sent []*ses.SendEmailInput
	ch := NewChannel(testConfig(), okSES(&sent), mem, logger.NewTestLogger(t))

	_, err := ch.Deliver(context.Background(), user, welcomeNotification(t, user))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationPersistFailed))
	assert.Len(t, sent, 1)
}

func TestChannel_Deliver_SideChannelFailuresAreBestEffort(t *testing.T) {
	user := &models.User{ID: 1, Email: "john@example.com"}
	mem := storetest.NewMemory()
	log, logs := observedLogger()

	var sent []*ses.SendEmailInput
	ch := NewChannel(testConfig(), okSES(&sent), mem, log,
		WithEventPublisher(&MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("SNS service unavailable")
		}}),
		WithSearchIndexer(&MockSearchIndexer{IndexDocumentFunc: func(ctx context.Context, index, id string, doc interface{}) error {
			return errors.New("cluster red")
		}}),
	)

	rec, err := ch.Deliver(context.Background(), user, welcomeNotification(t, user))
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Len(t, mem.Records, 1)

	assert.Equal(t, 1, logs.FilterMessage("Notification event publish failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Notification search index failed").Len())
	for _, entry := range logs.All() {
		assert.Equal(t, zap.WarnLevel, entry.Level)
	}
}

func TestChannel_Deliver_SkipsUnconfiguredSideChannels(t *testing.T) {
	user := &models.User{ID: 1, Email: "john@example.com"}

	called := false
	cfg := testConfig()
	cfg.TopicARN = ""
	cfg.SearchIndex = ""

	var sent []*ses.SendEmailInput
	ch := NewChannel(cfg, okSES(&sent), storetest.NewMemory(), logger.NewTestLogger(t),
		WithEventPublisher(&MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			called = true
			return &sns.PublishOutput{}, nil
		}}),
		WithSearchIndexer(&MockSearchIndexer{IndexDocumentFunc: func(ctx context.Context, index, id string, doc interface{}) error {
			called = true
			return nil
		}}),
	)

	_, err := ch.Deliver(context.Background(), user, welcomeNotification(t, user))
	require.NoError(t, err)
	assert.False(t, called)
}

func TestChannel_Deliver_EachCallIsANewRecord(t *testing.T) {
	user := &models.User{ID: 1, Email: "john@example.com"}
	mem := storetest.NewMemory()

	var sent []*ses.SendEmailInput
	ch := NewChannel(testConfig(), okSES(&sent), mem, logger.NewTestLogger(t))

	n := welcomeNotification(t, user)
	first, err := ch.Deliver(context.Background(), user, n)
	require.NoError(t, err)
	second, err := ch.Deliver(context.Background(), user, n)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, sent, 2)
	assert.Len(t, mem.Records, 2)
}
