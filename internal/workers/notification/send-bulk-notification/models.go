package sendbulknotification

import (
	"context"

	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/models"
	"insurance-notifications/pkg/registry"
)

type Input struct {
	UserIDs          []int64                `json:"userIds"`
	NotificationType string                 `json:"notificationType"`
	Data             map[string]interface{} `json:"data,omitempty"`
}

type Output struct {
	Sent   int      `json:"bulkSent"`
	Failed int      `json:"bulkFailed"`
	Errors []string `json:"bulkErrors"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"bulkSent":   o.Sent,
		"bulkFailed": o.Failed,
		"bulkErrors": o.Errors,
	}
}

// BulkDispatcher fans one notification kind out to many users.
type BulkDispatcher interface {
	SendBulk(ctx context.Context, userIDs []int64, kind string, data map[string]interface{}) models.BulkResult
}

type ServiceDependencies struct {
	Dispatcher BulkDispatcher
	Catalogue  *registry.Catalogue
	Logger     logger.Logger
}
