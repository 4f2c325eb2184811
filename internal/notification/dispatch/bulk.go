package dispatch

import (
	"context"
	"fmt"

	apperrors "insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/common/metrics"
	"insurance-notifications/internal/models"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

// SendBulk sends kind to every user in userIDs. Items are independent: a
// failure is counted and described in Errors, in input order, and never
// stops the rest.
func (s *Service) SendBulk(ctx context.Context, userIDs []int64, kind string, data map[string]interface{}) models.BulkResult {
	ctx, span := s.obs.StartSpan(ctx, "notification.dispatch.bulk",
		attribute.String("notification.kind", kind),
		attribute.Int("bulk.size", len(userIDs)),
	)
	defer span.End()

	outcomes := make([]string, len(userIDs))

	if s.config.BulkConcurrency <= 1 || len(userIDs) <= 1 {
		for i, id := range userIDs {
			outcomes[i] = s.isolatedBulkItem(ctx, id, kind, data)
		}
	} else {
		p := pool.New().WithMaxGoroutines(s.config.BulkConcurrency)
		for i, id := range userIDs {
			i, id := i, id
			p.Go(func() {
				outcomes[i] = s.isolatedBulkItem(ctx, id, kind, data)
			})
		}
		p.Wait()
	}

	result := models.BulkResult{Errors: []string{}}
	for _, msg := range outcomes {
		if msg == "" {
			result.Sent++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, msg)
	}

	metrics.BulkItemsProcessed.WithLabelValues(kind, metrics.OutcomeSent).Add(float64(result.Sent))
	metrics.BulkItemsProcessed.WithLabelValues(kind, metrics.OutcomeFailed).Add(float64(result.Failed))
	span.SetAttributes(attribute.Int("bulk.sent", result.Sent), attribute.Int("bulk.failed", result.Failed))

	s.logger.Info("Bulk notification completed", map[string]interface{}{
		"type":   kind,
		"sent":   result.Sent,
		"failed": result.Failed,
		"errors": result.Errors,
	})

	return result
}

// isolatedBulkItem runs bulkItem and turns a panic into that item's failure.
func (s *Service) isolatedBulkItem(ctx context.Context, userID int64, kind string, data map[string]interface{}) (outcome string) {
	var pc panics.Catcher
	pc.Try(func() {
		outcome = s.bulkItem(ctx, userID, kind, data)
	})
	if r := pc.Recovered(); r != nil {
		s.logger.Error("Bulk notification item panicked", map[string]interface{}{
			"user_id": userID,
			"type":    kind,
			"panic":   fmt.Sprint(r.Value),
			"stack":   string(r.Stack),
		})
		return fmt.Sprintf("Failed to notify user %d: %v", userID, r.Value)
	}
	return outcome
}

// bulkItem returns "" on success, otherwise the item's error line.
func (s *Service) bulkItem(ctx context.Context, userID int64, kind string, data map[string]interface{}) string {
	if !s.catalogue.IsBulk(kind) {
		return fmt.Sprintf("Failed to notify user %d: %s", userID,
			apperrors.NewUnsupportedNotificationTypeError(kind).Message)
	}

	user, err := s.lookup.FindUser(ctx, userID)
	if err != nil {
		return fmt.Sprintf("Failed to notify user %d: %s", userID, err.Error())
	}
	if user == nil {
		return apperrors.NewUserNotFoundError(userID).Message
	}

	switch models.Kind(kind) {
	case models.KindWelcome:
		err = s.deliverWelcome(ctx, user, data)
	default:
		err = apperrors.NewUnsupportedNotificationTypeError(kind)
	}
	if err != nil {
		return fmt.Sprintf("Failed to notify user %d: %s", userID, errorMessage(err))
	}
	return ""
}

// errorMessage prefers the StandardError message and details over its
// code-prefixed Error string.
func errorMessage(err error) string {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		if stdErr.Details != "" {
			return stdErr.Message + ": " + stdErr.Details
		}
		return stdErr.Message
	}
	return err.Error()
}
