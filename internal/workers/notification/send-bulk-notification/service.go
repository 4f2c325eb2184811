package sendbulknotification

import (
	"context"
	"strings"

	"insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/common/validation"
	"insurance-notifications/pkg/registry"
)

type Service struct {
	config     *Config
	logger     logger.Logger
	dispatcher BulkDispatcher
	catalogue  *registry.Catalogue
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:     config,
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
		catalogue:  deps.Catalogue,
	}
}

// Execute rejects kinds that are not bulk-enabled and data that breaks the
// kind's schema; per-user failures are reported in the output, not as errors.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	kindSpec, ok := s.catalogue.Kind(input.NotificationType)
	if !ok || !kindSpec.Bulk {
		return nil, errors.NewUnsupportedNotificationTypeError(input.NotificationType)
	}

	if input.Data != nil {
		result, err := validation.Validate(kindSpec.DataSchema, input.Data)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		if !result.Valid {
			return nil, errors.NewValidationFailedError("data: " + strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	result := s.dispatcher.SendBulk(ctx, input.UserIDs, input.NotificationType, input.Data)

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return &Output{Sent: result.Sent, Failed: result.Failed, Errors: errs}, nil
}
