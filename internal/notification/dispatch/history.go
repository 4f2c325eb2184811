package dispatch

import (
	"context"
	"math"

	apperrors "insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/models"
)

// History is one page of a user's notifications.
type History struct {
	UserID        int64                   `json:"user_id"`
	Notifications models.NotificationPage `json:"notifications"`
}

// History returns page (1-based) of userID's notifications, newest first.
func (s *Service) History(ctx context.Context, userID int64, page int) (*History, error) {
	if page < 1 {
		page = 1
	}

	user, err := s.lookup.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewResourceNotFoundError("User", userID)
	}

	perPage := s.config.HistoryPerPage
	total, err := s.history.CountNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}

	// pages past the end, including ones whose offset would overflow, are empty
	records := []models.NotificationRecord{}
	if page-1 < math.MaxInt/perPage && (page-1)*perPage < total {
		records, err = s.history.ListNotifications(ctx, userID, perPage, (page-1)*perPage)
		if err != nil {
			return nil, err
		}
	}

	return &History{
		UserID:        userID,
		Notifications: models.NewNotificationPage(records, page, perPage, total),
	}, nil
}
