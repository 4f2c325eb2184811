package store

import (
	"context"
	"database/sql"
	"encoding/json"

	apperrors "insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/models"
)

// NotificationRepository persists and pages NotificationRecords.
type NotificationRepository interface {
	InsertNotification(ctx context.Context, rec *models.NotificationRecord) error
	CountNotifications(ctx context.Context, recipientID int64) (int, error)
	ListNotifications(ctx context.Context, recipientID int64, limit, offset int) ([]models.NotificationRecord, error)
}

const (
	queryInsertNotification = `INSERT INTO notifications (id, recipient_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	queryCountNotifications = `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	queryListNotifications  = `SELECT id, recipient_id, type, payload, created_at, read_at
		FROM notifications WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
)

func (s *Postgres) InsertNotification(ctx context.Context, rec *models.NotificationRecord) error {
	payload := []byte(rec.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, queryInsertNotification,
		rec.ID.String(), rec.RecipientID, string(rec.Type), payload, rec.CreatedAt)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("insert_notification", err)
	}
	return nil
}

func (s *Postgres) CountNotifications(ctx context.Context, recipientID int64) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, queryCountNotifications, recipientID).Scan(&total); err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("count_notifications", err)
	}
	return total, nil
}

func (s *Postgres) ListNotifications(ctx context.Context, recipientID int64, limit, offset int) ([]models.NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryListNotifications, recipientID, limit, offset)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_notifications", err)
	}
	defer rows.Close()

	records := []models.NotificationRecord{}
	for rows.Next() {
		var (
			rec     models.NotificationRecord
			kind    string
			payload []byte
			readAt  sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.RecipientID, &kind, &payload, &rec.CreatedAt, &readAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_notifications", err)
		}
		rec.Type = models.Kind(kind)
		rec.Payload = json.RawMessage(payload)
		if readAt.Valid {
			t := readAt.Time
			rec.ReadAt = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_notifications", err)
	}

	return records, nil
}
