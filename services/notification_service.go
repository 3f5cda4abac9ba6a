package services

import (
	"context"
	"errors"
	"time"

	"netwin-backend/apperrors"
	"netwin-backend/models"
	"netwin-backend/utils"

	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Notify stores a notification for userID. Failures are logged, not returned:
// a notification never decides whether the operation that caused it succeeded.
func (s *NotificationService) Notify(ctx context.Context, userID string, kind models.NotificationType, title, message string) {
	if s == nil {
		return
	}
	n := &models.Notification{UserID: userID, Type: kind, Title: title, Message: message}
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		utils.Log.Warnw("[NOTIFY] failed to store notification", "user_id", userID, "type", kind, "error", err)
	}
}

type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

func (s *NotificationService) List(ctx context.Context, userID string, f NotificationFilter) ([]models.Notification, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if f.UnreadOnly {
		q = q.Where("read = ?", false)
	}
	var out []models.Notification
	if err := q.Order("created_at DESC").Limit(f.Limit).Find(&out).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch notifications")
	}
	return out, nil
}

// StreamCursor is a live stream's position. Rows that share the cursor's
// created_at are remembered by id, so a timestamp tie across two polls is
// still delivered exactly once.
type StreamCursor struct {
	At   time.Time
	seen map[string]struct{}
}

func NewStreamCursor(at time.Time) *StreamCursor {
	return &StreamCursor{At: at, seen: map[string]struct{}{}}
}

func (c *StreamCursor) advance(n models.Notification) {
	if c.seen == nil || n.CreatedAt.After(c.At) {
		c.At = n.CreatedAt
		c.seen = map[string]struct{}{}
	}
	c.seen[n.ID] = struct{}{}
}

// Cursor positions a stream after the user's newest notification.
func (s *NotificationService) Cursor(ctx context.Context, userID string) (*StreamCursor, error) {
	latest, err := s.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	cur := NewStreamCursor(latest)
	if latest.IsZero() {
		return cur, nil
	}
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND created_at = ?", userID, latest).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		cur.seen[id] = struct{}{}
	}
	return cur, nil
}

// Next returns the user's notifications not yet delivered past cur, oldest
// first, and moves cur forward.
func (s *NotificationService) Next(ctx context.Context, userID string, cur *StreamCursor) ([]models.Notification, error) {
	var rows []models.Notification
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, cur.At).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, n := range rows {
		if _, ok := cur.seen[n.ID]; ok && n.CreatedAt.Equal(cur.At) {
			continue
		}
		cur.advance(n)
		out = append(out, n)
	}
	return out, nil
}

// Latest returns the created_at of the user's newest notification, or the zero time.
func (s *NotificationService) Latest(ctx context.Context, userID string) (time.Time, error) {
	var latest models.Notification
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return latest.CreatedAt, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Database(err, "failed to count notifications")
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return apperrors.Database(res.Error, "failed to update notification")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, apperrors.Database(res.Error, "failed to update notifications")
	}
	return res.RowsAffected, nil
}
