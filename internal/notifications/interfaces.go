package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

// Repository persists customer notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*NotificationList, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (bool, error)

	// DeleteReadBefore prunes read notifications older than the cutoff and
	// returns how many rows went away. The cleanup cron calls it.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationList is one page of notifications.
type NotificationList struct {
	Items      []models.Notification
	NextCursor string
}
