package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/enums"
)

// Notification is a stored per-user notification produced from domain events.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"column:type;not null"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	Message   string                 `gorm:"column:message;not null"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
