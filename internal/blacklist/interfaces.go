package blacklist

import (
	"context"

	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

// Repository persists blacklist entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, entry *models.BlacklistEntry) error
	List(ctx context.Context, params pagination.Params) (*EntryList, error)
}

// EntryList is one page of blacklist entries.
type EntryList struct {
	Items      []models.BlacklistEntry
	NextCursor string
}
