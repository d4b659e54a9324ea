package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

// ListFilters narrows order listings.
type ListFilters struct {
	Status *enums.OrderStatus
}

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)

	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error

	// NextOrderNumber allocates the next human-facing order number inside
	// the caller's transaction; the unique index backstops races.
	NextOrderNumber(ctx context.Context) (int64, error)
}

// OrderList is one page of orders.
type OrderList struct {
	Items      []models.Order
	NextCursor string
}
