package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
)

// Repository defines persistence operations for carts and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	Create(ctx context.Context, cart *models.CartRecord) (*models.CartRecord, error)
	UpdateCart(ctx context.Context, cartID uuid.UUID, updates map[string]any) error

	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQty(ctx context.Context, itemID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, itemID uuid.UUID) error

	// Clear removes every item and detaches the coupon. Checkout calls it
	// inside the order transaction.
	Clear(ctx context.Context, cartID uuid.UUID) error
}
