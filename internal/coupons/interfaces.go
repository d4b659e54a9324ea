package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

// Repository defines persistence operations for coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context, params pagination.Params) (*CouponList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// CommitUsage applies the optimistic usage bump described on Service.Commit.
	CommitUsage(ctx context.Context, coupon *models.Coupon, userID uuid.UUID) (bool, error)
}

// CouponList is one page of coupons.
type CouponList struct {
	Items      []models.Coupon
	NextCursor string
}
