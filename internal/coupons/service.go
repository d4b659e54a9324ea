package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	dbtypes "github.com/rigforge/rigforge-backend/pkg/db/types"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

// CreateInput carries admin coupon creation fields. All amounts are cents.
type CreateInput struct {
	Code             string
	Type             enums.CouponType
	Value            int
	MinOrderCents    int
	MaxDiscountCents *int
	ExpiresAt        time.Time
	UsageLimit       int
	AllowedUsers     []uuid.UUID
}

// Service evaluates and consumes coupons.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
	List(ctx context.Context, params pagination.Params) (*CouponList, error)
	Deactivate(ctx context.Context, id uuid.UUID) error

	// Validate resolves the code and returns the coupon with the discount it
	// grants against billableCents, or a coupon error.
	Validate(ctx context.Context, code string, billableCents int, userID uuid.UUID) (*models.Coupon, int, error)

	// GetByID loads a coupon without evaluating it.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)

	// Evaluate applies the validation rules to an already loaded coupon.
	// Checkout uses it to re-validate against the recomputed order total.
	Evaluate(coupon *models.Coupon, billableCents int, userID uuid.UUID) (int, error)

	// Commit consumes one use inside the caller's order transaction.
	Commit(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds a coupons service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon type")
	}
	if input.Value <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon value must be positive")
	}
	if input.Type == enums.CouponTypePercentage && input.Value > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage coupon cannot exceed 100")
	}
	// A fixed coupon worth at least the minimum order would make orders free
	// or negative at the threshold.
	if input.Type == enums.CouponTypeFixed && input.MinOrderCents > 0 && input.Value >= input.MinOrderCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"fixed coupon value must be below the minimum order value")
	}
	if input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}
	if input.ExpiresAt.IsZero() || !input.ExpiresAt.After(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	coupon := &models.Coupon{
		ID:               uuid.New(),
		Code:             code,
		Type:             input.Type,
		Value:            input.Value,
		MinOrderCents:    input.MinOrderCents,
		MaxDiscountCents: input.MaxDiscountCents,
		ExpiresAt:        input.ExpiresAt,
		UsageLimit:       input.UsageLimit,
		AllowedUsers:     dbtypes.UUIDArray(input.AllowedUsers),
		Active:           true,
	}
	created, err := s.repo.Create(ctx, coupon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating coupon")
	}
	return created, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*CouponList, error) {
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing coupons")
	}
	return list, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Update(ctx, id, map[string]any{"active": false}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivating coupon")
	}
	return nil
}

func (s *service) Validate(ctx context.Context, code string, billableCents int, userID uuid.UUID) (*models.Coupon, int, error) {
	coupon, err := s.repo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, 0, pkgerrors.New(pkgerrors.CodeCouponNotFound, "coupon not found")
		}
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}

	discount, err := s.Evaluate(coupon, billableCents, userID)
	if err != nil {
		return nil, 0, err
	}
	return coupon, discount, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeCouponNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}
	return coupon, nil
}

func (s *service) Evaluate(coupon *models.Coupon, billableCents int, userID uuid.UUID) (int, error) {
	if coupon == nil {
		return 0, pkgerrors.New(pkgerrors.CodeCouponNotFound, "coupon not found")
	}
	if !coupon.Active {
		return 0, pkgerrors.New(pkgerrors.CodeCouponInactive, "coupon is inactive")
	}
	if time.Now().After(coupon.ExpiresAt) {
		return 0, pkgerrors.New(pkgerrors.CodeCouponExpired, "coupon has expired")
	}
	if coupon.UsageCount >= coupon.UsageLimit {
		return 0, pkgerrors.New(pkgerrors.CodeCouponUsageLimit, "coupon usage limit reached")
	}
	if coupon.UsedBy.Contains(userID) {
		return 0, pkgerrors.New(pkgerrors.CodeCouponAlreadyUsed, "coupon already used")
	}
	if len(coupon.AllowedUsers) > 0 && !coupon.AllowedUsers.Contains(userID) {
		return 0, pkgerrors.New(pkgerrors.CodeCouponNotAllowed, "coupon is not available for this account")
	}
	if billableCents < coupon.MinOrderCents {
		return 0, pkgerrors.New(pkgerrors.CodeCouponBelowMinimum,
			fmt.Sprintf("order total below the %d cent minimum", coupon.MinOrderCents))
	}

	return Discount(coupon, billableCents), nil
}

func (s *service) Commit(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	coupon, err := repo.FindByID(ctx, couponID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeCouponNotFound, "coupon not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}
	if coupon.UsageCount >= coupon.UsageLimit {
		return pkgerrors.New(pkgerrors.CodeCouponUsageLimit, "coupon usage limit reached")
	}

	committed, err := repo.CommitUsage(ctx, coupon, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "committing coupon usage")
	}
	if !committed {
		// Another transaction consumed a use between our read and the guarded
		// update. The order transaction aborts rather than overselling the code.
		return pkgerrors.New(pkgerrors.CodeCouponUsageLimit, "coupon usage limit reached")
	}
	return nil
}

// Discount computes the discount a coupon grants against billableCents. The
// percentage path rounds half up through decimal arithmetic; both paths are
// capped at the billable amount.
func Discount(coupon *models.Coupon, billableCents int) int {
	var discount int
	switch coupon.Type {
	case enums.CouponTypePercentage:
		discount = int(decimal.NewFromInt(int64(billableCents)).
			Mul(decimal.NewFromInt(int64(coupon.Value))).
			Div(decimal.NewFromInt(100)).
			Round(0).IntPart())
		if coupon.MaxDiscountCents != nil && discount > *coupon.MaxDiscountCents {
			discount = *coupon.MaxDiscountCents
		}
	case enums.CouponTypeFixed:
		discount = coupon.Value
	}

	if discount > billableCents {
		discount = billableCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
