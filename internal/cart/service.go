package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/internal/catalog"
	"github.com/rigforge/rigforge-backend/internal/coupons"
	"github.com/rigforge/rigforge-backend/internal/pricing"
	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

// LineView is one priced cart line in a summary.
type LineView struct {
	ItemID          uuid.UUID          `json:"item_id"`
	Kind            enums.CartItemKind `json:"kind"`
	Name            string             `json:"name"`
	Qty             int                `json:"qty"`
	UnitPriceCents  int                `json:"unit_price_cents"`
	DiscountPercent int                `json:"discount_percent"`
	LineTotalCents  int                `json:"line_total_cents"`
	ProductID       *uuid.UUID         `json:"product_id,omitempty"`
	CustomBuild     *types.CustomBuild `json:"custom_build,omitempty"`
}

// Summary is the priced view of a cart. The discount is the cached value
// from the last coupon evaluation; checkout recomputes it from scratch.
type Summary struct {
	CartID        uuid.UUID  `json:"cart_id"`
	Items         []LineView `json:"items"`
	ItemsCents    int        `json:"items_cents"`
	CouponID      *uuid.UUID `json:"coupon_id,omitempty"`
	DiscountCents int        `json:"discount_cents"`
}

// Service manages the per-user cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Summary, error)
	AddProduct(ctx context.Context, userID, productID uuid.UUID, qty int) (*Summary, error)
	AddCustomBuild(ctx context.Context, userID uuid.UUID, name string, slots map[enums.ComponentCategory]uuid.UUID, qty int) (*Summary, error)
	UpdateItemQty(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Summary, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*Summary, error)
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*Summary, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

type service struct {
	repo    Repository
	catalog catalog.Service
	coupons coupons.Service
}

// NewService builds a cart service.
func NewService(repo Repository, catalogSvc catalog.Service, couponSvc coupons.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupons service required")
	}
	return &service{repo: repo, catalog: catalogSvc, coupons: couponSvc}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Summary{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return s.summarize(ctx, cart)
}

func (s *service) AddProduct(ctx context.Context, userID, productID uuid.UUID, qty int) (*Summary, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available")
	}

	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// adding the same product again bumps its quantity
	var existing *models.CartItem
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.Kind == enums.CartItemKindProduct && item.ProductID != nil && *item.ProductID == productID {
			existing = item
			break
		}
	}
	if existing != nil {
		if err := s.repo.UpdateItemQty(ctx, existing.ID, existing.Qty+qty); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart item")
		}
	} else {
		item := &models.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			Kind:      enums.CartItemKindProduct,
			ProductID: &productID,
			Qty:       qty,
		}
		if err := s.repo.AddItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding cart item")
		}
	}

	return s.afterMutation(ctx, userID)
}

func (s *service) AddCustomBuild(ctx context.Context, userID uuid.UUID, name string, slots map[enums.ComponentCategory]uuid.UUID, qty int) (*Summary, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Custom build"
	}

	snapshots, err := s.catalog.SnapshotConfiguration(ctx, slots)
	if err != nil {
		return nil, err
	}
	priceCents := 0
	for _, snapshot := range snapshots {
		priceCents += snapshot.PriceCents
	}

	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{
		ID:     uuid.New(),
		CartID: cart.ID,
		Kind:   enums.CartItemKindCustomBuild,
		CustomBuild: &types.CustomBuild{
			Name:       name,
			PriceCents: priceCents,
			Slots:      slots,
		},
		Qty: qty,
	}
	if err := s.repo.AddItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding cart item")
	}

	return s.afterMutation(ctx, userID)
}

func (s *service) UpdateItemQty(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Summary, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findOwnedItem(ctx, cart, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemQty(ctx, itemID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart item")
	}
	return s.afterMutation(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*Summary, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findOwnedItem(ctx, cart, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart item")
	}
	return s.afterMutation(ctx, userID)
}

func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*Summary, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, cart)
	if err != nil {
		return nil, err
	}
	if summary.ItemsCents == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	coupon, discount, err := s.coupons.Validate(ctx, code, summary.ItemsCents, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCart(ctx, cart.ID, map[string]any{
		"coupon_id":      coupon.ID,
		"discount_cents": discount,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attaching coupon")
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCart(ctx, cart.ID, map[string]any{
		"coupon_id":      nil,
		"discount_cents": 0,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detaching coupon")
	}
	return s.Get(ctx, userID)
}

func (s *service) ensureCart(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	created, err := s.repo.Create(ctx, &models.CartRecord{ID: uuid.New(), UserID: userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating cart")
	}
	return created, nil
}

func (s *service) loadCart(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return cart, nil
}

func (s *service) findOwnedItem(ctx context.Context, cart *models.CartRecord, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart item")
	}
	return item, nil
}

// afterMutation reprices the cart and refreshes or drops the cached coupon
// discount so the stored value tracks the current contents.
func (s *service) afterMutation(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, cart)
	if err != nil {
		return nil, err
	}
	if cart.CouponID == nil {
		return summary, nil
	}

	coupon, err := s.coupons.GetByID(ctx, *cart.CouponID)
	var discount int
	if err == nil {
		discount, err = s.coupons.Evaluate(coupon, summary.ItemsCents, userID)
	}
	if err != nil {
		// the coupon no longer fits the cart; drop it rather than fail the edit
		if uerr := s.repo.UpdateCart(ctx, cart.ID, map[string]any{
			"coupon_id":      nil,
			"discount_cents": 0,
		}); uerr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, uerr, "detaching coupon")
		}
		summary.CouponID = nil
		summary.DiscountCents = 0
		return summary, nil
	}

	if discount != cart.DiscountCents {
		if err := s.repo.UpdateCart(ctx, cart.ID, map[string]any{"discount_cents": discount}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refreshing coupon discount")
		}
	}
	summary.DiscountCents = discount
	return summary, nil
}

func (s *service) summarize(ctx context.Context, cart *models.CartRecord) (*Summary, error) {
	summary := &Summary{
		CartID:        cart.ID,
		CouponID:      cart.CouponID,
		DiscountCents: cart.DiscountCents,
		Items:         make([]LineView, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		line := LineView{
			ItemID:      item.ID,
			Kind:        item.Kind,
			Qty:         item.Qty,
			ProductID:   item.ProductID,
			CustomBuild: item.CustomBuild,
		}
		switch item.Kind {
		case enums.CartItemKindProduct:
			if item.ProductID == nil {
				return nil, pkgerrors.New(pkgerrors.CodeInternal, "product cart item missing product id")
			}
			product, err := s.catalog.GetProduct(ctx, *item.ProductID)
			if err != nil {
				return nil, err
			}
			line.Name = product.Name
			line.UnitPriceCents = product.PriceCents
			line.DiscountPercent = product.DiscountPercent
		case enums.CartItemKindCustomBuild:
			if item.CustomBuild == nil {
				return nil, pkgerrors.New(pkgerrors.CodeInternal, "custom build cart item missing build")
			}
			line.Name = item.CustomBuild.Name
			line.UnitPriceCents = item.CustomBuild.PriceCents
		default:
			return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown cart item kind %q", item.Kind))
		}

		line.LineTotalCents = pricing.LineTotalCents(line.UnitPriceCents, line.DiscountPercent, line.Qty)
		summary.ItemsCents += line.LineTotalCents
		summary.Items = append(summary.Items, line)
	}
	return summary, nil
}
