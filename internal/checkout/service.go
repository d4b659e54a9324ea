package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/internal/cart"
	"github.com/rigforge/rigforge-backend/internal/catalog"
	"github.com/rigforge/rigforge-backend/internal/coupons"
	"github.com/rigforge/rigforge-backend/internal/inventory"
	"github.com/rigforge/rigforge-backend/internal/orders"
	"github.com/rigforge/rigforge-backend/internal/pricing"
	"github.com/rigforge/rigforge-backend/internal/wallet"
	"github.com/rigforge/rigforge-backend/pkg/config"
	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/logger"
	"github.com/rigforge/rigforge-backend/pkg/outbox"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input carries the checkout request.
type Input struct {
	PaymentMethod   enums.PaymentMethod
	ShippingAddress *types.Address
}

// Service converts a cart into an order. Everything happens in one database
// transaction: stock reservation, pricing, coupon consumption, the wallet
// debit for wallet-paid orders, order persistence, cart clearing and the
// outbox event. Any failure rolls the whole conversion back.
type Service interface {
	Place(ctx context.Context, userID uuid.UUID, input Input) (*models.Order, error)
}

type service struct {
	txn     txRunner
	carts   cart.Repository
	catalog catalog.Service
	coupons coupons.Service
	wallets wallet.Service
	orders  orders.Repository
	users   UserDirectory
	events  outboxEmitter
	pricing config.PricingConfig
	logg    *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	txn txRunner,
	carts cart.Repository,
	catalogSvc catalog.Service,
	couponSvc coupons.Service,
	wallets wallet.Service,
	orderRepo orders.Repository,
	users UserDirectory,
	events outboxEmitter,
	pricingCfg config.PricingConfig,
	logg *logger.Logger,
) (Service, error) {
	if txn == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupons service required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		txn:     txn,
		carts:   carts,
		catalog: catalogSvc,
		coupons: couponSvc,
		wallets: wallets,
		orders:  orderRepo,
		users:   users,
		events:  events,
		pricing: pricingCfg,
		logg:    logg,
	}, nil
}

func (s *service) Place(ctx context.Context, userID uuid.UUID, input Input) (*models.Order, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}

	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}

	var created *models.Order
	err = s.txn.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		record, err := cartRepo.FindByUser(ctx, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		lines, err := s.expand(ctx, record.Items)
		if err != nil {
			return err
		}

		if err := s.reserve(ctx, tx, lines); err != nil {
			return err
		}

		itemsPrice := 0
		for _, line := range lines {
			itemsPrice += pricing.LineTotalCents(line.UnitPriceCents, line.DiscountPercent, line.Qty)
		}

		// The cached cart discount is advisory only; the coupon is evaluated
		// again against the freshly computed total.
		discount := 0
		var couponID *uuid.UUID
		var couponCode *string
		if record.CouponID != nil {
			coupon, err := s.coupons.GetByID(ctx, *record.CouponID)
			if err != nil {
				return err
			}
			discount, err = s.coupons.Evaluate(coupon, itemsPrice, userID)
			if err != nil {
				return err
			}
			couponID = &coupon.ID
			couponCode = &coupon.Code
		}

		shipping := pricing.ShippingCents(itemsPrice, s.pricing)
		tax := pricing.TaxCents(itemsPrice, s.pricing.TaxRateBPS)
		total := itemsPrice + shipping + tax - discount

		orderRepo := s.orders.WithTx(tx)
		number, err := orderRepo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocating order number")
		}

		order := &models.Order{
			ID:                 uuid.New(),
			OrderNumber:        number,
			UserID:             userID,
			UserName:           user.Name,
			UserEmail:          user.Email,
			ShippingAddress:    input.ShippingAddress,
			PaymentMethod:      input.PaymentMethod,
			ItemsPriceCents:    itemsPrice,
			TaxPriceCents:      tax,
			ShippingPriceCents: shipping,
			TotalPriceCents:    total,
			CouponID:           couponID,
			CouponCode:         couponCode,
			CouponDiscount:     discount,
			Status:             enums.OrderStatusPending,
		}

		if input.PaymentMethod == enums.PaymentMethodWallet {
			err := s.wallets.Debit(ctx, tx, userID, total, &order.ID,
				fmt.Sprintf("payment for order #%d", number))
			if err != nil {
				return err
			}
			now := time.Now()
			order.IsPaid = true
			order.PaidAt = &now
		}

		for _, line := range lines {
			line.ID = uuid.New()
			line.OrderID = order.ID
			order.Items = append(order.Items, line)
		}
		if _, err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}

		if couponID != nil {
			if err := s.coupons.Commit(ctx, tx, *couponID, userID); err != nil {
				return err
			}
		}

		if err := cartRepo.Clear(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
		}

		err = s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: orderCreatedData{
				OrderID:         order.ID,
				OrderNumber:     order.OrderNumber,
				UserID:          order.UserID,
				TotalPriceCents: order.TotalPriceCents,
				PaymentMethod:   order.PaymentMethod,
			},
		})
		if err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":     created.ID.String(),
			"order_number": created.OrderNumber,
			"total_cents":  created.TotalPriceCents,
		}), "order placed")
	}
	return created, nil
}

// expand resolves every cart line into a frozen order item. Product lines take
// the product's default configuration; custom builds are re-snapshotted and
// re-priced from the current catalog rather than the cached cart price.
func (s *service) expand(ctx context.Context, items []models.CartItem) ([]models.OrderItem, error) {
	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		switch item.Kind {
		case enums.CartItemKindProduct:
			if item.ProductID == nil {
				return nil, pkgerrors.New(pkgerrors.CodeInternal, "product cart item missing product id")
			}
			product, err := s.catalog.GetProduct(ctx, *item.ProductID)
			if err != nil {
				return nil, err
			}
			if !product.Active {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("product %s is no longer available", product.Name))
			}
			snapshots, err := s.catalog.SnapshotConfiguration(ctx, product.Configuration())
			if err != nil {
				return nil, err
			}
			lines = append(lines, models.OrderItem{
				Name:            product.Name,
				Qty:             item.Qty,
				UnitPriceCents:  product.PriceCents,
				DiscountPercent: product.DiscountPercent,
				Components:      snapshots,
			})
		case enums.CartItemKindCustomBuild:
			if item.CustomBuild == nil {
				return nil, pkgerrors.New(pkgerrors.CodeInternal, "custom build cart item missing build")
			}
			snapshots, err := s.catalog.SnapshotConfiguration(ctx, item.CustomBuild.Slots)
			if err != nil {
				return nil, err
			}
			price := 0
			for _, snapshot := range snapshots {
				price += snapshot.PriceCents
			}
			lines = append(lines, models.OrderItem{
				Name:           item.CustomBuild.Name,
				Qty:            item.Qty,
				UnitPriceCents: price,
				Components:     snapshots,
			})
		default:
			return nil, pkgerrors.New(pkgerrors.CodeInternal,
				fmt.Sprintf("unknown cart item kind %q", item.Kind))
		}
	}
	return lines, nil
}

// reserve decrements stock for every component the order consumes, merged
// across lines so a shared component is reserved once with its full quantity.
func (s *service) reserve(ctx context.Context, tx *gorm.DB, lines []models.OrderItem) error {
	reqs := make([]inventory.Requirement, 0, len(lines)*8)
	for _, line := range lines {
		for _, snapshot := range line.Components {
			reqs = append(reqs, inventory.Requirement{ComponentID: snapshot.ComponentID, Qty: line.Qty})
		}
	}
	merged, err := inventory.Aggregate(reqs)
	if err != nil {
		return err
	}
	return inventory.Reserve(ctx, tx, merged)
}

type orderCreatedData struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderNumber     int64               `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	TotalPriceCents int                 `json:"total_price_cents"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
}
