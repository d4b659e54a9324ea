package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/internal/blacklist"
	"github.com/rigforge/rigforge-backend/internal/coupons"
	"github.com/rigforge/rigforge-backend/internal/inventory"
	"github.com/rigforge/rigforge-backend/internal/wallet"
	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/logger"
	"github.com/rigforge/rigforge-backend/pkg/outbox"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PaymentVerifier confirms an external payment against the frozen order total.
type PaymentVerifier interface {
	VerifyOrder(ctx context.Context, providerOrderID string, expectedCents int) (*types.PaymentResult, error)
}

// Service drives orders through their lifecycle after checkout: forward
// delivery progression, cancellation with refunds and stock release, and the
// return request/approve/reject flow.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)

	// Advance moves the order one step along the delivery flow. Reaching
	// delivered stamps the delivery fields and auto-pays COD orders.
	Advance(ctx context.Context, orderID uuid.UUID) (*models.Order, error)

	// Cancel voids the whole order (itemID nil) or a single line. Only
	// pre-shipment orders qualify. Paid amounts come back as wallet credit
	// and the reserved components return to stock.
	Cancel(ctx context.Context, orderID uuid.UUID, itemID *uuid.UUID, reason string) (*models.Order, error)

	// RequestReturn flags a delivered item for return. The reason is
	// mandatory.
	RequestReturn(ctx context.Context, orderID, itemID uuid.UUID, reason string) (*models.Order, error)

	// ApproveReturn refunds the item and either restocks its components or,
	// when damaged, diverts them to the blacklist.
	ApproveReturn(ctx context.Context, orderID, itemID uuid.UUID, damaged bool, note string) (*models.Order, error)

	// RejectReturn declines a requested return; the customer keeps the item.
	RejectReturn(ctx context.Context, orderID, itemID uuid.UUID, reason string) (*models.Order, error)

	// MarkPaid verifies an external PayPal payment against the frozen order
	// total and records the result.
	MarkPaid(ctx context.Context, orderID uuid.UUID, providerOrderID string) (*models.Order, error)
}

type service struct {
	repo      Repository
	txn       txRunner
	wallets   wallet.Service
	coupons   coupons.Service
	blacklist blacklist.Service
	events    outboxEmitter
	verifier  PaymentVerifier
	logg      *logger.Logger
}

// NewService builds the order lifecycle service. The verifier may be nil when
// PayPal is not configured; MarkPaid then fails cleanly.
func NewService(
	repo Repository,
	txn txRunner,
	wallets wallet.Service,
	couponSvc coupons.Service,
	blacklistSvc blacklist.Service,
	events outboxEmitter,
	verifier PaymentVerifier,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if txn == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupons service required")
	}
	if blacklistSvc == nil {
		return nil, fmt.Errorf("blacklist service required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:      repo,
		txn:       txn,
		wallets:   wallets,
		coupons:   couponSvc,
		blacklist: blacklistSvc,
		events:    events,
		verifier:  verifier,
		logg:      logg,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.load(ctx, s.repo, orderID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return list, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list, err := s.repo.ListAll(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return list, nil
}

func (s *service) Advance(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	err := s.txn.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}

		next, ok := order.Status.Next()
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("order in status %q cannot advance", order.Status))
		}

		now := time.Now()
		updates := map[string]any{"status": next}
		if next == enums.OrderStatusDelivered {
			updates["is_delivered"] = true
			updates["delivered_at"] = now
			// cash on delivery settles at the door
			if order.PaymentMethod == enums.PaymentMethodCOD && !order.IsPaid {
				updates["is_paid"] = true
				updates["paid_at"] = now
			}
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advancing order")
		}

		return s.emitStatus(ctx, tx, order, next,
			fmt.Sprintf("order #%d is now %s", order.OrderNumber, next))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, itemID *uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	err := s.txn.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if itemID == nil {
			return s.cancelOrder(ctx, tx, repo, order, reason)
		}
		return s.cancelItem(ctx, tx, repo, order, *itemID, reason)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) cancelOrder(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, reason string) error {
	if order.Status == enums.OrderStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, "order is already cancelled")
	}
	if !order.Status.Cancellable() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("order in status %q can no longer be cancelled", order.Status))
	}

	active := order.ActiveItems()
	if err := s.release(ctx, tx, active); err != nil {
		return err
	}

	if order.IsPaid {
		// Lines cancelled earlier were already credited back; refund only
		// the remainder of the charge.
		refunded, err := s.wallets.CreditedForOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		refund := WholeOrderRefundCents(order) - refunded
		if refund > 0 {
			err := s.wallets.Credit(ctx, tx, order.UserID, refund, &order.ID,
				fmt.Sprintf("refund for cancelled order #%d", order.OrderNumber))
			if err != nil {
				return err
			}
		}
	}

	for _, item := range active {
		updates := map[string]any{"status": enums.OrderItemStatusCancelled}
		if reason != "" {
			updates["reason"] = reason
		}
		if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling order item")
		}
	}

	updates := map[string]any{"status": enums.OrderStatusCancelled}
	if reason != "" {
		updates["reason"] = reason
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling order")
	}

	return s.emitStatus(ctx, tx, order, enums.OrderStatusCancelled,
		fmt.Sprintf("order #%d was cancelled", order.OrderNumber))
}

func (s *service) cancelItem(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, itemID uuid.UUID, reason string) error {
	item, err := findItem(order, itemID)
	if err != nil {
		return err
	}
	if item.Status == enums.OrderItemStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, "order item is already cancelled")
	}
	if item.Status != enums.OrderItemStatusActive {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("order item in status %q cannot be cancelled", item.Status))
	}
	if !order.Status.Cancellable() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("order in status %q can no longer be cancelled", order.Status))
	}

	remaining := make([]models.OrderItem, 0, len(order.Items))
	for _, other := range order.ActiveItems() {
		if other.ID != item.ID {
			remaining = append(remaining, other)
		}
	}

	// A partial cancel must not leave the order below the coupon's minimum.
	if len(remaining) > 0 && order.CouponID != nil {
		coupon, err := s.coupons.GetByID(ctx, *order.CouponID)
		if err != nil {
			return err
		}
		remainingBillable := 0
		for _, other := range remaining {
			remainingBillable += EffectiveItemCents(other)
		}
		if remainingBillable < coupon.MinOrderCents {
			return pkgerrors.New(pkgerrors.CodeCouponMinimumViolated,
				"cancelling this item would drop the order below the coupon minimum; cancel the whole order instead")
		}
	}

	refund := ItemRefundCents(order, *item)
	if len(remaining) == 0 {
		// last line going away takes the shipping fee with it
		refund += order.ShippingPriceCents
	}
	if order.IsPaid && refund > 0 {
		err := s.wallets.Credit(ctx, tx, order.UserID, refund, &order.ID,
			fmt.Sprintf("refund for cancelled item on order #%d", order.OrderNumber))
		if err != nil {
			return err
		}
	}

	if err := s.release(ctx, tx, []models.OrderItem{*item}); err != nil {
		return err
	}

	updates := map[string]any{"status": enums.OrderItemStatusCancelled}
	if reason != "" {
		updates["reason"] = reason
	}
	if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling order item")
	}

	if len(remaining) == 0 {
		orderUpdates := map[string]any{"status": enums.OrderStatusCancelled}
		if reason != "" {
			orderUpdates["reason"] = reason
		}
		if err := repo.UpdateOrder(ctx, order.ID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling order")
		}
		return s.emitStatus(ctx, tx, order, enums.OrderStatusCancelled,
			fmt.Sprintf("order #%d was cancelled", order.OrderNumber))
	}

	return s.emitStatus(ctx, tx, order, order.Status,
		fmt.Sprintf("an item on order #%d was cancelled", order.OrderNumber))
}

func (s *service) RequestReturn(ctx context.Context, orderID, itemID uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeReturnReasonRequired, "a return reason is required")
	}

	err := s.txn.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDelivered && order.Status != enums.OrderStatusReturnRequest {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				"returns can only be requested on delivered orders")
		}
		item, err := findItem(order, itemID)
		if err != nil {
			return err
		}
		if item.Status != enums.OrderItemStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("order item in status %q cannot be returned", item.Status))
		}

		err = repo.UpdateItem(ctx, item.ID, map[string]any{
			"status": enums.OrderItemStatusReturnRequest,
			"reason": reason,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requesting return")
		}
		item.Status = enums.OrderItemStatusReturnRequest
		syncItem(order, *item)

		// order follows once nothing is left in the active state
		status := order.Status
		if len(order.ActiveItems()) == 0 && order.Status != enums.OrderStatusReturnRequest {
			status = enums.OrderStatusReturnRequest
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": status}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requesting return")
			}
		}

		return s.emitStatus(ctx, tx, order, status,
			fmt.Sprintf("a return was requested on order #%d", order.OrderNumber))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) ApproveReturn(ctx context.Context, orderID, itemID uuid.UUID, damaged bool, note string) (*models.Order, error) {
	err := s.txn.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		item, err := findItem(order, itemID)
		if err != nil {
			return err
		}
		if item.Status != enums.OrderItemStatusReturnRequest {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("order item in status %q cannot be approved for return", item.Status))
		}

		refund := ItemRefundCents(order, *item)
		if refund > 0 {
			err := s.wallets.Credit(ctx, tx, order.UserID, refund, &order.ID,
				fmt.Sprintf("refund for returned item on order #%d", order.OrderNumber))
			if err != nil {
				return err
			}
		}

		if damaged {
			reason := strings.TrimSpace(note)
			if reason == "" {
				reason = "damaged on return"
			}
			withdrawn := make(types.BlacklistedComponents, 0, len(item.Components))
			for _, snap := range item.Components {
				withdrawn = append(withdrawn, types.BlacklistedComponent{
					ComponentID: snap.ComponentID,
					Name:        snap.Name,
					Qty:         item.Qty,
				})
			}
			if err := s.blacklist.Withdraw(ctx, tx, order.ID, item.ID, reason, withdrawn); err != nil {
				return err
			}
		} else if err := s.release(ctx, tx, []models.OrderItem{*item}); err != nil {
			return err
		}

		if err := repo.UpdateItem(ctx, item.ID, map[string]any{"status": enums.OrderItemStatusReturnApproved}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approving return")
		}
		item.Status = enums.OrderItemStatusReturnApproved
		syncItem(order, *item)

		status := order.Status
		if allTerminal(order.Items) {
			status = enums.OrderStatusReturnApproved
			err := repo.UpdateOrder(ctx, order.ID, map[string]any{
				"status":      status,
				"is_returned": true,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approving return")
			}
		}

		return s.emitStatus(ctx, tx, order, status,
			fmt.Sprintf("a return on order #%d was approved", order.OrderNumber))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) RejectReturn(ctx context.Context, orderID, itemID uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	err := s.txn.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		item, err := findItem(order, itemID)
		if err != nil {
			return err
		}
		if item.Status != enums.OrderItemStatusReturnRequest {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("order item in status %q cannot be rejected", item.Status))
		}

		updates := map[string]any{"status": enums.OrderItemStatusReturnRejected}
		if reason != "" {
			updates["reason"] = reason
		}
		if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rejecting return")
		}
		item.Status = enums.OrderItemStatusReturnRejected
		syncItem(order, *item)

		// Once no request is pending the order settles: if any item was
		// approved the return flow already refunded something and the order
		// closes as returned, otherwise it is back to a plain delivered
		// order.
		status := order.Status
		if order.Status == enums.OrderStatusReturnRequest && !anyInStatus(order.Items, enums.OrderItemStatusReturnRequest) {
			orderUpdates := map[string]any{}
			if anyInStatus(order.Items, enums.OrderItemStatusReturnApproved) {
				status = enums.OrderStatusReturnApproved
				orderUpdates["status"] = status
				orderUpdates["is_returned"] = true
			} else {
				status = enums.OrderStatusDelivered
				orderUpdates["status"] = status
			}
			if err := repo.UpdateOrder(ctx, order.ID, orderUpdates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rejecting return")
			}
		}

		return s.emitStatus(ctx, tx, order, status,
			fmt.Sprintf("a return on order #%d was rejected", order.OrderNumber))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, providerOrderID string) (*models.Order, error) {
	if s.verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment verification is not configured")
	}

	err := s.txn.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.IsPaid {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
		}
		if order.PaymentMethod != enums.PaymentMethodPayPal {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("orders paid by %s are not verified externally", order.PaymentMethod))
		}

		result, err := s.verifier.VerifyOrder(ctx, providerOrderID, order.TotalPriceCents)
		if err != nil {
			return err
		}

		// Map updates bypass the model's JSON serializer, so the result is
		// marshalled by hand.
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding payment result")
		}

		err = repo.UpdateOrder(ctx, order.ID, map[string]any{
			"is_paid":        true,
			"paid_at":        time.Now(),
			"payment_result": string(resultJSON),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment")
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
			}), "order payment verified")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// load fetches an order through the given repository binding, translating the
// missing row into a domain error.
func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

// release returns the component quantities of the given items to stock.
func (s *service) release(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error {
	reqs := make([]inventory.Requirement, 0, len(items)*8)
	for _, item := range items {
		for _, snap := range item.Components {
			reqs = append(reqs, inventory.Requirement{ComponentID: snap.ComponentID, Qty: item.Qty})
		}
	}
	if len(reqs) == 0 {
		return nil
	}
	merged, err := inventory.Aggregate(reqs)
	if err != nil {
		return err
	}
	return inventory.Release(ctx, tx, merged)
}

type statusUpdateData struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	Status      enums.OrderStatus `json:"status"`
	Message     string            `json:"message"`
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.OrderStatus, message string) error {
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusUpdated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: statusUpdateData{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Status:      status,
			Message:     message,
		},
	})
}

func findItem(order *models.Order, itemID uuid.UUID) (*models.OrderItem, error) {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
}

// syncItem reflects an item update back into the loaded order so later checks
// in the same transaction see the new state.
func syncItem(order *models.Order, item models.OrderItem) {
	for i := range order.Items {
		if order.Items[i].ID == item.ID {
			order.Items[i] = item
			return
		}
	}
}

func allTerminal(items []models.OrderItem) bool {
	for _, item := range items {
		if !item.Status.Terminal() {
			return false
		}
	}
	return len(items) > 0
}

func anyInStatus(items []models.OrderItem, status enums.OrderItemStatus) bool {
	for _, item := range items {
		if item.Status == status {
			return true
		}
	}
	return false
}
