package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/internal/cart"
	"github.com/rigforge/rigforge-backend/internal/catalog"
	"github.com/rigforge/rigforge-backend/internal/coupons"
	"github.com/rigforge/rigforge-backend/internal/orders"
	"github.com/rigforge/rigforge-backend/internal/wallet"
	"github.com/rigforge/rigforge-backend/pkg/config"
	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/outbox"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type eventRecorder struct {
	events []outbox.DomainEvent
}

func (r *eventRecorder) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	db      *gorm.DB
	svc     Service
	wallets wallet.Service
	events  *eventRecorder
	cfg     config.PricingConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Component{}, &models.Product{},
		&models.CartRecord{}, &models.CartItem{}, &models.Coupon{},
		&models.Wallet{}, &models.WalletTransaction{},
		&models.Order{}, &models.OrderItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(db))
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(db))
	if err != nil {
		t.Fatalf("coupons service: %v", err)
	}
	wallets, err := wallet.NewService(wallet.NewRepository(db))
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}

	cfg := config.PricingConfig{
		TaxRateBPS:            1800,
		ShippingFeeCents:      2500,
		FreeShippingOverCents: 100000000,
	}
	events := &eventRecorder{}
	svc, err := NewService(
		dbTxRunner{db: db},
		cart.NewRepository(db),
		catalogSvc,
		couponSvc,
		wallets,
		orders.NewRepository(db),
		NewUserDirectory(db),
		events,
		cfg,
		nil,
	)
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}
	return &fixture{db: db, svc: svc, wallets: wallets, events: events, cfg: cfg}
}

func (f *fixture) seedUser(t *testing.T) models.User {
	t.Helper()
	user := models.User{
		ID:    uuid.New(),
		Name:  "Casey Buyer",
		Email: "casey_" + uuid.NewString()[:8] + "@example.com",
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// seedBuild creates one component per build slot, all with the given stock,
// and returns them keyed by category.
func (f *fixture) seedBuild(t *testing.T, stock int) map[enums.ComponentCategory]models.Component {
	t.Helper()
	prices := map[enums.ComponentCategory]int{
		enums.ComponentCategoryCPU:         40000,
		enums.ComponentCategoryGPU:         80000,
		enums.ComponentCategoryMotherboard: 20000,
		enums.ComponentCategoryRAM:         12000,
		enums.ComponentCategoryStorage:     10000,
		enums.ComponentCategoryCase:        8000,
		enums.ComponentCategoryPSU:         9000,
		enums.ComponentCategoryCooler:      6000,
	}
	components := make(map[enums.ComponentCategory]models.Component, len(enums.BuildSlots))
	for _, slot := range enums.BuildSlots {
		component := models.Component{
			ID:         uuid.New(),
			Name:       string(slot) + " part",
			Category:   slot,
			PriceCents: prices[slot],
			Stock:      stock,
			Active:     true,
		}
		if err := f.db.Create(&component).Error; err != nil {
			t.Fatalf("seed component: %v", err)
		}
		components[slot] = component
	}
	return components
}

func (f *fixture) seedProduct(t *testing.T, components map[enums.ComponentCategory]models.Component, priceCents, discountPercent int) models.Product {
	t.Helper()
	product := models.Product{
		ID:              uuid.New(),
		Name:            "Starter Gaming Rig",
		PriceCents:      priceCents,
		DiscountPercent: discountPercent,
		Active:          true,
		CPUID:           components[enums.ComponentCategoryCPU].ID,
		GPUID:           components[enums.ComponentCategoryGPU].ID,
		MotherboardID:   components[enums.ComponentCategoryMotherboard].ID,
		RAMID:           components[enums.ComponentCategoryRAM].ID,
		StorageID:       components[enums.ComponentCategoryStorage].ID,
		CaseID:          components[enums.ComponentCategoryCase].ID,
		PSUID:           components[enums.ComponentCategoryPSU].ID,
		CoolerID:        components[enums.ComponentCategoryCooler].ID,
	}
	if err := f.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (f *fixture) seedCartWithProduct(t *testing.T, userID, productID uuid.UUID, qty int) models.CartRecord {
	t.Helper()
	record := models.CartRecord{
		ID:     uuid.New(),
		UserID: userID,
		Items: []models.CartItem{{
			ID:        uuid.New(),
			Kind:      enums.CartItemKindProduct,
			ProductID: &productID,
			Qty:       qty,
		}},
	}
	if err := f.db.Create(&record).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return record
}

func (f *fixture) stockOf(t *testing.T, componentID uuid.UUID) int {
	t.Helper()
	var component models.Component
	if err := f.db.First(&component, "id = ?", componentID).Error; err != nil {
		t.Fatalf("load component: %v", err)
	}
	return component.Stock
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return count
}

func TestPlaceCreatesOrderFromProductCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	components := f.seedBuild(t, 5)
	product := f.seedProduct(t, components, 150000, 0)
	f.seedCartWithProduct(t, user.ID, product.ID, 2)

	order, err := f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodCOD})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if order.OrderNumber != 1001 {
		t.Errorf("order number = %d, want 1001", order.OrderNumber)
	}
	if order.UserName != user.Name || order.UserEmail != user.Email {
		t.Error("order missing user snapshot")
	}
	if order.ItemsPriceCents != 300000 {
		t.Errorf("items price = %d, want 300000", order.ItemsPriceCents)
	}
	if order.ShippingPriceCents != 2500 {
		t.Errorf("shipping = %d, want 2500", order.ShippingPriceCents)
	}
	if order.TaxPriceCents != 54000 {
		t.Errorf("tax = %d, want 54000", order.TaxPriceCents)
	}
	if order.TotalPriceCents != 356500 {
		t.Errorf("total = %d, want 356500", order.TotalPriceCents)
	}
	if order.IsPaid {
		t.Error("COD order should not be paid at checkout")
	}
	if len(order.Items) != 1 {
		t.Fatalf("order items = %d, want 1", len(order.Items))
	}
	if len(order.Items[0].Components) != len(enums.BuildSlots) {
		t.Errorf("snapshot has %d components, want %d", len(order.Items[0].Components), len(enums.BuildSlots))
	}

	// two builds consume two of every component
	for _, component := range components {
		if got := f.stockOf(t, component.ID); got != 3 {
			t.Errorf("%s stock = %d, want 3", component.Name, got)
		}
	}

	// the cart is emptied in the same transaction
	var remaining int64
	if err := f.db.Model(&models.CartItem{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if remaining != 0 {
		t.Errorf("cart items remaining = %d, want 0", remaining)
	}

	if len(f.events.events) != 1 {
		t.Fatalf("events = %d, want 1", len(f.events.events))
	}
	if f.events.events[0].EventType != enums.EventOrderCreated {
		t.Errorf("event type = %s", f.events.events[0].EventType)
	}
}

func TestPlaceEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	// no cart at all
	_, err := f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodCOD})
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("got %v, want empty cart", err)
	}

	// a cart with no items
	if err := f.db.Create(&models.CartRecord{ID: uuid.New(), UserID: user.ID}).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	_, err = f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodCOD})
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("got %v, want empty cart", err)
	}
}

func TestPlaceInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	components := f.seedBuild(t, 2)
	product := f.seedProduct(t, components, 150000, 0)
	f.seedCartWithProduct(t, user.ID, product.ID, 3)

	_, err := f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodCOD})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("got %v, want insufficient stock", err)
	}

	// nothing was reserved and nothing was created
	for _, component := range components {
		if got := f.stockOf(t, component.ID); got != 2 {
			t.Errorf("%s stock = %d, want untouched 2", component.Name, got)
		}
	}
	if got := f.orderCount(t); got != 0 {
		t.Errorf("orders = %d, want 0", got)
	}
	var items int64
	if err := f.db.Model(&models.CartItem{}).Count(&items).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if items != 1 {
		t.Errorf("cart items = %d, want cart left intact", items)
	}
}

func TestPlaceWalletPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	components := f.seedBuild(t, 5)
	product := f.seedProduct(t, components, 100000, 0)
	f.seedCartWithProduct(t, user.ID, product.ID, 1)

	// total = 100000 + 2500 shipping + 18000 tax = 120500
	if err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.wallets.Credit(ctx, tx, user.ID, 130000, nil, "top up")
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	order, err := f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodWallet})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !order.IsPaid || order.PaidAt == nil {
		t.Error("wallet order should be paid at checkout")
	}

	balance, err := f.wallets.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 9500 {
		t.Errorf("balance = %d, want 9500", balance)
	}
}

func TestPlaceWalletShortfallRollsBackReservation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	components := f.seedBuild(t, 5)
	product := f.seedProduct(t, components, 100000, 0)
	f.seedCartWithProduct(t, user.ID, product.ID, 1)

	if err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.wallets.Credit(ctx, tx, user.ID, 3000, nil, "top up")
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, err := f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodWallet})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientWallet) {
		t.Fatalf("got %v, want insufficient wallet", err)
	}

	// the stock reservation made earlier in the transaction is undone
	for _, component := range components {
		if got := f.stockOf(t, component.ID); got != 5 {
			t.Errorf("%s stock = %d, want untouched 5", component.Name, got)
		}
	}
	if got := f.orderCount(t); got != 0 {
		t.Errorf("orders = %d, want 0", got)
	}
	balance, err := f.wallets.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3000 {
		t.Errorf("balance = %d, want untouched 3000", balance)
	}
}

func TestPlaceAppliesAndConsumesCoupon(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	components := f.seedBuild(t, 5)
	product := f.seedProduct(t, components, 200000, 0)

	coupon := models.Coupon{
		ID:         uuid.New(),
		Code:       "WELCOME10",
		Type:       enums.CouponTypePercentage,
		Value:      10,
		ExpiresAt:  time.Now().Add(time.Hour),
		UsageLimit: 5,
		Active:     true,
	}
	if err := f.db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	record := f.seedCartWithProduct(t, user.ID, product.ID, 1)
	// stale cached discount; checkout must recompute
	if err := f.db.Model(&models.CartRecord{}).Where("id = ?", record.ID).
		Updates(map[string]any{"coupon_id": coupon.ID, "discount_cents": 1}).Error; err != nil {
		t.Fatalf("attach coupon: %v", err)
	}

	order, err := f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodCOD})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if order.CouponDiscount != 20000 {
		t.Errorf("coupon discount = %d, want recomputed 20000", order.CouponDiscount)
	}
	// items 200000 + shipping 2500 + tax 36000 − discount 20000
	if order.TotalPriceCents != 218500 {
		t.Errorf("total = %d, want 218500", order.TotalPriceCents)
	}
	if order.CouponCode == nil || *order.CouponCode != "WELCOME10" {
		t.Error("order missing coupon code snapshot")
	}

	var stored models.Coupon
	if err := f.db.First(&stored, "id = ?", coupon.ID).Error; err != nil {
		t.Fatalf("load coupon: %v", err)
	}
	if stored.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", stored.UsageCount)
	}
	if len(stored.UsedBy) != 1 || stored.UsedBy[0] != user.ID {
		t.Errorf("used_by = %v, want the buyer recorded", stored.UsedBy)
	}
}

func TestPlaceRejectsExpiredCouponAtCheckout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	components := f.seedBuild(t, 5)
	product := f.seedProduct(t, components, 200000, 0)

	coupon := models.Coupon{
		ID:         uuid.New(),
		Code:       "LAPSED",
		Type:       enums.CouponTypePercentage,
		Value:      10,
		ExpiresAt:  time.Now().Add(-time.Hour),
		UsageLimit: 5,
		Active:     true,
	}
	if err := f.db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	record := f.seedCartWithProduct(t, user.ID, product.ID, 1)
	if err := f.db.Model(&models.CartRecord{}).Where("id = ?", record.ID).
		Updates(map[string]any{"coupon_id": coupon.ID, "discount_cents": 20000}).Error; err != nil {
		t.Fatalf("attach coupon: %v", err)
	}

	_, err := f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodCOD})
	if !pkgerrors.HasCode(err, pkgerrors.CodeCouponExpired) {
		t.Fatalf("got %v, want coupon expired", err)
	}
	if got := f.orderCount(t); got != 0 {
		t.Errorf("orders = %d, want 0", got)
	}
	for _, component := range components {
		if got := f.stockOf(t, component.ID); got != 5 {
			t.Errorf("%s stock = %d, want untouched 5", component.Name, got)
		}
	}
}

func TestPlaceRepricesCustomBuild(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	components := f.seedBuild(t, 5)

	slots := make(map[enums.ComponentCategory]uuid.UUID, len(components))
	currentPrice := 0
	for slot, component := range components {
		slots[slot] = component.ID
		currentPrice += component.PriceCents
	}

	record := models.CartRecord{
		ID:     uuid.New(),
		UserID: user.ID,
		Items: []models.CartItem{{
			ID:   uuid.New(),
			Kind: enums.CartItemKindCustomBuild,
			CustomBuild: &types.CustomBuild{
				Name:       "My Build",
				PriceCents: 1, // stale cached price
				Slots:      slots,
			},
			Qty: 1,
		}},
	}
	if err := f.db.Create(&record).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	order, err := f.svc.Place(ctx, user.ID, Input{PaymentMethod: enums.PaymentMethodCOD})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if order.ItemsPriceCents != currentPrice {
		t.Errorf("items price = %d, want repriced %d", order.ItemsPriceCents, currentPrice)
	}
	if order.Items[0].Name != "My Build" {
		t.Errorf("item name = %q", order.Items[0].Name)
	}
}

func TestPlaceUnknownPaymentMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Place(context.Background(), uuid.New(), Input{PaymentMethod: "barter"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}
