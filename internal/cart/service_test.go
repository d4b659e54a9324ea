package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/internal/catalog"
	"github.com/rigforge/rigforge-backend/internal/coupons"
	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Component{},
		&models.Product{},
		&models.CartRecord{},
		&models.CartItem{},
		&models.Coupon{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	catalogSvc, err := catalog.NewService(catalog.NewRepository(db))
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(db))
	if err != nil {
		t.Fatalf("coupons service: %v", err)
	}
	svc, err := NewService(NewRepository(db), catalogSvc, couponSvc)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	return svc
}

func seedBuild(t *testing.T, db *gorm.DB, priceCents int) map[enums.ComponentCategory]uuid.UUID {
	t.Helper()
	slots := make(map[enums.ComponentCategory]uuid.UUID, len(enums.BuildSlots))
	for _, slot := range enums.BuildSlots {
		component := models.Component{
			ID:         uuid.New(),
			Name:       "test " + string(slot),
			Category:   slot,
			PriceCents: priceCents,
			Stock:      10,
			Active:     true,
		}
		if err := db.Create(&component).Error; err != nil {
			t.Fatalf("seed %s: %v", slot, err)
		}
		slots[slot] = component.ID
	}
	return slots
}

func seedProduct(t *testing.T, db *gorm.DB, priceCents, discountPercent int) models.Product {
	t.Helper()
	slots := seedBuild(t, db, 10000)
	product := models.Product{
		ID:              uuid.New(),
		Name:            "Starter Gaming Rig",
		PriceCents:      priceCents,
		DiscountPercent: discountPercent,
		Active:          true,
		CPUID:           slots[enums.ComponentCategoryCPU],
		GPUID:           slots[enums.ComponentCategoryGPU],
		MotherboardID:   slots[enums.ComponentCategoryMotherboard],
		RAMID:           slots[enums.ComponentCategoryRAM],
		StorageID:       slots[enums.ComponentCategoryStorage],
		CaseID:          slots[enums.ComponentCategoryCase],
		PSUID:           slots[enums.ComponentCategoryPSU],
		CoolerID:        slots[enums.ComponentCategoryCooler],
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestAddProductCreatesCartLazily(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()
	product := seedProduct(t, db, 150000, 10)

	summary, err := svc.AddProduct(ctx, user, product.ID, 2)
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(summary.Items))
	}
	// 150000 * 0.9 * 2
	if summary.ItemsCents != 270000 {
		t.Errorf("items total = %d, want 270000", summary.ItemsCents)
	}
}

func TestAddSameProductBumpsQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()
	product := seedProduct(t, db, 100000, 0)

	if _, err := svc.AddProduct(ctx, user, product.ID, 1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	summary, err := svc.AddProduct(ctx, user, product.ID, 2)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(summary.Items))
	}
	if summary.Items[0].Qty != 3 {
		t.Errorf("qty = %d, want 3", summary.Items[0].Qty)
	}
}

func TestAddCustomBuildPricesFromComponents(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()
	slots := seedBuild(t, db, 20000)

	summary, err := svc.AddCustomBuild(ctx, user, "Dream machine", slots, 1)
	if err != nil {
		t.Fatalf("add custom build: %v", err)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(summary.Items))
	}
	want := 20000 * len(enums.BuildSlots)
	if summary.ItemsCents != want {
		t.Errorf("items total = %d, want %d", summary.ItemsCents, want)
	}
}

func TestAddCustomBuildIncomplete(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	slots := seedBuild(t, db, 20000)
	delete(slots, enums.ComponentCategoryCooler)

	_, err := svc.AddCustomBuild(context.Background(), uuid.New(), "half a build", slots, 1)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyCouponCachesDiscount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()
	product := seedProduct(t, db, 100000, 0)

	coupon := models.Coupon{
		ID:         uuid.New(),
		Code:       "TEN",
		Type:       enums.CouponTypePercentage,
		Value:      10,
		ExpiresAt:  time.Now().Add(time.Hour),
		UsageLimit: 5,
		Active:     true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	if _, err := svc.AddProduct(ctx, user, product.ID, 1); err != nil {
		t.Fatalf("add product: %v", err)
	}
	summary, err := svc.ApplyCoupon(ctx, user, "TEN")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if summary.DiscountCents != 10000 {
		t.Errorf("discount = %d, want 10000", summary.DiscountCents)
	}

	// qty change refreshes the cached discount
	summary, err = svc.UpdateItemQty(ctx, user, summary.Items[0].ItemID, 2)
	if err != nil {
		t.Fatalf("update qty: %v", err)
	}
	if summary.DiscountCents != 20000 {
		t.Errorf("discount after qty change = %d, want 20000", summary.DiscountCents)
	}
}

func TestCouponDroppedWhenCartFallsBelowMinimum(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()
	product := seedProduct(t, db, 50000, 0)

	coupon := models.Coupon{
		ID:            uuid.New(),
		Code:          "BIGCART",
		Type:          enums.CouponTypeFixed,
		Value:         5000,
		MinOrderCents: 80000,
		ExpiresAt:     time.Now().Add(time.Hour),
		UsageLimit:    5,
		Active:        true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	if _, err := svc.AddProduct(ctx, user, product.ID, 2); err != nil {
		t.Fatalf("add product: %v", err)
	}
	summary, err := svc.ApplyCoupon(ctx, user, "BIGCART")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if summary.DiscountCents != 5000 {
		t.Errorf("discount = %d, want 5000", summary.DiscountCents)
	}

	summary, err = svc.UpdateItemQty(ctx, user, summary.Items[0].ItemID, 1)
	if err != nil {
		t.Fatalf("update qty: %v", err)
	}
	if summary.CouponID != nil || summary.DiscountCents != 0 {
		t.Errorf("coupon should have been dropped, got %+v", summary)
	}
}

func TestApplyCouponEmptyCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	user := uuid.New()

	if _, err := db.DB(); err != nil {
		t.Fatalf("db: %v", err)
	}
	if err := db.Create(&models.CartRecord{ID: uuid.New(), UserID: user}).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := svc.ApplyCoupon(context.Background(), user, "ANY")
	if err == nil {
		t.Fatal("expected empty cart error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRemoveItemFromOtherUsersCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := uuid.New()
	intruder := uuid.New()
	product := seedProduct(t, db, 10000, 0)

	summary, err := svc.AddProduct(ctx, owner, product.ID, 1)
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if _, err := svc.AddProduct(ctx, intruder, product.ID, 1); err != nil {
		t.Fatalf("intruder add: %v", err)
	}

	_, err = svc.RemoveItem(ctx, intruder, summary.Items[0].ItemID)
	if err == nil {
		t.Fatal("expected not found error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}
