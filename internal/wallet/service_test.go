package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:wallet_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Wallet{}, &models.WalletTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertBalanceMatchesLedger(t *testing.T, db *gorm.DB, svc Service, userID uuid.UUID) {
	t.Helper()
	balance, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	var txns []models.WalletTransaction
	if err := db.Where("user_id = ?", userID).Find(&txns).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	sum := 0
	for _, txn := range txns {
		sum += txn.AmountCents
	}
	if balance != sum {
		t.Errorf("balance %d != transaction sum %d", balance, sum)
	}
}

func TestCreditCreatesWalletLazily(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Credit(ctx, tx, user, 5000, nil, "refund for cancelled order")
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	balance, err := svc.Balance(ctx, user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5000 {
		t.Errorf("balance = %d, want 5000", balance)
	}
	assertBalanceMatchesLedger(t, db, svc, user)
}

func TestDebitInsufficientBalance(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Credit(ctx, tx, user, 3000, nil, "top up")
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Debit(ctx, tx, user, 5000, nil, "order payment")
	})
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientWallet) {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := svc.Balance(ctx, user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3000 {
		t.Errorf("balance = %d, want 3000 untouched", balance)
	}
	assertBalanceMatchesLedger(t, db, svc, user)
}

func TestDebitUnknownWallet(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Debit(context.Background(), tx, uuid.New(), 100, nil, "order payment")
	})
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientWallet) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBalanceEqualsTransactionSum(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()
	orderID := uuid.New()

	steps := []func(tx *gorm.DB) error{
		func(tx *gorm.DB) error { return svc.Credit(ctx, tx, user, 10000, nil, "top up") },
		func(tx *gorm.DB) error { return svc.Debit(ctx, tx, user, 4500, &orderID, "order payment") },
		func(tx *gorm.DB) error { return svc.Credit(ctx, tx, user, 1200, &orderID, "partial refund") },
		func(tx *gorm.DB) error { return svc.Debit(ctx, tx, user, 700, nil, "order payment") },
	}
	for i, step := range steps {
		if err := db.Transaction(step); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertBalanceMatchesLedger(t, db, svc, user)
	}

	balance, err := svc.Balance(ctx, user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 6000 {
		t.Errorf("balance = %d, want 6000", balance)
	}
}

func TestCreditedForOrderCountsOnlyThatOrdersCredits(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	user := uuid.New()
	orderID := uuid.New()
	otherOrderID := uuid.New()

	steps := []func(tx *gorm.DB) error{
		func(tx *gorm.DB) error { return svc.Credit(ctx, tx, user, 10000, &orderID, "refund") },
		func(tx *gorm.DB) error { return svc.Credit(ctx, tx, user, 2500, &orderID, "refund") },
		func(tx *gorm.DB) error { return svc.Credit(ctx, tx, user, 9999, &otherOrderID, "refund") },
		func(tx *gorm.DB) error { return svc.Debit(ctx, tx, user, 4000, &orderID, "order payment") },
	}
	for i, step := range steps {
		if err := db.Transaction(step); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	total, err := svc.CreditedForOrder(ctx, nil, orderID)
	if err != nil {
		t.Fatalf("credited for order: %v", err)
	}
	if total != 12500 {
		t.Errorf("credited = %d, want 12500 (debits and other orders excluded)", total)
	}

	total, err = svc.CreditedForOrder(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("credited for unknown order: %v", err)
	}
	if total != 0 {
		t.Errorf("credited = %d, want 0", total)
	}
}

func TestBalanceZeroForUnknownUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	balance, err := svc.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}
