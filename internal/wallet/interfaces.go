package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

// Repository defines persistence operations for the wallet ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error)

	// SumOrderCredits totals the credit amounts already recorded against the
	// given order.
	SumOrderCredits(ctx context.Context, orderID uuid.UUID) (int, error)

	// IncrementBalance adds amount unconditionally; returns false when no
	// wallet row exists yet.
	IncrementBalance(ctx context.Context, userID uuid.UUID, amountCents int) (bool, error)

	// DecrementBalance subtracts amount guarded by balance_cents >= amount;
	// returns false when the guard missed.
	DecrementBalance(ctx context.Context, userID uuid.UUID, amountCents int) (bool, error)
}

// TransactionList is one page of wallet transactions.
type TransactionList struct {
	Items      []models.WalletTransaction
	NextCursor string
}
