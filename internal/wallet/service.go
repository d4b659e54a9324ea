package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

// Service maintains the append-only wallet ledger. Every balance change
// inserts a transaction row and adjusts the denormalized balance in the same
// database transaction, so the balance always equals the transaction sum.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error)

	Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amountCents int, orderID *uuid.UUID, description string) error
	Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amountCents int, orderID *uuid.UUID, description string) error

	// CreditedForOrder reports how many cents have already been credited
	// back against the given order.
	CreditedForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error)
}

type service struct {
	repo Repository
}

// NewService builds a wallet service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	wallet, err := s.repo.FindWallet(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading wallet")
	}
	return wallet.BalanceCents, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	list, err := s.repo.ListTransactions(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing wallet transactions")
	}
	return list, nil
}

func (s *service) CreditedForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error) {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	total, err := repo.SumOrderCredits(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing order credits")
	}
	return total, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amountCents int, orderID *uuid.UUID, description string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	updated, err := repo.IncrementBalance(ctx, userID, amountCents)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "crediting wallet")
	}
	if !updated {
		// first credit creates the wallet row
		if err := repo.CreateWallet(ctx, &models.Wallet{UserID: userID, BalanceCents: amountCents}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating wallet")
		}
	}

	txn := &models.WalletTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: amountCents,
		Type:        enums.WalletTransactionCredit,
		Description: description,
		OrderID:     orderID,
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording wallet credit")
	}
	return nil
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amountCents int, orderID *uuid.UUID, description string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	debited, err := repo.DecrementBalance(ctx, userID, amountCents)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debiting wallet")
	}
	if !debited {
		return pkgerrors.New(pkgerrors.CodeInsufficientWallet, "insufficient wallet balance")
	}

	txn := &models.WalletTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: -amountCents,
		Type:        enums.WalletTransactionDebit,
		Description: description,
		OrderID:     orderID,
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording wallet debit")
	}
	return nil
}
