package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/enums"
)

// Wallet is the denormalized running balance per user. It is only ever
// adjusted in the same transaction as a WalletTransaction insert, so the
// balance always equals the sum of that user's transaction amounts.
type Wallet struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	BalanceCents int       `gorm:"column:balance_cents;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletTransaction is one immutable movement on a user's wallet. AmountCents
// is signed: positive for credits, negative for debits.
type WalletTransaction struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	AmountCents int                         `gorm:"column:amount_cents;not null"`
	Type        enums.WalletTransactionType `gorm:"column:type;not null"`
	Description string                      `gorm:"column:description;not null"`
	OrderID     *uuid.UUID                  `gorm:"column:order_id;type:uuid"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
