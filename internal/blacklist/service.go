package blacklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

// Service records components permanently withdrawn from stock. Entries are
// created when a return is approved with damage flagged; the components never
// re-enter inventory.
type Service interface {
	// Withdraw writes a blacklist entry inside the caller's transaction.
	Withdraw(ctx context.Context, tx *gorm.DB, orderID, orderItemID uuid.UUID, reason string, components types.BlacklistedComponents) error

	List(ctx context.Context, params pagination.Params) (*EntryList, error)
}

type service struct {
	repo Repository
}

// NewService builds a blacklist service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("blacklist repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Withdraw(ctx context.Context, tx *gorm.DB, orderID, orderItemID uuid.UUID, reason string, components types.BlacklistedComponents) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "blacklist reason required")
	}
	if len(components) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "blacklist entry needs at least one component")
	}

	entry := &models.BlacklistEntry{
		ID:          uuid.New(),
		OrderID:     orderID,
		OrderItemID: orderItemID,
		Reason:      reason,
		Components:  components,
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing blacklist entry")
	}
	return nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*EntryList, error) {
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing blacklist entries")
	}
	return list, nil
}
