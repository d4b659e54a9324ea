package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
)

// Requirement is the quantity of one component a caller needs to reserve or
// release. Callers pass the raw per-line requirements; Reserve aggregates
// duplicates itself.
type Requirement struct {
	ComponentID uuid.UUID
	Qty         int
}

// ShortageDetail describes a failed reservation for error payloads.
type ShortageDetail struct {
	ComponentID uuid.UUID `json:"component_id"`
	Name        string    `json:"name"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// Aggregate merges duplicate component ids and returns the requirements
// sorted by id. Sorting gives every transaction the same row update order,
// which keeps concurrent checkouts from deadlocking each other.
func Aggregate(reqs []Requirement) ([]Requirement, error) {
	totals := make(map[uuid.UUID]int, len(reqs))
	for _, req := range reqs {
		if req.ComponentID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "component id required")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid quantity %d for component %s", req.Qty, req.ComponentID))
		}
		totals[req.ComponentID] += req.Qty
	}

	merged := make([]Requirement, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Requirement{ComponentID: id, Qty: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ComponentID.String() < merged[j].ComponentID.String()
	})
	return merged, nil
}

// Reserve decrements component stock for every requirement inside the
// caller's transaction. Each decrement is conditional on sufficient stock;
// the first shortage aborts with INSUFFICIENT_STOCK so the caller's rollback
// undoes the decrements already applied.
func Reserve(ctx context.Context, tx *gorm.DB, reqs []Requirement) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(reqs) == 0 {
		return nil
	}

	merged, err := Aggregate(reqs)
	if err != nil {
		return err
	}

	for _, req := range merged {
		res := tx.WithContext(ctx).
			Model(&models.Component{}).
			Where("id = ? AND stock >= ?", req.ComponentID, req.Qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", req.Qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserving component stock")
		}
		if res.RowsAffected == 0 {
			return shortageError(ctx, tx, req)
		}
	}
	return nil
}

// Release returns previously reserved stock inside the caller's transaction.
// Zero-quantity requirements are skipped so callers can pass computed maps
// without filtering.
func Release(ctx context.Context, tx *gorm.DB, reqs []Requirement) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}

	for _, req := range reqs {
		if req.Qty == 0 {
			continue
		}
		if req.ComponentID == uuid.Nil || req.Qty < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid release of %d for component %s", req.Qty, req.ComponentID))
		}
		res := tx.WithContext(ctx).
			Model(&models.Component{}).
			Where("id = ?", req.ComponentID).
			UpdateColumn("stock", gorm.Expr("stock + ?", req.Qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "releasing component stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("component %s not found", req.ComponentID))
		}
	}
	return nil
}

func shortageError(ctx context.Context, tx *gorm.DB, req Requirement) error {
	detail := ShortageDetail{ComponentID: req.ComponentID, Requested: req.Qty}

	var component models.Component
	if err := tx.WithContext(ctx).
		Select("name", "stock").
		Where("id = ?", req.ComponentID).
		First(&component).Error; err == nil {
		detail.Name = component.Name
		detail.Available = component.Stock
	} else if err == gorm.ErrRecordNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("component %s not found", req.ComponentID)).
			WithDetails(detail)
	}

	msg := fmt.Sprintf("insufficient stock for component %s", req.ComponentID)
	if detail.Name != "" {
		msg = fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
			detail.Name, detail.Requested, detail.Available)
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(detail)
}
