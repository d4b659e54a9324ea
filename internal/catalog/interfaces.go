package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

// ComponentFilters narrows component listings.
type ComponentFilters struct {
	Category   *enums.ComponentCategory
	Tag        string
	ActiveOnly bool
}

// Repository defines persistence operations for catalog tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindComponent(ctx context.Context, id uuid.UUID) (*models.Component, error)
	FindComponents(ctx context.Context, ids []uuid.UUID) ([]models.Component, error)
	ListComponents(ctx context.Context, params pagination.Params, filters ComponentFilters) (*ComponentList, error)

	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, params pagination.Params, activeOnly bool) (*ProductList, error)
}

// ComponentList is one page of components.
type ComponentList struct {
	Items      []models.Component
	NextCursor string
}

// ProductList is one page of products.
type ProductList struct {
	Items      []models.Product
	NextCursor string
}
