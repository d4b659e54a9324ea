package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

// ComponentDetail is a component with its category-specific specs decoded.
type ComponentDetail struct {
	models.Component
	DecodedSpecs any `json:"decoded_specs,omitempty"`
}

// Service exposes catalog reads to controllers and to the order flow.
type Service interface {
	ListComponents(ctx context.Context, params pagination.Params, filters ComponentFilters) (*ComponentList, error)
	GetComponent(ctx context.Context, id uuid.UUID) (*ComponentDetail, error)
	ListProducts(ctx context.Context, params pagination.Params, activeOnly bool) (*ProductList, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SnapshotConfiguration(ctx context.Context, configuration map[enums.ComponentCategory]uuid.UUID) (types.ComponentSnapshots, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListComponents(ctx context.Context, params pagination.Params, filters ComponentFilters) (*ComponentList, error) {
	list, err := s.repo.ListComponents(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing components")
	}
	return list, nil
}

func (s *service) GetComponent(ctx context.Context, id uuid.UUID) (*ComponentDetail, error) {
	component, err := s.repo.FindComponent(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "component not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading component")
	}

	detail := &ComponentDetail{Component: *component}
	if len(component.Specs) > 0 {
		decoded, err := types.DecodeComponentSpecs(component.Category, component.Specs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding component specs")
		}
		detail.DecodedSpecs = decoded
	}
	return detail, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params, activeOnly bool) (*ProductList, error) {
	list, err := s.repo.ListProducts(ctx, params, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}
	return list, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return product, nil
}

// SnapshotConfiguration resolves a full 8-slot configuration into frozen
// component snapshots. Every build slot must be present, resolve to an active
// component, and that component's category must match its slot.
func (s *service) SnapshotConfiguration(ctx context.Context, configuration map[enums.ComponentCategory]uuid.UUID) (types.ComponentSnapshots, error) {
	ids := make([]uuid.UUID, 0, len(enums.BuildSlots))
	for _, slot := range enums.BuildSlots {
		id, ok := configuration[slot]
		if !ok || id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("build is missing the %s slot", slot))
		}
		ids = append(ids, id)
	}

	components, err := s.repo.FindComponents(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading build components")
	}
	byID := make(map[uuid.UUID]models.Component, len(components))
	for _, component := range components {
		byID[component.ID] = component
	}

	snapshots := make(types.ComponentSnapshots, 0, len(enums.BuildSlots))
	for _, slot := range enums.BuildSlots {
		id := configuration[slot]
		component, ok := byID[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("component %s not found", id))
		}
		if !component.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("component %s is no longer available", component.Name))
		}
		if component.Category != slot {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("component %s is a %s, not a %s", component.Name, component.Category, slot))
		}
		snapshots = append(snapshots, types.ComponentSnapshot{
			ComponentID: component.ID,
			Category:    component.Category,
			Name:        component.Name,
			PriceCents:  component.PriceCents,
			Image:       component.Image,
			Specs:       component.Specs,
		})
	}
	return snapshots, nil
}
