package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Component{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedComponent(t *testing.T, db *gorm.DB, name string, category enums.ComponentCategory, stock int) uuid.UUID {
	t.Helper()
	component := models.Component{
		ID:         uuid.New(),
		Name:       name,
		Category:   category,
		PriceCents: 10000,
		Stock:      stock,
		Active:     true,
	}
	if err := db.Create(&component).Error; err != nil {
		t.Fatalf("seed component: %v", err)
	}
	return component.ID
}

func TestReserveDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	cpu := seedComponent(t, db, "Ryzen 9 9950X", enums.ComponentCategoryCPU, 5)
	gpu := seedComponent(t, db, "RTX 5080", enums.ComponentCategoryGPU, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []Requirement{
			{ComponentID: cpu, Qty: 2},
			{ComponentID: cpu, Qty: 1},
			{ComponentID: gpu, Qty: 2},
		})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var cpuRow, gpuRow models.Component
	if err := db.First(&cpuRow, "id = ?", cpu).Error; err != nil {
		t.Fatalf("load cpu: %v", err)
	}
	if err := db.First(&gpuRow, "id = ?", gpu).Error; err != nil {
		t.Fatalf("load gpu: %v", err)
	}
	if cpuRow.Stock != 2 {
		t.Errorf("cpu stock = %d, want 2", cpuRow.Stock)
	}
	if gpuRow.Stock != 0 {
		t.Errorf("gpu stock = %d, want 0", gpuRow.Stock)
	}
}

func TestReserveInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	cpu := seedComponent(t, db, "Core Ultra 9 285K", enums.ComponentCategoryCPU, 2)
	gpu := seedComponent(t, db, "RTX 5090", enums.ComponentCategoryGPU, 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []Requirement{
			{ComponentID: gpu, Qty: 1},
			{ComponentID: cpu, Qty: 3},
		})
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected error: %v", err)
	}

	// rollback must restore both rows
	var cpuRow, gpuRow models.Component
	if err := db.First(&cpuRow, "id = ?", cpu).Error; err != nil {
		t.Fatalf("load cpu: %v", err)
	}
	if err := db.First(&gpuRow, "id = ?", gpu).Error; err != nil {
		t.Fatalf("load gpu: %v", err)
	}
	if cpuRow.Stock != 2 {
		t.Errorf("cpu stock = %d, want 2", cpuRow.Stock)
	}
	if gpuRow.Stock != 10 {
		t.Errorf("gpu stock = %d, want 10", gpuRow.Stock)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	cpu := seedComponent(t, db, "Ryzen 7 9800X3D", enums.ComponentCategoryCPU, 5)

	err := Reserve(context.Background(), db, []Requirement{{ComponentID: cpu, Qty: 0}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ram := seedComponent(t, db, "Trident Z5 64GB", enums.ComponentCategoryRAM, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, []Requirement{
			{ComponentID: ram, Qty: 4},
			{ComponentID: uuid.New(), Qty: 0}, // zero qty is a no-op even for unknown ids
		})
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	var row models.Component
	if err := db.First(&row, "id = ?", ram).Error; err != nil {
		t.Fatalf("load component: %v", err)
	}
	if row.Stock != 5 {
		t.Errorf("stock = %d, want 5", row.Stock)
	}
}

func TestReleaseUnknownComponent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	err := Release(context.Background(), db, []Requirement{{ComponentID: uuid.New(), Qty: 1}})
	if err == nil {
		t.Fatal("expected not found error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAggregateMergesAndSorts(t *testing.T) {
	t.Parallel()

	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	merged, err := Aggregate([]Requirement{
		{ComponentID: b, Qty: 1},
		{ComponentID: a, Qty: 2},
		{ComponentID: b, Qty: 3},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(merged))
	}
	if merged[0].ComponentID != a || merged[0].Qty != 2 {
		t.Errorf("unexpected first requirement: %+v", merged[0])
	}
	if merged[1].ComponentID != b || merged[1].Qty != 4 {
		t.Errorf("unexpected second requirement: %+v", merged[1])
	}
}
