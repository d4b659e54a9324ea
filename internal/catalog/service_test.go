package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Component{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedBuildComponents(t *testing.T, db *gorm.DB) map[enums.ComponentCategory]uuid.UUID {
	t.Helper()
	configuration := make(map[enums.ComponentCategory]uuid.UUID, len(enums.BuildSlots))
	for _, slot := range enums.BuildSlots {
		component := models.Component{
			ID:         uuid.New(),
			Name:       "test " + string(slot),
			Category:   slot,
			PriceCents: 15000,
			Stock:      10,
			Active:     true,
		}
		if err := db.Create(&component).Error; err != nil {
			t.Fatalf("seed %s: %v", slot, err)
		}
		configuration[slot] = component.ID
	}
	return configuration
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSnapshotConfiguration(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	configuration := seedBuildComponents(t, db)

	snapshots, err := svc.SnapshotConfiguration(context.Background(), configuration)
	if err != nil {
		t.Fatalf("snapshot configuration: %v", err)
	}
	if len(snapshots) != len(enums.BuildSlots) {
		t.Fatalf("expected %d snapshots, got %d", len(enums.BuildSlots), len(snapshots))
	}
	for i, slot := range enums.BuildSlots {
		if snapshots[i].Category != slot {
			t.Errorf("snapshot %d category = %s, want %s", i, snapshots[i].Category, slot)
		}
		if snapshots[i].PriceCents != 15000 {
			t.Errorf("snapshot %d price = %d, want 15000", i, snapshots[i].PriceCents)
		}
	}
}

func TestSnapshotConfigurationMissingSlot(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	configuration := seedBuildComponents(t, db)
	delete(configuration, enums.ComponentCategoryPSU)

	_, err := svc.SnapshotConfiguration(context.Background(), configuration)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSnapshotConfigurationCategoryMismatch(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	configuration := seedBuildComponents(t, db)

	// point the cpu slot at the gpu component
	configuration[enums.ComponentCategoryCPU] = configuration[enums.ComponentCategoryGPU]

	_, err := svc.SnapshotConfiguration(context.Background(), configuration)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSnapshotConfigurationInactiveComponent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	configuration := seedBuildComponents(t, db)

	if err := db.Model(&models.Component{}).
		Where("id = ?", configuration[enums.ComponentCategoryGPU]).
		Update("active", false).Error; err != nil {
		t.Fatalf("deactivate component: %v", err)
	}

	_, err := svc.SnapshotConfiguration(context.Background(), configuration)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetComponentDecodesSpecs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	specs, _ := json.Marshal(types.CPUSpecs{Cores: 16, Threads: 32, BaseClockMHz: 4300, Socket: "AM5"})
	component := models.Component{
		ID:         uuid.New(),
		Name:       "Ryzen 9 9950X",
		Category:   enums.ComponentCategoryCPU,
		PriceCents: 64900,
		Stock:      3,
		Specs:      specs,
		Active:     true,
	}
	if err := db.Create(&component).Error; err != nil {
		t.Fatalf("seed component: %v", err)
	}

	detail, err := svc.GetComponent(context.Background(), component.ID)
	if err != nil {
		t.Fatalf("get component: %v", err)
	}
	cpu, ok := detail.DecodedSpecs.(*types.CPUSpecs)
	if !ok {
		t.Fatalf("decoded specs type = %T", detail.DecodedSpecs)
	}
	if cpu.Cores != 16 || cpu.Socket != "AM5" {
		t.Errorf("unexpected decoded specs: %+v", cpu)
	}
}

func TestGetProductNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.GetProduct(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}
