package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	"github.com/rigforge/rigforge-backend/pkg/pagination"
)

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, number int64, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		UserID:          userID,
		UserName:        "Dana Reyes",
		UserEmail:       "dana@example.com",
		PaymentMethod:   enums.PaymentMethodCOD,
		ItemsPriceCents: 250000,
		TotalPriceCents: 304900,
		Status:          status,
		CreatedAt:       createdAt,
		Items: []models.OrderItem{
			{
				ID:             uuid.New(),
				Name:           fmt.Sprintf("Build %d", number),
				Qty:            1,
				UnitPriceCents: 250000,
			},
		},
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestRepositoryFindByIDPreloadsItems(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedOrder(t, db, uuid.New(), 1001, enums.OrderStatusPending, time.Now().UTC())

	found, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.OrderNumber, found.OrderNumber)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Build 1001", found.Items[0].Name)
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedOrder(t, db, userID, int64(1001+i), enums.OrderStatusPending, base.Add(time.Duration(i)*time.Minute))
	}
	seedOrder(t, db, uuid.New(), 2001, enums.OrderStatusPending, base)

	page, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, int64(1003), page.Items[0].OrderNumber, "newest order first")

	rest, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)
	assert.Equal(t, int64(1001), rest.Items[0].OrderNumber)
}

func TestRepositoryListAllFiltersByStatus(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seedOrder(t, db, uuid.New(), 1001, enums.OrderStatusPending, now)
	shipped := seedOrder(t, db, uuid.New(), 1002, enums.OrderStatusShipped, now.Add(time.Minute))

	status := enums.OrderStatusShipped
	page, err := repo.ListAll(ctx, pagination.Params{Limit: 10}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, shipped.ID, page.Items[0].ID)
}

func TestRepositoryNextOrderNumber(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.NextOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), first, "empty table starts the sequence")

	seedOrder(t, db, uuid.New(), 1500, enums.OrderStatusPending, time.Now().UTC())

	next, err := repo.NextOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1501), next)
}

func TestRepositoryUpdateItem(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), 1001, enums.OrderStatusPending, time.Now().UTC())
	itemID := order.Items[0].ID

	reason := "customer cancelled"
	err := repo.UpdateItem(ctx, itemID, map[string]any{
		"status": enums.OrderItemStatusCancelled,
		"reason": reason,
	})
	require.NoError(t, err)

	var item models.OrderItem
	require.NoError(t, db.First(&item, "id = ?", itemID).Error)
	assert.Equal(t, enums.OrderItemStatusCancelled, item.Status)
	require.NotNil(t, item.Reason)
	assert.Equal(t, reason, *item.Reason)
}
