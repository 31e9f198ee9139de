package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
)

func setupFleetTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	fleetUnits := `
CREATE TABLE IF NOT EXISTS fleet_units (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  current_order_id TEXT,
  last_assigned_at DATETIME,
  maintenance_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (shop_id, name)
);`
	require.NoError(t, db.Exec(fleetUnits).Error)
	return db
}

func createFleetUnit(t *testing.T, db *gorm.DB, shopID uuid.UUID, name string, status enums.FleetUnitStatus) *models.FleetUnit {
	t.Helper()

	unit := &models.FleetUnit{
		ID:     uuid.New(),
		ShopID: shopID,
		Name:   name,
		Status: status,
	}
	require.NoError(t, db.Create(unit).Error)
	return unit
}

func TestClaimUnitSingleWinner(t *testing.T) {
	db := setupFleetTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shopID := uuid.New()
	unit := createFleetUnit(t, db, shopID, "Unit-1", enums.FleetUnitStatusAvailable)
	firstOrder := uuid.New()
	secondOrder := uuid.New()
	now := time.Now().UTC()

	claimed, err := repo.ClaimUnit(ctx, unit.ID, firstOrder, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim races against the first and must lose.
	claimed, err = repo.ClaimUnit(ctx, unit.ID, secondOrder, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := repo.FindUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FleetUnitStatusBusy, got.Status)
	require.NotNil(t, got.CurrentOrderID)
	assert.Equal(t, firstOrder, *got.CurrentOrderID)
	require.NotNil(t, got.LastAssignedAt)
}

func TestReleaseUnitRetainsLastAssignedAt(t *testing.T) {
	db := setupFleetTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shopID := uuid.New()
	unit := createFleetUnit(t, db, shopID, "Unit-1", enums.FleetUnitStatusAvailable)
	now := time.Now().UTC()

	claimed, err := repo.ClaimUnit(ctx, unit.ID, uuid.New(), now)
	require.NoError(t, err)
	require.True(t, claimed)

	released, err := repo.ReleaseUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.True(t, released)

	got, err := repo.FindUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FleetUnitStatusAvailable, got.Status)
	assert.Nil(t, got.CurrentOrderID)
	require.NotNil(t, got.LastAssignedAt)

	// Releasing an already-available unit is a no-op.
	released, err = repo.ReleaseUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestResetUnitsIdempotent(t *testing.T) {
	db := setupFleetTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shopID := uuid.New()
	now := time.Now().UTC()
	busy := createFleetUnit(t, db, shopID, "Unit-1", enums.FleetUnitStatusAvailable)
	claimed, err := repo.ClaimUnit(ctx, busy.ID, uuid.New(), now)
	require.NoError(t, err)
	require.True(t, claimed)

	maint := createFleetUnit(t, db, shopID, "Unit-2", enums.FleetUnitStatusUnderMaintenance)
	reason := "rotor swap"
	require.NoError(t, db.Model(maint).Update("maintenance_reason", reason).Error)

	otherShop := createFleetUnit(t, db, uuid.New(), "Unit-1", enums.FleetUnitStatusUnderMaintenance)

	require.NoError(t, repo.ResetUnits(ctx, shopID))
	require.NoError(t, repo.ResetUnits(ctx, shopID))

	units, err := repo.ListUnits(ctx, shopID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	for _, unit := range units {
		assert.Equal(t, enums.FleetUnitStatusAvailable, unit.Status)
		assert.Nil(t, unit.CurrentOrderID)
		assert.Nil(t, unit.MaintenanceReason)
	}

	untouched, err := repo.FindUnit(ctx, otherShop.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FleetUnitStatusUnderMaintenance, untouched.Status)
}

func TestFindUnitByOrder(t *testing.T) {
	db := setupFleetTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shopID := uuid.New()
	unit := createFleetUnit(t, db, shopID, "Unit-1", enums.FleetUnitStatusAvailable)
	orderID := uuid.New()
	claimed, err := repo.ClaimUnit(ctx, unit.ID, orderID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, claimed)

	got, err := repo.FindUnitByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, unit.ID, got.ID)

	_, err = repo.FindUnitByOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListUnitsOrderedByName(t *testing.T) {
	db := setupFleetTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shopID := uuid.New()
	createFleetUnit(t, db, shopID, "Unit-2", enums.FleetUnitStatusAvailable)
	createFleetUnit(t, db, shopID, "Unit-1", enums.FleetUnitStatusAvailable)
	createFleetUnit(t, db, shopID, "Unit-3", enums.FleetUnitStatusBusy)

	units, err := repo.ListUnits(ctx, shopID)
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "Unit-1", units[0].Name)
	assert.Equal(t, "Unit-2", units[1].Name)
	assert.Equal(t, "Unit-3", units[2].Name)

	count, err := repo.CountUnits(ctx, shopID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}
