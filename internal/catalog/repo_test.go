package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/types"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	shops := `
CREATE TABLE IF NOT EXISTS shops (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  phone TEXT,
  owner_id TEXT NOT NULL,
  address_text TEXT NOT NULL,
  address_lat REAL NOT NULL DEFAULT 0,
  address_lng REAL NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	menuItems := `
CREATE TABLE IF NOT EXISTS menu_items (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image_url TEXT,
  price INTEGER NOT NULL,
  available INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(shops).Error)
	require.NoError(t, db.Exec(menuItems).Error)
	return db
}

func newShop(t *testing.T, db *gorm.DB, name string, active bool) *models.Shop {
	t.Helper()

	shop := &models.Shop{
		ID:      uuid.New(),
		Name:    name,
		OwnerID: uuid.New(),
		Address: types.Address{
			Text: "12 Hang Bai, Hoan Kiem, Hanoi",
			Lat:  21.0245,
			Lng:  105.8412,
		},
		Active: active,
	}
	require.NoError(t, db.Create(shop).Error)
	return shop
}

func newMenuItem(t *testing.T, db *gorm.DB, shopID uuid.UUID, name string, price int64, available bool) *models.MenuItem {
	t.Helper()

	item := &models.MenuItem{
		ID:        uuid.New(),
		ShopID:    shopID,
		Name:      name,
		Price:     price,
		Available: available,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestRepositoryListActiveShops(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	active := newShop(t, db, "Pho Corner", true)
	newShop(t, db, "Closed Kitchen", false)

	shops, err := repo.ListActiveShops(context.Background())
	require.NoError(t, err)

	var found bool
	for _, shop := range shops {
		assert.True(t, shop.Active)
		if shop.ID == active.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRepositoryListMenuItemsByShop_availableFilter(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	shop := newShop(t, db, "Banh Mi 25", true)
	newMenuItem(t, db, shop.ID, "Banh Mi Thit", 35000, true)
	newMenuItem(t, db, shop.ID, "Banh Mi Trung", 25000, false)

	all, err := repo.ListMenuItemsByShop(context.Background(), shop.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	available, err := repo.ListMenuItemsByShop(context.Background(), shop.ID, true)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Banh Mi Thit", available[0].Name)
}

func TestRepositoryFindMenuItemsByIDs(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	shop := newShop(t, db, "Com Tam 37", true)
	first := newMenuItem(t, db, shop.ID, "Com Tam Suon", 45000, true)
	second := newMenuItem(t, db, shop.ID, "Com Tam Bi Cha", 50000, true)

	items, err := repo.FindMenuItemsByIDs(context.Background(), []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, items, 2)

	empty, err := repo.FindMenuItemsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryUpdateMenuItem(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	shop := newShop(t, db, "Bun Cha Huong Lien", true)
	item := newMenuItem(t, db, shop.ID, "Bun Cha", 60000, true)

	err := repo.UpdateMenuItem(context.Background(), item.ID, map[string]any{
		"price":     65000,
		"available": false,
	})
	require.NoError(t, err)

	reloaded, err := repo.FindMenuItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(65000), reloaded.Price)
	assert.False(t, reloaded.Available)
}
