package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
)

// Repository defines persistence operations for shops and menu items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateShop(ctx context.Context, shop *models.Shop) (*models.Shop, error)
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	UpdateShop(ctx context.Context, shopID uuid.UUID, updates map[string]any) error
	ListActiveShops(ctx context.Context) ([]models.Shop, error)
	CreateMenuItem(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error)
	FindMenuItem(ctx context.Context, itemID uuid.UUID) (*models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	ListMenuItemsByShop(ctx context.Context, shopID uuid.UUID, availableOnly bool) ([]models.MenuItem, error)
	FindMenuItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.MenuItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateShop(ctx context.Context, shop *models.Shop) (*models.Shop, error) {
	if err := r.db.WithContext(ctx).Create(shop).Error; err != nil {
		return nil, err
	}
	return shop, nil
}

func (r *repository) FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Where("id = ?", shopID).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) UpdateShop(ctx context.Context, shopID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shopID).
		Updates(updates).Error
}

func (r *repository) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&shops).Error
	if err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *repository) CreateMenuItem(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) FindMenuItem(ctx context.Context, itemID uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateMenuItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

func (r *repository) ListMenuItemsByShop(ctx context.Context, shopID uuid.UUID, availableOnly bool) ([]models.MenuItem, error) {
	query := r.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if availableOnly {
		query = query.Where("available = ?", true)
	}
	var items []models.MenuItem
	if err := query.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindMenuItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.MenuItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var items []models.MenuItem
	err := r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
