package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fleet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CountUnits(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FleetUnit{}).
		Where("shop_id = ?", shopID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CreateUnits(ctx context.Context, units []models.FleetUnit) error {
	if len(units) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&units).Error
}

func (r *repository) ListUnits(ctx context.Context, shopID uuid.UUID) ([]models.FleetUnit, error) {
	var units []models.FleetUnit
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("name ASC").
		Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}

func (r *repository) FindUnit(ctx context.Context, unitID uuid.UUID) (*models.FleetUnit, error) {
	var unit models.FleetUnit
	err := r.db.WithContext(ctx).
		Where("id = ?", unitID).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindUnitByOrder(ctx context.Context, orderID uuid.UUID) (*models.FleetUnit, error) {
	var unit models.FleetUnit
	err := r.db.WithContext(ctx).
		Where("current_order_id = ?", orderID).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// ClaimUnit flips an available unit to busy in one conditional update, so
// two racing claims resolve to exactly one winner.
func (r *repository) ClaimUnit(ctx context.Context, unitID, orderID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FleetUnit{}).
		Where("id = ? AND status = ?", unitID, enums.FleetUnitStatusAvailable).
		Updates(map[string]any{
			"status":           enums.FleetUnitStatusBusy,
			"current_order_id": orderID,
			"last_assigned_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseUnit returns a busy unit to the pool. last_assigned_at is left in
// place for audit.
func (r *repository) ReleaseUnit(ctx context.Context, unitID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FleetUnit{}).
		Where("id = ? AND status = ?", unitID, enums.FleetUnitStatusBusy).
		Updates(map[string]any{
			"status":           enums.FleetUnitStatusAvailable,
			"current_order_id": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ResetUnits(ctx context.Context, shopID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.FleetUnit{}).
		Where("shop_id = ?", shopID).
		Updates(map[string]any{
			"status":             enums.FleetUnitStatusAvailable,
			"current_order_id":   nil,
			"maintenance_reason": nil,
		}).Error
}

func (r *repository) UpdateUnitStatusIf(ctx context.Context, unitID uuid.UUID, from enums.FleetUnitStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FleetUnit{}).
		Where("id = ? AND status = ?", unitID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
