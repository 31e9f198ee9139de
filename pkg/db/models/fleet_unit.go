package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/pkg/enums"
)

// FleetUnit is one delivery drone owned by a shop. Units are provisioned
// lazily the first time a shop dispatches, named Unit-1 through Unit-N.
type FleetUnit struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID            uuid.UUID             `gorm:"column:shop_id;type:uuid;not null;index:idx_fleet_units_shop_name,unique"`
	Name              string                `gorm:"column:name;not null;index:idx_fleet_units_shop_name,unique"`
	Status            enums.FleetUnitStatus `gorm:"column:status;type:text;not null;default:'available'"`
	CurrentOrderID    *uuid.UUID            `gorm:"column:current_order_id;type:uuid"`
	LastAssignedAt    *time.Time            `gorm:"column:last_assigned_at"`
	MaintenanceReason *string               `gorm:"column:maintenance_reason"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
