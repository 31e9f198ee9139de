package fleet

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
)

// AssignInput is the dispatch request binding a drone to a prepared order.
type AssignInput struct {
	SessionID uuid.UUID
	OrderID   uuid.UUID
	UnitID    uuid.UUID
	Actor     orders.Actor
}

// UpdateMaintenanceInput toggles a unit in or out of maintenance.
type UpdateMaintenanceInput struct {
	UnitID uuid.UUID
	Target enums.FleetUnitStatus
	Reason string
	Actor  orders.Actor
}

// UnitDTO is the API shape of a fleet unit.
type UnitDTO struct {
	ID                uuid.UUID             `json:"id"`
	ShopID            uuid.UUID             `json:"shopId"`
	Name              string                `json:"name"`
	Status            enums.FleetUnitStatus `json:"status"`
	CurrentOrderID    *uuid.UUID            `json:"currentOrderId,omitempty"`
	LastAssignedAt    *time.Time            `json:"lastAssignedAt,omitempty"`
	MaintenanceReason *string               `json:"maintenanceReason,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
}

// AssignResult reports both sides of a successful dispatch.
type AssignResult struct {
	Unit  UnitDTO          `json:"unit"`
	Order *orders.OrderDTO `json:"order"`
}

func toUnitDTO(unit *models.FleetUnit) *UnitDTO {
	return &UnitDTO{
		ID:                unit.ID,
		ShopID:            unit.ShopID,
		Name:              unit.Name,
		Status:            unit.Status,
		CurrentOrderID:    unit.CurrentOrderID,
		LastAssignedAt:    unit.LastAssignedAt,
		MaintenanceReason: unit.MaintenanceReason,
		CreatedAt:         unit.CreatedAt,
	}
}
