package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
)

// Repository defines persistence operations for fleet units.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CountUnits(ctx context.Context, shopID uuid.UUID) (int64, error)
	CreateUnits(ctx context.Context, units []models.FleetUnit) error
	ListUnits(ctx context.Context, shopID uuid.UUID) ([]models.FleetUnit, error)
	FindUnit(ctx context.Context, unitID uuid.UUID) (*models.FleetUnit, error)
	FindUnitByOrder(ctx context.Context, orderID uuid.UUID) (*models.FleetUnit, error)
	ClaimUnit(ctx context.Context, unitID, orderID uuid.UUID, now time.Time) (bool, error)
	ReleaseUnit(ctx context.Context, unitID uuid.UUID) (bool, error)
	ResetUnits(ctx context.Context, shopID uuid.UUID) error
	UpdateUnitStatusIf(ctx context.Context, unitID uuid.UUID, from enums.FleetUnitStatus, updates map[string]any) (bool, error)
}
