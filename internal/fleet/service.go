package fleet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/pkg/config"
	dbpkg "github.com/skyserve/skyserve-backend/pkg/db"
	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
	"github.com/skyserve/skyserve-backend/pkg/logger"
	"github.com/skyserve/skyserve-backend/pkg/outbox"
	"github.com/skyserve/skyserve-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type shopLoader interface {
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
}

// HandoverScheduler queues the automatic handed_over to in_transit advance.
type HandoverScheduler interface {
	ScheduleHandover(ctx context.Context, orderID uuid.UUID, delay time.Duration) error
}

// Service defines fleet registry and dispatch operations.
type Service interface {
	ListUnits(ctx context.Context, actor orders.Actor, shopID uuid.UUID) ([]UnitDTO, error)
	Assign(ctx context.Context, input AssignInput) (*AssignResult, error)
	Release(ctx context.Context, actor orders.Actor, unitID uuid.UUID) (*UnitDTO, error)
	ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ResetFleet(ctx context.Context, actor orders.Actor, shopID uuid.UUID) error
	UpdateUnitMaintenance(ctx context.Context, input UpdateMaintenanceInput) (*UnitDTO, error)
}

type service struct {
	repo      Repository
	orders    orders.Repository
	shops     shopLoader
	tx        txRunner
	outbox    outboxPublisher
	scheduler HandoverScheduler
	cfg       config.DispatchConfig
	logg      *logger.Logger
}

// NewService builds a fleet service with the required dependencies. The
// scheduler is optional; without it assigned orders rely on the repair
// sweep alone.
func NewService(repo Repository, ordersRepo orders.Repository, shops shopLoader, tx txRunner, outboxSvc outboxPublisher, scheduler HandoverScheduler, cfg config.DispatchConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fleet repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shop loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.FleetSize <= 0 {
		return nil, fmt.Errorf("fleet size must be positive")
	}
	return &service{
		repo:      repo,
		orders:    ordersRepo,
		shops:     shops,
		tx:        tx,
		outbox:    outboxSvc,
		scheduler: scheduler,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

// ListUnits returns the shop's fleet, provisioning it on first use.
func (s *service) ListUnits(ctx context.Context, actor orders.Actor, shopID uuid.UUID) ([]UnitDTO, error) {
	if err := s.authorizeShop(actor, shopID); err != nil {
		return nil, err
	}
	if err := s.ensureFleet(ctx, shopID); err != nil {
		return nil, err
	}
	units, err := s.repo.ListUnits(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fleet units")
	}
	out := make([]UnitDTO, 0, len(units))
	for i := range units {
		out = append(out, *toUnitDTO(&units[i]))
	}
	return out, nil
}

// Assign binds an available unit to a prepared order. The unit claim and the
// order hand-off happen in one transaction, so a failure on either side
// rolls back both.
func (s *service) Assign(ctx context.Context, input AssignInput) (*AssignResult, error) {
	if input.OrderID == uuid.Nil || input.UnitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and unit id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *AssignResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if input.SessionID != uuid.Nil && order.SessionID != input.SessionID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		unit, err := repo.FindUnit(ctx, input.UnitID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
		}
		if input.Actor.Role != enums.ActorRoleAdmin {
			if input.Actor.Role != enums.ActorRoleShopOwner || input.Actor.ShopID == nil || *input.Actor.ShopID != order.ShopID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to operator")
			}
		}
		if order.Status != enums.OrderStatusPrepared {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "can only assign to prepared orders").
				WithDetails(map[string]any{"status": order.Status})
		}
		if unit.ShopID != order.ShopID {
			return pkgerrors.New(pkgerrors.CodeConflict, "unit does not belong to the order's shop")
		}
		if unit.Status != enums.FleetUnitStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeUnavailable, "unit is not available")
		}

		now := time.Now().UTC()
		claimed, err := repo.ClaimUnit(ctx, unit.ID, order.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim unit")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeUnavailable, "unit is not available")
		}
		moved, err := ordersRepo.UpdateOrderStatusIf(ctx, order.ID, enums.OrderStatusPrepared, map[string]any{
			"status":           enums.OrderStatusHandedOver,
			"assigned_unit_id": unit.ID,
			"handed_over_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hand over order")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		unit.Status = enums.FleetUnitStatusBusy
		unit.CurrentOrderID = &order.ID
		unit.LastAssignedAt = &now
		order.Status = enums.OrderStatusHandedOver
		order.AssignedUnitID = &unit.ID
		order.HandedOverAt = &now
		result = &AssignResult{Unit: *toUnitDTO(unit), Order: orders.ToOrderDTO(order)}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUnitAssigned,
			AggregateType: enums.AggregateFleetUnit,
			AggregateID:   unit.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.UnitAssignedEvent{
				UnitID:  unit.ID,
				ShopID:  unit.ShopID,
				OrderID: order.ID,
			},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateShopOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				SessionID:  order.SessionID,
				ShopID:     order.ShopID,
				CustomerID: order.CustomerID,
				From:       enums.OrderStatusPrepared,
				To:         enums.OrderStatusHandedOver,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	// Best effort. A missed schedule is picked up by the repair sweep.
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleHandover(ctx, input.OrderID, s.cfg.HandoverDelay); err != nil && s.logg != nil {
			logCtx := s.logg.WithField(ctx, "order_id", input.OrderID.String())
			s.logg.Error(logCtx, "failed to schedule handover transition", err)
		}
	}
	return result, nil
}

// Release is the manual escape hatch for a stuck busy unit.
func (s *service) Release(ctx context.Context, actor orders.Actor, unitID uuid.UUID) (*UnitDTO, error) {
	if unitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}

	var released *UnitDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		unit, err := repo.FindUnit(ctx, unitID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
		}
		if err := s.authorizeShop(actor, unit.ShopID); err != nil {
			return err
		}
		if unit.Status != enums.FleetUnitStatusBusy {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "unit is not busy")
		}

		orderID := unit.CurrentOrderID
		ok, err := repo.ReleaseUnit(ctx, unit.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release unit")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "unit changed concurrently")
		}

		unit.Status = enums.FleetUnitStatusAvailable
		unit.CurrentOrderID = nil
		released = toUnitDTO(unit)

		if orderID == nil {
			return nil
		}
		return s.emitUnitReleased(ctx, tx, unit, *orderID, actorRef(actor))
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ReleaseForOrder frees whichever unit carries the order. Used by delivery
// confirmation inside its transaction; a missing binding is not an error.
func (s *service) ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	unit, err := repo.FindUnitByOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit for order")
	}
	ok, err := repo.ReleaseUnit(ctx, unit.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release unit")
	}
	if !ok {
		return nil
	}
	unit.Status = enums.FleetUnitStatusAvailable
	unit.CurrentOrderID = nil
	return s.emitUnitReleased(ctx, tx, unit, orderID, nil)
}

// ResetFleet bulk-resets a shop's units regardless of order state.
func (s *service) ResetFleet(ctx context.Context, actor orders.Actor, shopID uuid.UUID) error {
	if err := s.authorizeShop(actor, shopID); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).ResetUnits(ctx, shopID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset fleet")
		}
		return nil
	})
}

func (s *service) UpdateUnitMaintenance(ctx context.Context, input UpdateMaintenanceInput) (*UnitDTO, error) {
	if input.UnitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	if input.Target != enums.FleetUnitStatusAvailable && input.Target != enums.FleetUnitStatusUnderMaintenance {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target status must be available or under_maintenance")
	}

	var updated *UnitDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		unit, err := repo.FindUnit(ctx, input.UnitID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
		}
		if err := s.authorizeShop(input.Actor, unit.ShopID); err != nil {
			return err
		}
		if unit.Status == enums.FleetUnitStatusBusy {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot change a busy unit; it is released automatically")
		}
		if unit.Status == input.Target {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "unit already in target status").
				WithDetails(map[string]any{"status": unit.Status})
		}

		updates := map[string]any{"status": input.Target}
		var reason *string
		if input.Target == enums.FleetUnitStatusUnderMaintenance {
			trimmed := strings.TrimSpace(input.Reason)
			if trimmed == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "maintenance reason required")
			}
			reason = &trimmed
			updates["maintenance_reason"] = trimmed
		} else {
			updates["maintenance_reason"] = nil
		}

		ok, err := repo.UpdateUnitStatusIf(ctx, unit.ID, unit.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update unit status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "unit changed concurrently")
		}
		unit.Status = input.Target
		unit.MaintenanceReason = reason
		updated = toUnitDTO(unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ensureFleet lazily provisions Unit-1..Unit-N on first touch of a shop's
// fleet. A racing provisioner loses on the (shop_id, name) unique index and
// the winner's rows are used.
func (s *service) ensureFleet(ctx context.Context, shopID uuid.UUID) error {
	count, err := s.repo.CountUnits(ctx, shopID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count fleet units")
	}
	if count > 0 {
		return nil
	}
	if _, err := s.shops.FindShop(ctx, shopID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}

	units := make([]models.FleetUnit, 0, s.cfg.FleetSize)
	for i := 1; i <= s.cfg.FleetSize; i++ {
		units = append(units, models.FleetUnit{
			ShopID: shopID,
			Name:   fmt.Sprintf("Unit-%d", i),
			Status: enums.FleetUnitStatusAvailable,
		})
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateUnits(ctx, units)
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_fleet_units_shop_name") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provision fleet units")
	}
	return nil
}

func (s *service) emitUnitReleased(ctx context.Context, tx *gorm.DB, unit *models.FleetUnit, orderID uuid.UUID, actor *outbox.ActorRef) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventUnitReleased,
		AggregateType: enums.AggregateFleetUnit,
		AggregateID:   unit.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.UnitReleasedEvent{
			UnitID:  unit.ID,
			ShopID:  unit.ShopID,
			OrderID: orderID,
		},
	})
}

func (s *service) authorizeShop(actor orders.Actor, shopID uuid.UUID) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor.Role != enums.ActorRoleShopOwner || actor.ShopID == nil || *actor.ShopID != shopID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shop does not belong to operator")
	}
	return nil
}

func actorRef(actor orders.Actor) *outbox.ActorRef {
	ref := &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   string(actor.Role),
	}
	if actor.ShopID != nil {
		shopID := *actor.ShopID
		ref.ShopID = &shopID
	}
	return ref
}
