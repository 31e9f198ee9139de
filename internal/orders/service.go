package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
	"github.com/skyserve/skyserve-backend/pkg/outbox"
	"github.com/skyserve/skyserve-backend/pkg/outbox/payloads"
	"github.com/skyserve/skyserve-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// UnitReleaser returns the drone assigned to an order back to the pool.
type UnitReleaser interface {
	ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// CashSettler reconciles a cash-on-delivery payment once the customer has
// the goods in hand.
type CashSettler interface {
	SettleCashOnDelivery(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// Service defines lifecycle operations on shop orders.
type Service interface {
	GetOrder(ctx context.Context, actor Actor, sessionID, orderID uuid.UUID) (*OrderDTO, error)
	ListCustomerOrders(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListShopOrders(ctx context.Context, actor Actor, shopID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*OrderDTO, error)
	Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error)
	AdvanceToInTransit(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	units    UnitReleaser
	payments CashSettler
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, units UnitReleaser, payments CashSettler) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit releaser required")
	}
	if payments == nil {
		return nil, fmt.Errorf("cash settler required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		units:    units,
		payments: payments,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, sessionID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadSessionOrder(ctx, s.repo, sessionID, orderID, true)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, order); err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

func (s *service) ListCustomerOrders(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListCustomerOrders(ctx, actor.UserID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return list, nil
}

func (s *service) ListShopOrders(ctx context.Context, actor Actor, shopID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.ActorRoleAdmin {
		if actor.ShopID == nil || *actor.ShopID != shopID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop does not belong to operator")
		}
	}
	list, err := s.repo.ListShopOrders(ctx, shopID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop orders")
	}
	return list, nil
}

// UpdateStatus applies an operator-driven transition. Only the kitchen-side
// statuses are reachable here; dispatch, transit, delivery, and cancellation
// each have their own entry point. Setting the current status again is a
// no-op.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadSessionOrder(ctx, repo, input.SessionID, input.OrderID, false)
		if err != nil {
			return err
		}
		if err := authorizeOperator(input.Actor, order); err != nil {
			return err
		}
		if order.Status == input.Target {
			result = ToOrderDTO(order)
			return nil
		}
		if !OperatorCanSet(input.Target) || !CanTransition(order.Status, input.Target) {
			return invalidTransition(order.Status, input.Target)
		}

		from := order.Status
		ok, err := repo.UpdateOrderStatusIf(ctx, order.ID, from, map[string]any{"status": input.Target})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}
		order.Status = input.Target
		result = ToOrderDTO(order)
		return s.emitStatusChanged(ctx, tx, order, from, input.Target, actorRef(input.Actor))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmDelivery moves an in-transit order to delivered, settles cash
// payments, and frees the assigned drone inside the same transaction.
func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadSessionOrder(ctx, repo, input.SessionID, input.OrderID, false)
		if err != nil {
			return err
		}
		if input.Actor.Role != enums.ActorRoleAdmin && order.CustomerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status != enums.OrderStatusInTransit {
			return invalidTransition(order.Status, enums.OrderStatusDelivered)
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":           enums.OrderStatusDelivered,
			"delivered_at":     now,
			"assigned_unit_id": nil,
		}
		if order.PaymentMethod == enums.PaymentMethodCOD {
			updates["payment_status"] = enums.PaymentStatusSuccess
		}
		ok, err := repo.UpdateOrderStatusIf(ctx, order.ID, enums.OrderStatusInTransit, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		if order.PaymentMethod == enums.PaymentMethodCOD {
			if err := s.payments.SettleCashOnDelivery(ctx, tx, order.ID); err != nil {
				return err
			}
			order.PaymentStatus = enums.PaymentStatusSuccess
		}
		if err := s.units.ReleaseForOrder(ctx, tx, order.ID); err != nil {
			return err
		}

		order.Status = enums.OrderStatusDelivered
		order.DeliveredAt = &now
		order.AssignedUnitID = nil
		result = ToOrderDTO(order)

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateShopOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				SessionID:   order.SessionID,
				ShopID:      order.ShopID,
				CustomerID:  order.CustomerID,
				DeliveredAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel voids a pending order. Later stages are past the point of no
// return for the kitchen, so cancellation is deliberately narrow.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadSessionOrder(ctx, repo, input.SessionID, input.OrderID, false)
		if err != nil {
			return err
		}
		if err := authorizeOperator(input.Actor, order); err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return invalidTransition(order.Status, enums.OrderStatusCancelled)
		}

		now := time.Now().UTC()
		ok, err := repo.UpdateOrderStatusIf(ctx, order.ID, enums.OrderStatusPending, map[string]any{
			"status":        enums.OrderStatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelReason = &reason
		order.CancelledAt = &now
		result = ToOrderDTO(order)

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateShopOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				SessionID:   order.SessionID,
				ShopID:      order.ShopID,
				CustomerID:  order.CustomerID,
				CancelledAt: now,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdvanceToInTransit is the scheduler and repair-sweep entry point. It
// re-checks the status at fire time, so a fire racing a delivery or a
// duplicate fire simply reports stale.
func (s *service) AdvanceToInTransit(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	advanced := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusHandedOver {
			return nil
		}
		ok, err := repo.UpdateOrderStatusIf(ctx, order.ID, enums.OrderStatusHandedOver, map[string]any{
			"status": enums.OrderStatusInTransit,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order to in_transit")
		}
		if !ok {
			return nil
		}
		advanced = true
		return s.emitStatusChanged(ctx, tx, order, enums.OrderStatusHandedOver, enums.OrderStatusInTransit, nil)
	})
	if err != nil {
		return false, err
	}
	return advanced, nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.ShopOrder, from, to enums.OrderStatus, actor *outbox.ActorRef) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateShopOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:    order.ID,
			SessionID:  order.SessionID,
			ShopID:     order.ShopID,
			CustomerID: order.CustomerID,
			From:       from,
			To:         to,
		},
	})
}

func (s *service) loadSessionOrder(ctx context.Context, repo Repository, sessionID, orderID uuid.UUID, withItems bool) (*models.ShopOrder, error) {
	find := repo.FindOrder
	if withItems {
		find = repo.FindOrderWithItems
	}
	order, err := find(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if sessionID != uuid.Nil && order.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func authorizeRead(actor Actor, order *models.ShopOrder) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleCustomer:
		if order.CustomerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleShopOwner:
		if actor.ShopID != nil && *actor.ShopID == order.ShopID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to actor")
}

func authorizeOperator(actor Actor, order *models.ShopOrder) error {
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor.Role != enums.ActorRoleShopOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "operator role required")
	}
	if actor.ShopID == nil || *actor.ShopID != order.ShopID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to shop")
	}
	return nil
}

func actorRef(actor Actor) *outbox.ActorRef {
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
