package orders

import (
	"context"
	"testing"
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

type stubOrdersRepo struct {
	order         *models.ShopOrder
	updates       map[string]any
	statusUpdated bool
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) CreateShopOrder(ctx context.Context, order *models.ShopOrder) (*models.ShopOrder, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.ShopOrder, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindOrderWithItems(ctx context.Context, orderID uuid.UUID) (*models.ShopOrder, error) {
	return s.FindOrder(ctx, orderID)
}

func (s *stubOrdersRepo) FindOrdersBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ShopOrder, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.updates = updates
	return nil
}

func (s *stubOrdersRepo) UpdateOrderStatusIf(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error) {
	if s.order == nil || s.order.ID != orderID || s.order.Status != from {
		return false, nil
	}
	s.updates = updates
	s.statusUpdated = true
	if v, ok := updates["status"].(enums.OrderStatus); ok {
		s.order.Status = v
	}
	return true, nil
}

func (s *stubOrdersRepo) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) ListShopOrders(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindStuckHandedOver(ctx context.Context, cutoff time.Time, limit int) ([]models.ShopOrder, error) {
	panic("not implemented")
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubUnitReleaser struct {
	released []uuid.UUID
	err      error
}

func (s *stubUnitReleaser) ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.released = append(s.released, orderID)
	return nil
}

type stubCashSettler struct {
	settled []uuid.UUID
	err     error
}

func (s *stubCashSettler) SettleCashOnDelivery(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.settled = append(s.settled, orderID)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestOrder(status enums.OrderStatus) *models.ShopOrder {
	return &models.ShopOrder{
		ID:            uuid.New(),
		SessionID:     uuid.New(),
		ShopID:        uuid.New(),
		OperatorID:    uuid.New(),
		CustomerID:    uuid.New(),
		Status:        status,
		PaymentMethod: enums.PaymentMethodCOD,
		PaymentStatus: enums.PaymentStatusPending,
		Subtotal:      100000,
		Total:         115000,
	}
}

func newTestService(t *testing.T, repo Repository) (Service, *stubOutboxPublisher, *stubUnitReleaser, *stubCashSettler) {
	t.Helper()

	events := &stubOutboxPublisher{}
	units := &stubUnitReleaser{}
	cash := &stubCashSettler{}
	svc, err := NewService(repo, stubTxRunner{}, events, units, cash)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc, events, units, cash
}

func operatorActor(order *models.ShopOrder) Actor {
	shopID := order.ShopID
	return Actor{UserID: order.OperatorID, ShopID: &shopID, Role: enums.ActorRoleShopOwner}
}

func customerActor(order *models.ShopOrder) Actor {
	return Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}
}

func TestUpdateStatusAccepted(t *testing.T) {
	order := newTestOrder(enums.OrderStatusPending)
	repo := &stubOrdersRepo{order: order}
	svc, events, _, _ := newTestService(t, repo)

	result, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Target:    enums.OrderStatusAccepted,
		Actor:     operatorActor(order),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Status != enums.OrderStatusAccepted {
		t.Fatalf("unexpected status %s", result.Status)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one event got %d", len(events.events))
	}
	payload, ok := events.events[0].Data.(payloads.OrderStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", events.events[0].Data)
	}
	if payload.From != enums.OrderStatusPending || payload.To != enums.OrderStatusAccepted {
		t.Fatalf("unexpected transition %s -> %s", payload.From, payload.To)
	}
}

func TestUpdateStatusIdempotent(t *testing.T) {
	order := newTestOrder(enums.OrderStatusAccepted)
	repo := &stubOrdersRepo{order: order}
	svc, events, _, _ := newTestService(t, repo)

	result, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Target:    enums.OrderStatusAccepted,
		Actor:     operatorActor(order),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Status != enums.OrderStatusAccepted {
		t.Fatalf("unexpected status %s", result.Status)
	}
	if len(events.events) != 0 {
		t.Fatalf("unexpected events %d", len(events.events))
	}
}

func TestUpdateStatusCannotHandOverDirectly(t *testing.T) {
	order := newTestOrder(enums.OrderStatusPrepared)
	repo := &stubOrdersRepo{order: order}
	svc, events, _, _ := newTestService(t, repo)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Target:    enums.OrderStatusHandedOver,
		Actor:     operatorActor(order),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
	if order.Status != enums.OrderStatusPrepared {
		t.Fatalf("order mutated to %s", order.Status)
	}
	if len(events.events) != 0 {
		t.Fatalf("unexpected events %d", len(events.events))
	}
}

func TestUpdateStatusSkipAheadRejected(t *testing.T) {
	order := newTestOrder(enums.OrderStatusPending)
	repo := &stubOrdersRepo{order: order}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Target:    enums.OrderStatusPrepared,
		Actor:     operatorActor(order),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
	details, ok := typed.Details().(transitionDetails)
	if !ok {
		t.Fatalf("expected transition details got %T", typed.Details())
	}
	if details.From != enums.OrderStatusPending || details.To != enums.OrderStatusPrepared {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestUpdateStatusWrongShop(t *testing.T) {
	order := newTestOrder(enums.OrderStatusPending)
	repo := &stubOrdersRepo{order: order}
	svc, _, _, _ := newTestService(t, repo)

	otherShop := uuid.New()
	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Target:    enums.OrderStatusAccepted,
		Actor:     Actor{UserID: uuid.New(), ShopID: &otherShop, Role: enums.ActorRoleShopOwner},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestUpdateStatusSessionMismatch(t *testing.T) {
	order := newTestOrder(enums.OrderStatusPending)
	repo := &stubOrdersRepo{order: order}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		SessionID: uuid.New(),
		OrderID:   order.ID,
		Target:    enums.OrderStatusAccepted,
		Actor:     operatorActor(order),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestConfirmDeliverySettlesCashAndReleasesUnit(t *testing.T) {
	order := newTestOrder(enums.OrderStatusInTransit)
	unitID := uuid.New()
	order.AssignedUnitID = &unitID
	repo := &stubOrdersRepo{order: order}
	svc, events, units, cash := newTestService(t, repo)

	result, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Actor:     customerActor(order),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Status != enums.OrderStatusDelivered {
		t.Fatalf("unexpected status %s", result.Status)
	}
	if result.DeliveredAt == nil {
		t.Fatal("expected delivered_at set")
	}
	if result.PaymentStatus != enums.PaymentStatusSuccess {
		t.Fatalf("expected cash reconciled got %s", result.PaymentStatus)
	}
	if result.AssignedUnitID != nil {
		t.Fatalf("delivered order must not keep a unit reference, got %v", result.AssignedUnitID)
	}
	cleared, ok := repo.updates["assigned_unit_id"]
	if !ok || cleared != nil {
		t.Fatalf("assigned_unit_id not cleared on delivery, updates %v", repo.updates)
	}
	if len(cash.settled) != 1 || cash.settled[0] != order.ID {
		t.Fatalf("unexpected cash settlements %v", cash.settled)
	}
	if len(units.released) != 1 || units.released[0] != order.ID {
		t.Fatalf("unexpected unit releases %v", units.released)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderDelivered {
		t.Fatalf("unexpected events %+v", events.events)
	}
}

func TestConfirmDeliveryWalletSkipsCashSettlement(t *testing.T) {
	order := newTestOrder(enums.OrderStatusInTransit)
	order.PaymentMethod = enums.PaymentMethodWallet
	order.PaymentStatus = enums.PaymentStatusSuccess
	repo := &stubOrdersRepo{order: order}
	svc, _, units, cash := newTestService(t, repo)

	_, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Actor:     customerActor(order),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(cash.settled) != 0 {
		t.Fatalf("unexpected cash settlement %v", cash.settled)
	}
	if len(units.released) != 1 {
		t.Fatalf("expected unit release got %d", len(units.released))
	}
}

func TestConfirmDeliveryWrongStateLeavesOrderUntouched(t *testing.T) {
	order := newTestOrder(enums.OrderStatusHandedOver)
	repo := &stubOrdersRepo{order: order}
	svc, events, units, cash := newTestService(t, repo)

	_, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Actor:     customerActor(order),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
	if order.Status != enums.OrderStatusHandedOver {
		t.Fatalf("order mutated to %s", order.Status)
	}
	if repo.statusUpdated || len(events.events) != 0 || len(units.released) != 0 || len(cash.settled) != 0 {
		t.Fatal("expected no side effects")
	}
}

func TestConfirmDeliveryWrongCustomer(t *testing.T) {
	order := newTestOrder(enums.OrderStatusInTransit)
	repo := &stubOrdersRepo{order: order}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Actor:     Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	order := newTestOrder(enums.OrderStatusPending)
	repo := &stubOrdersRepo{order: order}
	svc, events, _, _ := newTestService(t, repo)

	result, err := svc.Cancel(context.Background(), CancelInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Reason:    "kitchen out of stock",
		Actor:     operatorActor(order),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Status != enums.OrderStatusCancelled {
		t.Fatalf("unexpected status %s", result.Status)
	}
	if result.CancelReason == nil || *result.CancelReason != "kitchen out of stock" {
		t.Fatalf("unexpected reason %v", result.CancelReason)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderCancelled {
		t.Fatalf("unexpected events %+v", events.events)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	order := newTestOrder(enums.OrderStatusPending)
	repo := &stubOrdersRepo{order: order}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.Cancel(context.Background(), CancelInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Reason:    "   ",
		Actor:     operatorActor(order),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCancelRejectedAfterAcceptance(t *testing.T) {
	order := newTestOrder(enums.OrderStatusAccepted)
	repo := &stubOrdersRepo{order: order}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.Cancel(context.Background(), CancelInput{
		SessionID: order.SessionID,
		OrderID:   order.ID,
		Reason:    "kitchen closed early",
		Actor:     operatorActor(order),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
	if order.Status != enums.OrderStatusAccepted {
		t.Fatalf("order mutated to %s", order.Status)
	}
}

func TestAdvanceToInTransit(t *testing.T) {
	order := newTestOrder(enums.OrderStatusHandedOver)
	repo := &stubOrdersRepo{order: order}
	svc, events, _, _ := newTestService(t, repo)

	advanced, err := svc.AdvanceToInTransit(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !advanced {
		t.Fatal("expected advancement")
	}
	if order.Status != enums.OrderStatusInTransit {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("unexpected events %+v", events.events)
	}

	// A duplicate fire finds the order already moved on and does nothing.
	advanced, err = svc.AdvanceToInTransit(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if advanced {
		t.Fatal("expected stale fire")
	}
	if len(events.events) != 1 {
		t.Fatalf("unexpected extra events %d", len(events.events))
	}
}

func TestAdvanceToInTransitMissingOrder(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, _, _, _ := newTestService(t, repo)

	advanced, err := svc.AdvanceToInTransit(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if advanced {
		t.Fatal("expected no advancement")
	}
}
