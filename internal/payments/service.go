package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/pkg/config"
	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
	"github.com/skyserve/skyserve-backend/pkg/gateway"
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

type gatewayClient interface {
	CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResponse, error)
}

// Service reconciles payment state across checkout, the wallet gateway
// webhook, and cash settlement on delivery.
type Service interface {
	RecordForOrder(ctx context.Context, tx *gorm.DB, order *models.ShopOrder) (*models.Payment, error)
	LinkSessionOrders(ctx context.Context, paymentID uuid.UUID, siblingOrderIDs []uuid.UUID) error
	CreateForOrder(ctx context.Context, input CreateForOrderInput) (*PaymentDTO, error)
	HandleGatewayCallback(ctx context.Context, input CallbackInput) error
	GetStatus(ctx context.Context, actor orders.Actor, paymentID uuid.UUID) (*PaymentDTO, error)
	SettleCashOnDelivery(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type service struct {
	repo    Repository
	orders  orders.Repository
	gateway gatewayClient
	tx      txRunner
	outbox  outboxPublisher
	cfg     config.GatewayConfig
	logg    *logger.Logger
}

func NewService(repo Repository, ordersRepo orders.Repository, gw gatewayClient, tx txRunner, outboxSvc outboxPublisher, cfg config.GatewayConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		gateway: gw,
		tx:      tx,
		outbox:  outboxSvc,
		cfg:     cfg,
		logg:    logg,
	}, nil
}

// RecordForOrder writes the payment row for a freshly created order inside
// the checkout transaction. Cash settles immediately; wallet starts pending
// until the gateway callback resolves it.
func (s *service) RecordForOrder(ctx context.Context, tx *gorm.DB, order *models.ShopOrder) (*models.Payment, error) {
	status := enums.PaymentStatusPending
	var settledAt *time.Time
	if order.PaymentMethod == enums.PaymentMethodCOD {
		status = enums.PaymentStatusSuccess
		now := time.Now().UTC()
		settledAt = &now
	}

	payment := &models.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		SessionID:       order.SessionID,
		CustomerID:      order.CustomerID,
		Method:          order.PaymentMethod,
		Status:          status,
		Amount:          order.Subtotal,
		ExternalOrderID: order.ID.String(),
		SettledAt:       settledAt,
	}
	if err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

// LinkSessionOrders backfills the sibling order ids a payment shares its
// checkout session with. Called after the whole fan-out settled, so only
// orders that actually committed are referenced. The list is informational;
// settlement never reads it.
func (s *service) LinkSessionOrders(ctx context.Context, paymentID uuid.UUID, siblingOrderIDs []uuid.UUID) error {
	if len(siblingOrderIDs) == 0 {
		return nil
	}
	encoded, err := json.Marshal(siblingOrderIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sibling order ids")
	}
	if err := s.repo.UpdatePayment(ctx, paymentID, map[string]any{"sibling_order_ids": json.RawMessage(encoded)}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store sibling order ids")
	}
	return nil
}

// CreateForOrder opens a hosted wallet checkout for a pending payment. The
// gateway call is the one long-latency dependency here; on failure the
// payment stays pending and the caller sees a dependency error.
func (s *service) CreateForOrder(ctx context.Context, input CreateForOrderInput) (*PaymentDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.loadSessionOrder(ctx, input.SessionID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCustomer(input.Actor, order.CustomerID); err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodWallet {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cash orders settle on delivery")
	}

	payment, err := s.repo.FindPaymentByOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already resolved").
			WithDetails(map[string]any{"status": payment.Status})
	}
	if payment.PayURL != nil {
		return toPaymentDTO(payment), nil
	}

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	resp, err := s.gateway.CreateCheckout(callCtx, gateway.CheckoutRequest{
		ExternalOrderID: payment.ExternalOrderID,
		Amount:          payment.Amount,
		OrderInfo:       fmt.Sprintf("skyserve order %s", order.ID),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway checkout")
	}
	if resp.ResultCode != gateway.ResultCodeSuccess {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway rejected checkout").
			WithDetails(map[string]any{"resultCode": resp.ResultCode, "message": resp.Message})
	}

	if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{"pay_url": resp.PayURL}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store pay url")
	}
	payment.PayURL = &resp.PayURL
	return toPaymentDTO(payment), nil
}

// HandleGatewayCallback applies the gateway's settlement verdict. Unknown
// correlators are rejected rather than fabricated into records. A signature
// mismatch is logged but does not reject the callback; known gap, kept until
// the sandbox gateway contract is confirmed.
func (s *service) HandleGatewayCallback(ctx context.Context, input CallbackInput) error {
	payment, err := s.repo.FindPaymentByExternalOrderID(ctx, input.ExternalOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if !gateway.VerifySignature(s.cfg.SecretKey, input.Params, input.Signature) && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"external_order_id": input.ExternalOrderID,
			"known_gap":         "signature_mismatch_not_rejected",
		})
		s.logg.Warn(logCtx, "gateway callback signature mismatch")
	}

	status := gateway.ClassifyResultCode(input.ResultCode)
	if payment.Status == status {
		return nil
	}
	if payment.Status != enums.PaymentStatusPending {
		// Terminal statuses never move again; a late or duplicate callback
		// for a settled payment is dropped.
		return nil
	}
	if status == enums.PaymentStatusPending {
		return s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"result_code": input.ResultCode,
		})
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":      status,
		"result_code": input.ResultCode,
	}
	if input.TransactionID != "" {
		updates["transaction_id"] = input.TransactionID
	}
	if status == enums.PaymentStatusSuccess {
		updates["settled_at"] = now
	} else if input.Message != "" {
		updates["failure_reason"] = input.Message
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdatePaymentStatusIf(ctx, payment.ID, enums.PaymentStatusPending, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		if !moved {
			return nil
		}
		if err := s.flipOrderPaymentStatus(ctx, tx, payment, status); err != nil {
			return err
		}
		return s.emitSettlement(ctx, tx, payment, status, input, now)
	})
}

func (s *service) GetStatus(ctx context.Context, actor orders.Actor, paymentID uuid.UUID) (*PaymentDTO, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindPayment(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if err := s.authorizeCustomer(actor, payment.CustomerID); err != nil {
		return nil, err
	}
	return toPaymentDTO(payment), nil
}

// SettleCashOnDelivery marks a cash payment settled inside the delivery
// confirmation transaction. Already-settled payments are left alone.
func (s *service) SettleCashOnDelivery(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	payment, err := repo.FindPaymentByOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment for order")
	}
	if payment.Method != enums.PaymentMethodCOD {
		return nil
	}

	now := time.Now().UTC()
	moved, err := repo.UpdatePaymentStatusIf(ctx, payment.ID, enums.PaymentStatusPending, map[string]any{
		"status":     enums.PaymentStatusSuccess,
		"settled_at": now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle cash payment")
	}
	if !moved {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentSettled,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Version:       1,
		Data: payloads.PaymentSettledEvent{
			PaymentID: payment.ID,
			SessionID: payment.SessionID,
			Method:    payment.Method,
			Amount:    payment.Amount,
			SettledAt: now,
		},
	})
}

// flipOrderPaymentStatus mirrors the payment verdict onto the owning order
// and nothing else. Sibling orders carry payments of their own and settle
// independently.
func (s *service) flipOrderPaymentStatus(ctx context.Context, tx *gorm.DB, payment *models.Payment, status enums.PaymentStatus) error {
	if err := s.orders.WithTx(tx).UpdateOrder(ctx, payment.OrderID, map[string]any{"payment_status": status}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
	}
	return nil
}

func (s *service) emitSettlement(ctx context.Context, tx *gorm.DB, payment *models.Payment, status enums.PaymentStatus, input CallbackInput, now time.Time) error {
	if status == enums.PaymentStatusSuccess {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSettled,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentSettledEvent{
				PaymentID: payment.ID,
				SessionID: payment.SessionID,
				Method:    payment.Method,
				Amount:    payment.Amount,
				SettledAt: now,
			},
		})
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Version:       1,
		Data: payloads.PaymentFailedEvent{
			PaymentID:  payment.ID,
			SessionID:  payment.SessionID,
			ResultCode: input.ResultCode,
			Reason:     input.Message,
		},
	})
}

func (s *service) loadSessionOrder(ctx context.Context, sessionID, orderID uuid.UUID) (*models.ShopOrder, error) {
	order, err := s.orders.FindOrder(ctx, orderID)
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

func (s *service) authorizeCustomer(actor orders.Actor, ownerID uuid.UUID) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor.UserID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to user")
	}
	return nil
}
