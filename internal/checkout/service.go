package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/internal/orders"
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

type catalogLoader interface {
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	FindMenuItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.MenuItem, error)
}

// PaymentRecorder writes the payment row for a freshly created shop order
// inside the order's own transaction, and later links the session's payments
// to the sibling orders that actually committed.
type PaymentRecorder interface {
	RecordForOrder(ctx context.Context, tx *gorm.DB, order *models.ShopOrder) (*models.Payment, error)
	LinkSessionOrders(ctx context.Context, paymentID uuid.UUID, siblingOrderIDs []uuid.UUID) error
}

// Service fans a multi-shop cart out into per-shop orders.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Result, error)
}

type service struct {
	repo     orders.Repository
	catalog  catalogLoader
	payments PaymentRecorder
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
}

func NewService(repo orders.Repository, catalog catalogLoader, payments PaymentRecorder, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment recorder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		catalog:  catalog,
		payments: payments,
		tx:       tx,
		outbox:   outboxSvc,
		logg:     logg,
	}, nil
}

// shopCart is one shop's slice of the cart after grouping.
type shopCart struct {
	shop  *models.Shop
	lines []CartLine
}

// Create groups the cart by shop and creates one order per shop under a
// shared session id. Each order commits in its own transaction; a failure
// on one shop does not roll back siblings already created.
func (s *service) Create(ctx context.Context, input CreateInput) (*Result, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	carts, itemsByID, err := s.loadCatalog(ctx, input)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()

	paymentStatus := enums.PaymentStatusPending
	if input.PaymentMethod == enums.PaymentMethodCOD {
		paymentStatus = enums.PaymentStatusSuccess
	}

	var (
		created    []orders.OrderDTO
		createdIDs []uuid.UUID
		paymentIDs []uuid.UUID
		total      int64
		errs       error
	)
	for _, cart := range carts {
		order, lineItems := s.buildOrder(uuid.New(), sessionID, input, cart, itemsByID, paymentStatus)

		var paymentID uuid.UUID
		txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if _, err := repo.CreateShopOrder(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shop order")
			}
			if err := repo.CreateOrderLineItems(ctx, lineItems); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
			}
			payment, err := s.payments.RecordForOrder(ctx, tx, order)
			if err != nil {
				return err
			}
			paymentID = payment.ID
			return nil
		})
		if txErr != nil {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"session_id": sessionID.String(),
					"shop_id":    cart.shop.ID.String(),
				})
				s.logg.Error(logCtx, "checkout fan-out failed for shop", txErr)
			}
			errs = multierr.Append(errs, txErr)
			continue
		}
		order.Items = lineItems
		created = append(created, *orders.ToOrderDTO(order))
		createdIDs = append(createdIDs, order.ID)
		paymentIDs = append(paymentIDs, paymentID)
		total += order.Total
	}

	if len(created) == 0 {
		if errs != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "checkout failed for all shops")
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	// Sibling links are written after the fan-out so a payment only ever
	// references orders that committed. Link failures are logged and
	// swallowed.
	if len(createdIDs) > 1 {
		for i, paymentID := range paymentIDs {
			if err := s.payments.LinkSessionOrders(ctx, paymentID, siblingIDs(createdIDs, createdIDs[i])); err != nil && s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "session_id", sessionID.String()), "failed to link session orders on payment")
			}
		}
	}

	// Session-level event in its own transaction. Siblings that failed above
	// stay out of the payload.
	emitErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   sessionID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: string(enums.ActorRoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				SessionID:    sessionID,
				ShopOrderIDs: createdIDs,
				CustomerID:   input.CustomerID,
			},
		})
	})
	if emitErr != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "session_id", sessionID.String()), "failed to emit order created event", emitErr)
	}

	return &Result{SessionID: sessionID, Orders: created, Total: total}, nil
}

func (s *service) validate(input CreateInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, line := range input.Lines {
		if line.ShopID == uuid.Nil || line.MenuItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart line missing shop or item reference")
		}
		if line.Qty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart line qty must be at least 1")
		}
	}
	if err := input.Address.Validate(); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.Address.Lat == 0 && input.Address.Lng == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery coordinates required")
	}
	return nil
}

// loadCatalog resolves every cart line against the live catalog and groups
// lines per shop in first-appearance order.
func (s *service) loadCatalog(ctx context.Context, input CreateInput) ([]shopCart, map[uuid.UUID]models.MenuItem, error) {
	itemIDs := make([]uuid.UUID, 0, len(input.Lines))
	seen := make(map[uuid.UUID]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if _, ok := seen[line.MenuItemID]; ok {
			continue
		}
		seen[line.MenuItemID] = struct{}{}
		itemIDs = append(itemIDs, line.MenuItemID)
	}

	items, err := s.catalog.FindMenuItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu items")
	}
	itemsByID := make(map[uuid.UUID]models.MenuItem, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	var carts []shopCart
	cartByShop := make(map[uuid.UUID]int)
	for _, line := range input.Lines {
		item, ok := itemsByID[line.MenuItemID]
		if !ok {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown menu item in cart")
		}
		if item.ShopID != line.ShopID {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item does not belong to the cart line's shop")
		}
		if !item.Available {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("menu item %q is not available", item.Name))
		}
		idx, ok := cartByShop[line.ShopID]
		if !ok {
			shop, err := s.catalog.FindShop(ctx, line.ShopID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shop in cart")
				}
				return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
			}
			if !shop.Active {
				return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("shop %q is not accepting orders", shop.Name))
			}
			idx = len(carts)
			carts = append(carts, shopCart{shop: shop})
			cartByShop[line.ShopID] = idx
		}
		carts[idx].lines = append(carts[idx].lines, line)
	}
	return carts, itemsByID, nil
}

// buildOrder snapshots the cart lines into an order. Names and unit prices
// are copied so later catalog edits never touch a placed order. Line items
// are returned separately and persisted by the caller.
func (s *service) buildOrder(orderID, sessionID uuid.UUID, input CreateInput, cart shopCart, itemsByID map[uuid.UUID]models.MenuItem, paymentStatus enums.PaymentStatus) (*models.ShopOrder, []models.OrderLineItem) {
	lineItems := make([]models.OrderLineItem, 0, len(cart.lines))
	var subtotal int64
	for _, line := range cart.lines {
		item := itemsByID[line.MenuItemID]
		itemID := item.ID
		lineTotal := item.Price * int64(line.Qty)
		lineItems = append(lineItems, models.OrderLineItem{
			ID:         uuid.New(),
			OrderID:    orderID,
			MenuItemID: &itemID,
			Name:       item.Name,
			UnitPrice:  item.Price,
			Qty:        line.Qty,
			Total:      lineTotal,
		})
		subtotal += lineTotal
	}

	order := &models.ShopOrder{
		ID:            orderID,
		SessionID:     sessionID,
		ShopID:        cart.shop.ID,
		OperatorID:    cart.shop.OwnerID,
		CustomerID:    input.CustomerID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: paymentStatus,
		Subtotal:      subtotal,
		Total:         subtotal,
		DeliveryTo:    input.Address,
		Note:          input.Note,
	}
	return order, lineItems
}

func siblingIDs(all []uuid.UUID, own uuid.UUID) []uuid.UUID {
	siblings := make([]uuid.UUID, 0, len(all)-1)
	for _, id := range all {
		if id != own {
			siblings = append(siblings, id)
		}
	}
	return siblings
}
