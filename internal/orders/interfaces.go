package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	"github.com/skyserve/skyserve-backend/pkg/pagination"
)

// Repository defines persistence operations for shop orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateShopOrder(ctx context.Context, order *models.ShopOrder) (*models.ShopOrder, error)
	CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.ShopOrder, error)
	FindOrderWithItems(ctx context.Context, orderID uuid.UUID) (*models.ShopOrder, error)
	FindOrdersBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ShopOrder, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateOrderStatusIf(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListShopOrders(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	FindStuckHandedOver(ctx context.Context, cutoff time.Time, limit int) ([]models.ShopOrder, error)
}
