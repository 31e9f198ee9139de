package checkout

import (
	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	"github.com/skyserve/skyserve-backend/pkg/types"
)

// CartLine is one item reference in the customer's cart. Lines from
// different shops fan out into separate shop orders.
type CartLine struct {
	ShopID     uuid.UUID `json:"shopId"`
	MenuItemID uuid.UUID `json:"menuItemId"`
	Qty        int       `json:"qty"`
}

// CreateInput is the checkout request.
type CreateInput struct {
	CustomerID    uuid.UUID
	Lines         []CartLine
	Address       types.Address
	PaymentMethod enums.PaymentMethod
	Note          *string
}

// Result reports the orders fanned out from one checkout action.
type Result struct {
	SessionID uuid.UUID         `json:"sessionId"`
	Orders    []orders.OrderDTO `json:"orders"`
	Total     int64             `json:"total"`
}
