package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/api/responses"
	"github.com/skyserve/skyserve-backend/api/validators"
	"github.com/skyserve/skyserve-backend/internal/checkout"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
	"github.com/skyserve/skyserve-backend/pkg/logger"
)

type checkoutLineRequest struct {
	ShopID     string `json:"shopId" validate:"required"`
	MenuItemID string `json:"menuItemId" validate:"required"`
	Qty        int    `json:"qty" validate:"required,min=1"`
}

type checkoutRequest struct {
	Lines         []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	Address       addressRequest        `json:"address" validate:"required"`
	PaymentMethod string                `json:"paymentMethod" validate:"required"`
	Note          *string               `json:"note"`
}

func (req checkoutRequest) toInput(customerID uuid.UUID) (checkout.CreateInput, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if err != nil {
		return checkout.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	lines := make([]checkout.CartLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		shopID, err := uuid.Parse(strings.TrimSpace(line.ShopID))
		if err != nil {
			return checkout.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid shop id in cart")
		}
		itemID, err := uuid.Parse(strings.TrimSpace(line.MenuItemID))
		if err != nil {
			return checkout.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid menu item id in cart")
		}
		lines = append(lines, checkout.CartLine{ShopID: shopID, MenuItemID: itemID, Qty: line.Qty})
	}

	return checkout.CreateInput{
		CustomerID:    customerID,
		Lines:         lines,
		Address:       req.Address.toAddress(),
		PaymentMethod: method,
		Note:          req.Note,
	}, nil
}

// Checkout fans the customer's cart out into per-shop orders under one
// checkout session.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := req.toInput(actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
