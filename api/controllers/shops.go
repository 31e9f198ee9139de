package controllers

import (
	"net/http"
	"strings"

	"github.com/skyserve/skyserve-backend/api/responses"
	"github.com/skyserve/skyserve-backend/api/validators"
	"github.com/skyserve/skyserve-backend/internal/catalog"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
	"github.com/skyserve/skyserve-backend/pkg/logger"
	"github.com/skyserve/skyserve-backend/pkg/types"
)

type addressRequest struct {
	Text string  `json:"text" validate:"required"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func (a addressRequest) toAddress() types.Address {
	return types.Address{Text: strings.TrimSpace(a.Text), Lat: a.Lat, Lng: a.Lng}
}

type shopCreateRequest struct {
	Name        string         `json:"name" validate:"required,min=2,max=120"`
	Description *string        `json:"description"`
	Phone       *string        `json:"phone"`
	Address     addressRequest `json:"address" validate:"required"`
}

type shopUpdateRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=2,max=120"`
	Description *string         `json:"description"`
	Phone       *string         `json:"phone"`
	Address     *addressRequest `json:"address"`
	Active      *bool           `json:"active"`
}

type menuItemCreateRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=120"`
	ImageURL *string `json:"imageUrl"`
	Price    int64   `json:"price" validate:"required,min=1"`
}

type menuItemUpdateRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=120"`
	ImageURL  *string `json:"imageUrl"`
	Price     *int64  `json:"price" validate:"omitempty,min=1"`
	Available *bool   `json:"available"`
}

// ShopCreate registers a new shop owned by the authenticated operator.
func ShopCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shopCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shop, err := svc.CreateShop(r.Context(), actor.UserID, catalog.CreateShopInput{
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Phone:       req.Phone,
			Address:     req.Address.toAddress(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shop)
	}
}

// ShopUpdate mutates shop profile fields for the owning operator.
func ShopUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shopID, err := validators.ParseUUIDParam(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shopUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateShopInput{
			Name:        req.Name,
			Description: req.Description,
			Phone:       req.Phone,
			Active:      req.Active,
		}
		if req.Address != nil {
			addr := req.Address.toAddress()
			input.Address = &addr
		}

		shop, err := svc.UpdateShop(r.Context(), actor.UserID, shopID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

// ShopList returns every active shop for browsing.
func ShopList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		shops, err := svc.ListShops(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"shops": shops})
	}
}

// ShopDetail returns one shop by id.
func ShopDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		shopID, err := validators.ParseUUIDParam(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shop, err := svc.GetShop(r.Context(), shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

// MenuList returns a shop's menu. Customers see only available dishes unless
// the all flag is set.
func MenuList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		shopID, err := validators.ParseUUIDParam(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		availableOnly := !strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("all")), "true")

		items, err := svc.ListMenu(r.Context(), shopID, availableOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// MenuItemCreate lists a new dish on the shop's menu.
func MenuItemCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shopID, err := validators.ParseUUIDParam(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req menuItemCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateMenuItem(r.Context(), actor.UserID, shopID, catalog.CreateMenuItemInput{
			Name:     strings.TrimSpace(req.Name),
			ImageURL: req.ImageURL,
			Price:    req.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// MenuItemUpdate mutates a dish, including flipping its availability.
func MenuItemUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shopID, err := validators.ParseUUIDParam(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req menuItemUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateMenuItem(r.Context(), actor.UserID, shopID, itemID, catalog.UpdateMenuItemInput{
			Name:      req.Name,
			ImageURL:  req.ImageURL,
			Price:     req.Price,
			Available: req.Available,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
