package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/types"
)

// CreateShopInput holds the validated payload to register a shop.
type CreateShopInput struct {
	Name        string
	Description *string
	Phone       *string
	Address     types.Address
}

// UpdateShopInput holds optional mutation values for a shop.
type UpdateShopInput struct {
	Name        *string
	Description *string
	Phone       *string
	Address     *types.Address
	Active      *bool
}

// CreateMenuItemInput holds the validated payload to list a dish.
type CreateMenuItemInput struct {
	Name     string
	ImageURL *string
	Price    int64
}

// UpdateMenuItemInput holds optional mutation values for a menu item.
type UpdateMenuItemInput struct {
	Name      *string
	ImageURL  *string
	Price     *int64
	Available *bool
}

// ShopDTO is the API shape of a shop.
type ShopDTO struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Phone       *string       `json:"phone,omitempty"`
	Address     types.Address `json:"address"`
	Active      bool          `json:"active"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// MenuItemDTO is the API shape of a menu item.
type MenuItemDTO struct {
	ID        uuid.UUID `json:"id"`
	ShopID    uuid.UUID `json:"shopId"`
	Name      string    `json:"name"`
	ImageURL  *string   `json:"imageUrl,omitempty"`
	Price     int64     `json:"price"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"createdAt"`
}

func newShopModel(ownerID uuid.UUID, input CreateShopInput) *models.Shop {
	return &models.Shop{
		Name:        input.Name,
		Description: input.Description,
		Phone:       input.Phone,
		OwnerID:     ownerID,
		Address:     input.Address,
		Active:      true,
	}
}

func newMenuItemModel(shopID uuid.UUID, input CreateMenuItemInput) *models.MenuItem {
	return &models.MenuItem{
		ShopID:    shopID,
		Name:      input.Name,
		ImageURL:  input.ImageURL,
		Price:     input.Price,
		Available: true,
	}
}

func toShopDTO(shop *models.Shop) *ShopDTO {
	return &ShopDTO{
		ID:          shop.ID,
		Name:        shop.Name,
		Description: shop.Description,
		Phone:       shop.Phone,
		Address:     shop.Address,
		Active:      shop.Active,
		CreatedAt:   shop.CreatedAt,
	}
}

func toMenuItemDTO(item *models.MenuItem) *MenuItemDTO {
	return &MenuItemDTO{
		ID:        item.ID,
		ShopID:    item.ShopID,
		Name:      item.Name,
		ImageURL:  item.ImageURL,
		Price:     item.Price,
		Available: item.Available,
		CreatedAt: item.CreatedAt,
	}
}
