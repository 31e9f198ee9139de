package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes shop and menu management operations.
type Service interface {
	CreateShop(ctx context.Context, ownerID uuid.UUID, input CreateShopInput) (*ShopDTO, error)
	UpdateShop(ctx context.Context, ownerID, shopID uuid.UUID, input UpdateShopInput) (*ShopDTO, error)
	GetShop(ctx context.Context, shopID uuid.UUID) (*ShopDTO, error)
	ListShops(ctx context.Context) ([]ShopDTO, error)
	CreateMenuItem(ctx context.Context, ownerID, shopID uuid.UUID, input CreateMenuItemInput) (*MenuItemDTO, error)
	UpdateMenuItem(ctx context.Context, ownerID, shopID, itemID uuid.UUID, input UpdateMenuItemInput) (*MenuItemDTO, error)
	ListMenu(ctx context.Context, shopID uuid.UUID, availableOnly bool) ([]MenuItemDTO, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateShop(ctx context.Context, ownerID uuid.UUID, input CreateShopInput) (*ShopDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name required")
	}
	if err := input.Address.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop address")
	}

	var created *ShopDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shop, err := repo.CreateShop(ctx, newShopModel(ownerID, input))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert shop")
		}
		created = toShopDTO(shop)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) UpdateShop(ctx context.Context, ownerID, shopID uuid.UUID, input UpdateShopInput) (*ShopDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Address != nil {
		if err := input.Address.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop address")
		}
		updates["address_text"] = input.Address.Text
		updates["address_lat"] = input.Address.Lat
		updates["address_lng"] = input.Address.Lng
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *ShopDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shop, err := s.loadOwnedShop(ctx, repo, ownerID, shopID)
		if err != nil {
			return err
		}
		if err := repo.UpdateShop(ctx, shop.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop")
		}
		shop, err = repo.FindShop(ctx, shop.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload shop")
		}
		updated = toShopDTO(shop)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) GetShop(ctx context.Context, shopID uuid.UUID) (*ShopDTO, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	shop, err := s.repo.FindShop(ctx, shopID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	return toShopDTO(shop), nil
}

func (s *service) ListShops(ctx context.Context) ([]ShopDTO, error) {
	shops, err := s.repo.ListActiveShops(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shops")
	}
	out := make([]ShopDTO, 0, len(shops))
	for i := range shops {
		out = append(out, *toShopDTO(&shops[i]))
	}
	return out, nil
}

func (s *service) CreateMenuItem(ctx context.Context, ownerID, shopID uuid.UUID, input CreateMenuItemInput) (*MenuItemDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if input.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	var created *MenuItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shop, err := s.loadOwnedShop(ctx, repo, ownerID, shopID)
		if err != nil {
			return err
		}
		item, err := repo.CreateMenuItem(ctx, newMenuItemModel(shop.ID, input))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert menu item")
		}
		created = toMenuItemDTO(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) UpdateMenuItem(ctx context.Context, ownerID, shopID, itemID uuid.UUID, input UpdateMenuItemInput) (*MenuItemDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.Available != nil {
		updates["available"] = *input.Available
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *MenuItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.loadOwnedShop(ctx, repo, ownerID, shopID); err != nil {
			return err
		}
		item, err := repo.FindMenuItem(ctx, itemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
		}
		if item.ShopID != shopID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "menu item does not belong to shop")
		}
		if err := repo.UpdateMenuItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu item")
		}
		item, err = repo.FindMenuItem(ctx, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload menu item")
		}
		updated = toMenuItemDTO(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ListMenu(ctx context.Context, shopID uuid.UUID, availableOnly bool) ([]MenuItemDTO, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	items, err := s.repo.ListMenuItemsByShop(ctx, shopID, availableOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}
	out := make([]MenuItemDTO, 0, len(items))
	for i := range items {
		out = append(out, *toMenuItemDTO(&items[i]))
	}
	return out, nil
}

func (s *service) loadOwnedShop(ctx context.Context, repo Repository, ownerID, shopID uuid.UUID) (*models.Shop, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	shop, err := repo.FindShop(ctx, shopID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if shop.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop does not belong to user")
	}
	return shop, nil
}
