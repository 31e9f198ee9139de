package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/pkg/types"
)

// Shop represents a merchant storefront that fulfils shop orders.
type Shop struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string        `gorm:"column:name;not null"`
	Description *string       `gorm:"column:description"`
	Phone       *string       `gorm:"column:phone"`
	OwnerID     uuid.UUID     `gorm:"column:owner_id;type:uuid;not null"`
	Address     types.Address `gorm:"embedded"`
	Active      bool          `gorm:"column:active;not null;default:true"`
	MenuItems   []MenuItem    `gorm:"foreignKey:ShopID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
