package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuItem is a purchasable dish listed by a shop. Prices are VND, so
// amounts are whole integers.
type MenuItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID    uuid.UUID `gorm:"column:shop_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	ImageURL  *string   `gorm:"column:image_url"`
	Price     int64     `gorm:"column:price;not null"`
	Available bool      `gorm:"column:available;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
