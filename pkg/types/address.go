package types

import (
	"fmt"
	"strings"
)

// Address is a delivery destination. It is embedded into rows as flat
// columns so sqlite-backed tests behave the same as Postgres.
type Address struct {
	Text string  `json:"text" gorm:"column:address_text"`
	Lat  float64 `json:"lat" gorm:"column:address_lat"`
	Lng  float64 `json:"lng" gorm:"column:address_lng"`
}

// Validate enforces the minimum shape a dispatchable address needs.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Text) == "" {
		return fmt.Errorf("address: missing text")
	}
	if a.Lat < -90 || a.Lat > 90 {
		return fmt.Errorf("address: lat out of range")
	}
	if a.Lng < -180 || a.Lng > 180 {
		return fmt.Errorf("address: lng out of range")
	}
	return nil
}
