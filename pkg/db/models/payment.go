package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/pkg/enums"
)

// Payment tracks settlement for exactly one shop order; a settlement verdict
// touches only that order's payment flag. SiblingOrderIDs records the other
// committed orders of the same checkout session for reporting, never for
// settlement. ExternalOrderID is the correlator handed to the wallet gateway
// and echoed back in the webhook callback.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	SessionID       uuid.UUID           `gorm:"column:session_id;type:uuid;not null;index"`
	SiblingOrderIDs json.RawMessage     `gorm:"column:sibling_order_ids;type:jsonb"`
	CustomerID      uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	Method          enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount          int64               `gorm:"column:amount;not null"`
	ExternalOrderID string              `gorm:"column:external_order_id;not null;uniqueIndex"`
	TransactionID   *string             `gorm:"column:transaction_id"`
	ResultCode      *int                `gorm:"column:result_code"`
	PayURL          *string             `gorm:"column:pay_url"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	SettledAt       *time.Time          `gorm:"column:settled_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
