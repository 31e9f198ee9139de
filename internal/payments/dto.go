package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
)

// CreateForOrderInput asks for a hosted wallet checkout on one shop order.
type CreateForOrderInput struct {
	SessionID uuid.UUID
	OrderID   uuid.UUID
	Actor     orders.Actor
}

// CallbackInput is the gateway's asynchronous settlement notification.
// Params holds the raw fields used for signature verification.
type CallbackInput struct {
	ExternalOrderID string
	RequestID       string
	Amount          int64
	ResultCode      int
	TransactionID   string
	Message         string
	Signature       string
	Params          map[string]string
}

// PaymentDTO is the read-only projection of a payment record.
type PaymentDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderID         uuid.UUID           `json:"orderId"`
	SessionID       uuid.UUID           `json:"sessionId"`
	Method          enums.PaymentMethod `json:"method"`
	Status          enums.PaymentStatus `json:"status"`
	Amount          int64               `json:"amount"`
	ExternalOrderID string              `json:"externalOrderId"`
	TransactionID   *string             `json:"transactionId,omitempty"`
	ResultCode      *int                `json:"resultCode,omitempty"`
	PayURL          *string             `json:"payUrl,omitempty"`
	FailureReason   *string             `json:"failureReason,omitempty"`
	SettledAt       *time.Time          `json:"settledAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func toPaymentDTO(payment *models.Payment) *PaymentDTO {
	return &PaymentDTO{
		ID:              payment.ID,
		OrderID:         payment.OrderID,
		SessionID:       payment.SessionID,
		Method:          payment.Method,
		Status:          payment.Status,
		Amount:          payment.Amount,
		ExternalOrderID: payment.ExternalOrderID,
		TransactionID:   payment.TransactionID,
		ResultCode:      payment.ResultCode,
		PayURL:          payment.PayURL,
		FailureReason:   payment.FailureReason,
		SettledAt:       payment.SettledAt,
		CreatedAt:       payment.CreatedAt,
	}
}
