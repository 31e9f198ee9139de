package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  session_id TEXT NOT NULL,
  sibling_order_ids TEXT,
  customer_id TEXT NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount INTEGER NOT NULL,
  external_order_id TEXT NOT NULL UNIQUE,
  transaction_id TEXT,
  result_code INTEGER,
  pay_url TEXT,
  failure_reason TEXT,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(payments).Error)
	return db
}

func createPayment(t *testing.T, db *gorm.DB, method enums.PaymentMethod, status enums.PaymentStatus) *models.Payment {
	t.Helper()

	orderID := uuid.New()
	payment := &models.Payment{
		ID:              uuid.New(),
		OrderID:         orderID,
		SessionID:       uuid.New(),
		CustomerID:      uuid.New(),
		Method:          method,
		Status:          status,
		Amount:          50000,
		ExternalOrderID: orderID.String(),
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func TestFindPaymentByExternalOrderID(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	payment := createPayment(t, db, enums.PaymentMethodWallet, enums.PaymentStatusPending)

	got, err := repo.FindPaymentByExternalOrderID(ctx, payment.ExternalOrderID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)

	_, err = repo.FindPaymentByExternalOrderID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindPaymentByOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	payment := createPayment(t, db, enums.PaymentMethodCOD, enums.PaymentStatusSuccess)

	got, err := repo.FindPaymentByOrder(ctx, payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)
}

func TestUpdatePaymentStatusIfSettlesOnce(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	payment := createPayment(t, db, enums.PaymentMethodWallet, enums.PaymentStatusPending)
	now := time.Now().UTC()

	moved, err := repo.UpdatePaymentStatusIf(ctx, payment.ID, enums.PaymentStatusPending, map[string]any{
		"status":     enums.PaymentStatusSuccess,
		"settled_at": now,
	})
	require.NoError(t, err)
	assert.True(t, moved)

	// Duplicate webhook loses the conditional update.
	moved, err = repo.UpdatePaymentStatusIf(ctx, payment.ID, enums.PaymentStatusPending, map[string]any{
		"status": enums.PaymentStatusFailed,
	})
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := repo.FindPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, got.Status)
	require.NotNil(t, got.SettledAt)
}
