package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/api/middleware"
	checkoutsvc "github.com/skyserve/skyserve-backend/internal/checkout"
	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
)

type stubCheckoutService struct {
	result *checkoutsvc.Result
	err    error
	input  checkoutsvc.CreateInput
}

func (s *stubCheckoutService) Create(ctx context.Context, input checkoutsvc.CreateInput) (*checkoutsvc.Result, error) {
	s.input = input
	return s.result, s.err
}

func customerRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.ActorRoleCustomer))
	return req.WithContext(ctx)
}

func checkoutBody(shopID, itemID uuid.UUID) string {
	return fmt.Sprintf(`{
		"lines": [{"shopId": %q, "menuItemId": %q, "qty": 2}],
		"address": {"text": "12 Hang Bai, Hanoi", "lat": 21.02, "lng": 105.85},
		"paymentMethod": "cod"
	}`, shopID, itemID)
}

func TestCheckoutSuccess(t *testing.T) {
	t.Parallel()

	shopID := uuid.New()
	itemID := uuid.New()
	svc := &stubCheckoutService{
		result: &checkoutsvc.Result{
			SessionID: uuid.New(),
			Orders:    []orders.OrderDTO{{ID: uuid.New(), ShopID: shopID}},
			Total:     9000,
		},
	}

	req := customerRequest(http.MethodPost, "/api/v1/checkout", checkoutBody(shopID, itemID))
	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data checkoutsvc.Result `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.SessionID != svc.result.SessionID {
		t.Fatalf("unexpected session id %s", envelope.Data.SessionID)
	}
	if len(svc.input.Lines) != 1 || svc.input.Lines[0].Qty != 2 {
		t.Fatalf("service received wrong cart lines: %+v", svc.input.Lines)
	}
	if svc.input.PaymentMethod != enums.PaymentMethodCOD {
		t.Fatalf("unexpected payment method %s", svc.input.PaymentMethod)
	}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{}
	body := `{
		"lines": [],
		"address": {"text": "12 Hang Bai, Hanoi"},
		"paymentMethod": "cod"
	}`
	req := customerRequest(http.MethodPost, "/api/v1/checkout", body)
	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	t.Parallel()

	shopID := uuid.New()
	itemID := uuid.New()
	svc := &stubCheckoutService{}
	body := fmt.Sprintf(`{
		"lines": [{"shopId": %q, "menuItemId": %q, "qty": 1}],
		"address": {"text": "12 Hang Bai, Hanoi"},
		"paymentMethod": "carrier_pigeon"
	}`, shopID, itemID)
	req := customerRequest(http.MethodPost, "/api/v1/checkout", body)
	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutRequiresAuthenticatedActor(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody(uuid.New(), uuid.New())))
	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutPropagatesServiceError(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeUnavailable, "menu item unavailable")}
	req := customerRequest(http.MethodPost, "/api/v1/checkout", checkoutBody(uuid.New(), uuid.New()))
	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, req)

	if resp.Code == http.StatusCreated {
		t.Fatalf("expected error status, got 201")
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeUnavailable) {
		t.Fatalf("unexpected error code %s", payload.Error.Code)
	}
}
