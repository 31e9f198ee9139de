package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/api/middleware"
	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
	"github.com/skyserve/skyserve-backend/pkg/pagination"
)

type stubOrdersService struct {
	order        *orders.OrderDTO
	list         *orders.OrderList
	err          error
	statusInput  *orders.UpdateStatusInput
	cancelInput  *orders.CancelInput
	confirmInput *orders.ConfirmDeliveryInput
}

func (s *stubOrdersService) GetOrder(ctx context.Context, actor orders.Actor, sessionID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrdersService) ListCustomerOrders(ctx context.Context, actor orders.Actor, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return s.list, s.err
}

func (s *stubOrdersService) ListShopOrders(ctx context.Context, actor orders.Actor, shopID uuid.UUID, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return s.list, s.err
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	s.statusInput = &input
	return s.order, s.err
}

func (s *stubOrdersService) ConfirmDelivery(ctx context.Context, input orders.ConfirmDeliveryInput) (*orders.OrderDTO, error) {
	s.confirmInput = &input
	return s.order, s.err
}

func (s *stubOrdersService) Cancel(ctx context.Context, input orders.CancelInput) (*orders.OrderDTO, error) {
	s.cancelInput = &input
	return s.order, s.err
}

func (s *stubOrdersService) AdvanceToInTransit(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return false, s.err
}

func shopOwnerOrderRequest(method, url, body string, sessionID, shopOrderID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.ActorRoleShopOwner))
	ctx = middleware.WithShopID(ctx, uuid.NewString())

	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", sessionID.String())
	rc.URLParams.Add("shopOrderId", shopOrderID.String())
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rc))
}

func TestOrderUpdateStatusSuccess(t *testing.T) {
	t.Parallel()

	sessionID := uuid.New()
	shopOrderID := uuid.New()
	svc := &stubOrdersService{
		order: &orders.OrderDTO{ID: shopOrderID, Status: enums.OrderStatusPreparing},
	}

	req := shopOwnerOrderRequest(http.MethodPatch, "/api/v1/orders/x/shop-orders/y/status", `{"status":"preparing"}`, sessionID, shopOrderID)
	resp := httptest.NewRecorder()
	OrderUpdateStatus(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.statusInput == nil {
		t.Fatal("expected service call")
	}
	if svc.statusInput.SessionID != sessionID || svc.statusInput.OrderID != shopOrderID {
		t.Fatalf("wrong identifiers forwarded: %+v", svc.statusInput)
	}
	if svc.statusInput.Target != enums.OrderStatusPreparing {
		t.Fatalf("unexpected target %s", svc.statusInput.Target)
	}
}

func TestOrderUpdateStatusRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	svc := &stubOrdersService{}
	req := shopOwnerOrderRequest(http.MethodPatch, "/api/v1/orders/x/shop-orders/y/status", `{"status":"teleported"}`, uuid.New(), uuid.New())
	resp := httptest.NewRecorder()
	OrderUpdateStatus(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.statusInput != nil {
		t.Fatal("service should not be called for an unknown status")
	}
}

func TestOrderUpdateStatusPropagatesStateConflict(t *testing.T) {
	t.Parallel()

	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "illegal transition")}
	req := shopOwnerOrderRequest(http.MethodPatch, "/api/v1/orders/x/shop-orders/y/status", `{"status":"delivered"}`, uuid.New(), uuid.New())
	resp := httptest.NewRecorder()
	OrderUpdateStatus(svc, nil)(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected error code %s", payload.Error.Code)
	}
}

func TestOrderCancelRequiresReason(t *testing.T) {
	t.Parallel()

	svc := &stubOrdersService{}
	req := shopOwnerOrderRequest(http.MethodPost, "/api/v1/orders/x/shop-orders/y/cancel", `{}`, uuid.New(), uuid.New())
	resp := httptest.NewRecorder()
	OrderCancel(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.cancelInput != nil {
		t.Fatal("service should not be called without a reason")
	}
}

func TestOrderCancelForwardsReason(t *testing.T) {
	t.Parallel()

	sessionID := uuid.New()
	shopOrderID := uuid.New()
	svc := &stubOrdersService{
		order: &orders.OrderDTO{ID: shopOrderID, Status: enums.OrderStatusCancelled},
	}
	req := shopOwnerOrderRequest(http.MethodPost, "/api/v1/orders/x/shop-orders/y/cancel", `{"reason":"kitchen closed early"}`, sessionID, shopOrderID)
	resp := httptest.NewRecorder()
	OrderCancel(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.cancelInput == nil || svc.cancelInput.Reason != "kitchen closed early" {
		t.Fatalf("reason not forwarded: %+v", svc.cancelInput)
	}
}

func TestOrderListRejectsBadStatusFilter(t *testing.T) {
	t.Parallel()

	svc := &stubOrdersService{list: &orders.OrderList{}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=warp", nil)
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.ActorRoleCustomer))
	req = req.WithContext(ctx)

	resp := httptest.NewRecorder()
	OrderList(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderListSuccess(t *testing.T) {
	t.Parallel()

	svc := &stubOrdersService{
		list: &orders.OrderList{Orders: []orders.OrderDTO{{ID: uuid.New()}}, NextCursor: "abc"},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=10&status=pending", nil)
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.ActorRoleCustomer))
	req = req.WithContext(ctx)

	resp := httptest.NewRecorder()
	OrderList(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data orders.OrderList `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.NextCursor != "abc" {
		t.Fatalf("unexpected list payload: %+v", envelope.Data)
	}
}
