package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evermart/order-service/internal/entities"
	"github.com/evermart/order-service/internal/handler"
	"github.com/evermart/order-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrderService struct {
	createCustomerFn func(ctx context.Context, input service.CreateCustomerOrderInput) (uuid.UUID, error)
	createAdminFn    func(ctx context.Context, input service.CreateAdminOrderInput) (uuid.UUID, error)
	confirmFn        func(ctx context.Context, orderID uuid.UUID, paidAt time.Time) error
	getFn            func(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	listOrdersFn     func(ctx context.Context, limit, offset int) ([]entities.Order, error)
	listFn           func(ctx context.Context, limit, offset int) ([]entities.OrderOverview, error)
	countFn          func(ctx context.Context) (int, error)
	existsFn         func(ctx context.Context, orderID uuid.UUID) (bool, error)
	productBoughtFn  func(ctx context.Context, productID uuid.UUID) (bool, error)
	variantBoughtFn  func(ctx context.Context, variantID uuid.UUID) (bool, error)
}

func (s *stubOrderService) CreateCustomerOrder(ctx context.Context, input service.CreateCustomerOrderInput) (uuid.UUID, error) {
	return s.createCustomerFn(ctx, input)
}

func (s *stubOrderService) CreateAdminOrder(ctx context.Context, input service.CreateAdminOrderInput) (uuid.UUID, error) {
	return s.createAdminFn(ctx, input)
}

func (s *stubOrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paidAt time.Time) error {
	return s.confirmFn(ctx, orderID, paidAt)
}

func (s *stubOrderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	return s.getFn(ctx, orderID)
}

func (s *stubOrderService) ListOrders(ctx context.Context, limit, offset int) ([]entities.Order, error) {
	return s.listOrdersFn(ctx, limit, offset)
}

func (s *stubOrderService) ListOrderOverviews(ctx context.Context, limit, offset int) ([]entities.OrderOverview, error) {
	return s.listFn(ctx, limit, offset)
}

func (s *stubOrderService) CountOrders(ctx context.Context) (int, error) {
	return s.countFn(ctx)
}

func (s *stubOrderService) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.existsFn(ctx, orderID)
}

func (s *stubOrderService) ProductIsBought(ctx context.Context, productID uuid.UUID) (bool, error) {
	return s.productBoughtFn(ctx, productID)
}

func (s *stubOrderService) VariantIsBought(ctx context.Context, variantID uuid.UUID) (bool, error) {
	return s.variantBoughtFn(ctx, variantID)
}

func newTestRouter(svc *stubOrderService) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewHTTPHandler(logger, svc)
	r := chi.NewRouter()
	h.Init(r)
	return r
}

func createOrderBody(productID, variantID uuid.UUID) string {
	return fmt.Sprintf(`{
		"customer": {"name": "Anna", "email": "anna@example.com"},
		"shipping_address": {"country": "RU", "city": "Moscow", "street": "Arbat 1"},
		"products": [{
			"product_id": %q,
			"variants": [{"variant_id": %q, "sizes": [{"size_value": "37", "quantity": 2}]}]
		}]
	}`, productID, variantID)
}

func TestHTTPHandler_CreateOrder(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	orderID := uuid.New()

	testCases := []struct {
		name       string
		body       string
		svcFn      func(ctx context.Context, input service.CreateCustomerOrderInput) (uuid.UUID, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			body: createOrderBody(productID, variantID),
			svcFn: func(_ context.Context, input service.CreateCustomerOrderInput) (uuid.UUID, error) {
				if len(input.Products) != 1 || input.Products[0].ProductID != productID {
					return uuid.Nil, errors.New("unexpected input")
				}
				return orderID, nil
			},
			wantStatus: http.StatusCreated,
			wantBody:   orderID.String(),
		},
		{
			name:       "invalid body",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid request body",
		},
		{
			name: "missing customer email",
			body: `{
				"customer": {"name": "Anna"},
				"shipping_address": {"country": "RU", "city": "Moscow", "street": "Arbat 1"},
				"products": [{"product_id": "` + productID.String() + `",
					"variants": [{"variant_id": "` + variantID.String() + `", "sizes": [{"size_value": "37", "quantity": 2}]}]}]
			}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "Email",
		},
		{
			name: "not enough stock",
			body: createOrderBody(productID, variantID),
			svcFn: func(context.Context, service.CreateCustomerOrderInput) (uuid.UUID, error) {
				return uuid.Nil, &entities.NotEnoughStockError{SizeValue: "37", Requested: 2, Available: 1}
			},
			wantStatus: http.StatusConflict,
			wantBody:   "not enough stock",
		},
		{
			name: "unknown product",
			body: createOrderBody(productID, variantID),
			svcFn: func(context.Context, service.CreateCustomerOrderInput) (uuid.UUID, error) {
				return uuid.Nil, &entities.InvalidProductError{ProductID: productID}
			},
			wantStatus: http.StatusNotFound,
			wantBody:   productID.String(),
		},
		{
			name: "internal error",
			body: createOrderBody(productID, variantID),
			svcFn: func(context.Context, service.CreateCustomerOrderInput) (uuid.UUID, error) {
				return uuid.Nil, errors.New("db error")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "internal server error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&stubOrderService{createCustomerFn: tc.svcFn})

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			res := rr.Result()
			defer res.Body.Close()

			body, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, res.StatusCode)
			assert.Contains(t, string(body), tc.wantBody)
		})
	}
}

func TestHTTPHandler_CreateAdminOrder(t *testing.T) {
	adminID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	orderID := uuid.New()

	adminBody := fmt.Sprintf(`{
		"admin_id": %q,
		"customer": {"name": "Anna", "email": "anna@example.com"},
		"shipping_address": {"country": "RU", "city": "Moscow", "street": "Arbat 1"},
		"products": [{
			"product_id": %q,
			"variants": [{"variant_id": %q, "sizes": [{"size_value": "37", "quantity": 1}]}]
		}],
		"status": "CANCELLED",
		"payment_status": "EXPIRED"
	}`, adminID, productID, variantID)

	t.Run("success", func(t *testing.T) {
		svc := &stubOrderService{
			createAdminFn: func(_ context.Context, input service.CreateAdminOrderInput) (uuid.UUID, error) {
				if input.AdminID != adminID || input.Status != entities.OrderStatusCancelled {
					return uuid.Nil, errors.New("unexpected input")
				}
				return orderID, nil
			},
		}
		r := newTestRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/admin/orders", strings.NewReader(adminBody))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), orderID.String())
	})

	t.Run("unknown admin", func(t *testing.T) {
		svc := &stubOrderService{
			createAdminFn: func(context.Context, service.CreateAdminOrderInput) (uuid.UUID, error) {
				return uuid.Nil, &entities.InvalidCreatorError{AdminID: adminID}
			},
		}
		r := newTestRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/admin/orders", strings.NewReader(adminBody))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("paid status requires paid_at", func(t *testing.T) {
		body := strings.Replace(adminBody, `"payment_status": "EXPIRED"`, `"payment_status": "PAID"`, 1)
		body = strings.Replace(body, `"status": "CANCELLED"`, `"status": "WAITING_FOR_SHIPMENT"`, 1)

		r := newTestRouter(&stubOrderService{})
		req := httptest.NewRequest(http.MethodPost, "/admin/orders", strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestHTTPHandler_ConfirmPayment(t *testing.T) {
	orderID := uuid.New()

	testCases := []struct {
		name       string
		orderID    string
		svcErr     error
		wantStatus int
	}{
		{name: "success", orderID: orderID.String(), wantStatus: http.StatusNoContent},
		{name: "invalid id", orderID: "not-a-uuid", wantStatus: http.StatusBadRequest},
		{name: "not found", orderID: orderID.String(), svcErr: entities.ErrOrderNotFound, wantStatus: http.StatusNotFound},
		{
			name:       "already paid",
			orderID:    orderID.String(),
			svcErr:     &entities.PaymentAlreadyMadeError{OrderID: orderID},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "deadline exceeded",
			orderID:    orderID.String(),
			svcErr:     &entities.PaymentDeadlineExceededError{OrderID: orderID, Deadline: time.Now()},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrderService{
				confirmFn: func(_ context.Context, gotID uuid.UUID, _ time.Time) error {
					assert.Equal(t, orderID, gotID)
					return tc.svcErr
				},
			}
			r := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/orders/"+tc.orderID+"/payment", nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
		})
	}
}

func TestHTTPHandler_GetOrderByID(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()

	validOrder := entities.Order{
		ID:     orderID,
		Status: entities.OrderStatusWaitingForPayment,
		Customer: entities.Customer{Name: "Anna", Email: "anna@example.com"},
		Payment: entities.PaymentInfo{
			Status:   entities.PaymentStatusInGateway,
			Deadline: time.Now().Add(time.Hour),
		},
		Products: []entities.OrderProduct{{
			ProductID: productID,
			Name:      "sneakers",
			UnitPrice: decimal.NewFromInt(100),
			Variants: []entities.OrderVariant{{
				VariantID: variantID,
				Sizes:     []entities.OrderSize{{SizeValue: "37", Quantity: 2}},
			}},
		}},
	}

	testCases := []struct {
		name       string
		orderID    string
		svcOrder   entities.Order
		svcErr     error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			orderID:    orderID.String(),
			svcOrder:   validOrder,
			wantStatus: http.StatusOK,
			wantBody:   `"total_amount":"200"`,
		},
		{
			name:       "invalid id",
			orderID:    "not-a-uuid",
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid order id",
		},
		{
			name:       "not found",
			orderID:    orderID.String(),
			svcErr:     entities.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   "order not found",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrderService{
				getFn: func(context.Context, uuid.UUID) (entities.Order, error) {
					return tc.svcOrder, tc.svcErr
				},
			}
			r := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodGet, "/orders/"+tc.orderID, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			res := rr.Result()
			defer res.Body.Close()

			body, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, res.StatusCode)
			assert.Contains(t, string(body), tc.wantBody)

			if tc.wantStatus == http.StatusOK {
				var resp map[string]any
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, orderID.String(), resp["order_id"])
				assert.Equal(t, "WAITING_FOR_PAYMENT", resp["status"])
			}
		})
	}
}

func TestHTTPHandler_ListOrderOverviews(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	svc := &stubOrderService{
		listFn: func(_ context.Context, limit, offset int) ([]entities.OrderOverview, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 20, offset)
			return []entities.OrderOverview{
				{OrderID: first, Status: entities.OrderStatusShipped, TotalAmount: decimal.NewFromInt(100)},
				{OrderID: second, Status: entities.OrderStatusWaitingForPayment, TotalAmount: decimal.NewFromInt(50)},
			}, nil
		},
	}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders?limit=10&offset=20", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, first.String(), resp[0]["order_id"])
	assert.Equal(t, "SHIPPED", resp[0]["status"])
}

func TestHTTPHandler_OrderExists(t *testing.T) {
	orderID := uuid.New()

	testCases := []struct {
		name       string
		orderID    string
		exists     bool
		wantStatus int
	}{
		{name: "exists", orderID: orderID.String(), exists: true, wantStatus: http.StatusNoContent},
		{name: "missing", orderID: orderID.String(), wantStatus: http.StatusNotFound},
		{name: "invalid id", orderID: "not-a-uuid", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrderService{
				existsFn: func(_ context.Context, gotID uuid.UUID) (bool, error) {
					assert.Equal(t, orderID, gotID)
					return tc.exists, nil
				},
			}
			r := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodHead, "/orders/"+tc.orderID, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Empty(t, rr.Body.String())
		})
	}
}

func TestHTTPHandler_GetOrderStats(t *testing.T) {
	svc := &stubOrderService{
		countFn: func(context.Context) (int, error) { return 42, nil },
	}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"orders": 42}`, rr.Body.String())
}

func TestHTTPHandler_Purchased(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()

	svc := &stubOrderService{
		productBoughtFn: func(_ context.Context, gotID uuid.UUID) (bool, error) {
			assert.Equal(t, productID, gotID)
			return true, nil
		},
		variantBoughtFn: func(_ context.Context, gotID uuid.UUID) (bool, error) {
			assert.Equal(t, variantID, gotID)
			return false, nil
		},
	}
	r := newTestRouter(svc)

	t.Run("product purchased", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/products/"+productID.String()+"/purchased", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"purchased": true}`, rr.Body.String())
	})

	t.Run("variant not purchased", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/variants/"+variantID.String()+"/purchased", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"purchased": false}`, rr.Body.String())
	})

	t.Run("invalid product id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/products/not-a-uuid/purchased", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHTTPHandler_ListOrders(t *testing.T) {
	orderID := uuid.New()

	svc := &stubOrderService{
		listOrdersFn: func(_ context.Context, limit, offset int) ([]entities.Order, error) {
			assert.Equal(t, 50, limit)
			assert.Equal(t, 0, offset)
			return []entities.Order{{
				ID:     orderID,
				Status: entities.OrderStatusWaitingForPayment,
				Payment: entities.PaymentInfo{
					Status:   entities.PaymentStatusInGateway,
					Deadline: time.Now().Add(time.Hour),
				},
			}}, nil
		},
	}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, orderID.String(), resp[0]["order_id"])
}
