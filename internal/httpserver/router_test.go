package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	couponsvc "storefront/internal/service/coupon"
)

func decodeError(t *testing.T, body []byte) errorResponse {
	t.Helper()
	var out errorResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode error body %s: %v", body, err)
	}
	return out
}

func TestBuildRouterRequiresServices(t *testing.T) {
	deps := testDeps()
	deps.Checkout = nil
	if _, err := buildRouter(zap.NewNop(), nil, deps); err == nil {
		t.Fatalf("expected error for missing checkout service")
	}
}

func TestHealthAndReadiness(t *testing.T) {
	router := newTestRouter(t, testDeps())

	if rec := do(router, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: expected 503, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t, testDeps())

	rec := do(router, http.MethodGet, "/healthz", "", "")
	if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("expected generated request id, got %q", rec.Header().Get(requestIDHeader))
	}
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t, testDeps())

	cases := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{name: "missing token", path: "/cart", want: http.StatusUnauthorized},
		{name: "bad token", path: "/me/orders", token: "forged", want: http.StatusUnauthorized},
		{name: "user on admin route", path: "/admin/coupons", token: userToken, want: http.StatusForbidden},
		{name: "admin on admin route", path: "/admin/coupons", token: adminToken, want: http.StatusOK},
		{name: "user on own route", path: "/me/addresses", token: userToken, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(router, http.MethodGet, tc.path, tc.token, "")
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuthRejectsMalformedHeader(t *testing.T) {
	router := newTestRouter(t, testDeps())

	req := `{"paymentMethod":"cod"}`
	rec := do(router, http.MethodPost, "/checkout", "forged", req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token on optional route, got %d", rec.Code)
	}
	if got := decodeError(t, rec.Body.Bytes()); got.Error != "Unauthorized" {
		t.Fatalf("unexpected error code %q", got.Error)
	}
}

func TestListProducts(t *testing.T) {
	deps := testDeps()
	deps.Products = &stubProductService{products: []domain.Product{
		{ID: someID, Name: "Tea", Slug: "tea", Price: decimal.RequireFromString("120"), IsActive: true},
	}}
	router := newTestRouter(t, deps)

	rec := do(router, http.MethodGet, "/products", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"count":1`) || !strings.Contains(rec.Body.String(), `"slug":"tea"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestGetProductNotFound(t *testing.T) {
	router := newTestRouter(t, testDeps())

	for _, path := range []string{"/products/not-a-uuid", "/products/" + someID} {
		rec := do(router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
		if got := decodeError(t, rec.Body.Bytes()); got.Error != "NotFound" {
			t.Fatalf("%s: unexpected error code %q", path, got.Error)
		}
	}
}

func TestValidateCoupon(t *testing.T) {
	deps := testDeps()
	coupons := &stubCouponService{applied: &couponsvc.Applied{
		Coupon:   domain.Coupon{Code: "SAVE10", DiscountType: domain.DiscountPercentage},
		Discount: decimal.RequireFromString("50"),
	}}
	deps.Coupons = coupons
	router := newTestRouter(t, deps)

	rec := do(router, http.MethodPost, "/coupons/validate", "", `{"code":"save10","subtotal":"500"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var preview couponPreview
	if err := json.Unmarshal(rec.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !preview.Valid || !preview.Discount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected preview %+v", preview)
	}

	coupons.applied, coupons.err = nil, &pricing.CouponError{Code: "SAVE10", Reason: pricing.ReasonBelowMinimum}
	rec = do(router, http.MethodPost, "/coupons/validate", "", `{"code":"save10","subtotal":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for rejected coupon, got %d", rec.Code)
	}
	preview = couponPreview{}
	if err := json.Unmarshal(rec.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if preview.Valid || preview.Reason != pricing.ReasonBelowMinimum || preview.Code != "SAVE10" {
		t.Fatalf("unexpected preview %+v", preview)
	}
}

func TestValidateCouponStorageFailure(t *testing.T) {
	deps := testDeps()
	deps.Coupons = &stubCouponService{err: errors.New("connection reset")}
	router := newTestRouter(t, deps)

	rec := do(router, http.MethodPost, "/coupons/validate", "", `{"code":"X","subtotal":"10"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestValidateCouponRejectsNegativeSubtotal(t *testing.T) {
	router := newTestRouter(t, testDeps())

	rec := do(router, http.MethodPost, "/coupons/validate", "", `{"code":"X","subtotal":"-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
