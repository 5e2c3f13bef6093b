package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/payments"
	orderrepo "storefront/internal/repository/order"
	addresssvc "storefront/internal/service/address"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	couponsvc "storefront/internal/service/coupon"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
	userID     = "11111111-1111-1111-1111-111111111111"
	adminID    = "22222222-2222-2222-2222-222222222222"
	someID     = "33333333-3333-3333-3333-333333333333"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (*auth.Identity, error) {
	switch token {
	case userToken:
		return &auth.Identity{UserID: userID, Email: "buyer@example.com"}, nil
	case adminToken:
		return &auth.Identity{UserID: adminID, Email: "ops@example.com", Role: auth.RoleAdmin}, nil
	}
	return nil, auth.ErrTokenInvalid
}

type stubProductService struct {
	products []domain.Product
	err      error
}

func (s *stubProductService) List(context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductService) Get(_ context.Context, id string) (*domain.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubCartService struct {
	view       *cartsvc.View
	line       *domain.CartLine
	err        error
	lastUser   string
	lastCoupon string
	lastQty    int
	cleared    bool
}

func (s *stubCartService) View(_ context.Context, userID, couponCode string) (*cartsvc.View, error) {
	s.lastUser, s.lastCoupon = userID, couponCode
	return s.view, s.err
}

func (s *stubCartService) AddItem(_ context.Context, userID string, in cartsvc.AddItemInput) (*domain.CartLine, error) {
	s.lastUser, s.lastQty = userID, in.Quantity
	return s.line, s.err
}

func (s *stubCartService) UpdateQuantity(_ context.Context, userID, _ string, quantity int) (*domain.CartLine, error) {
	s.lastUser, s.lastQty = userID, quantity
	if quantity == 0 {
		return nil, s.err
	}
	return s.line, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, userID, _ string) error {
	s.lastUser = userID
	return s.err
}

func (s *stubCartService) Clear(_ context.Context, userID string) error {
	s.lastUser, s.cleared = userID, true
	return s.err
}

type stubCouponService struct {
	applied *couponsvc.Applied
	coupons []domain.Coupon
	created *domain.Coupon
	err     error
}

func (s *stubCouponService) Evaluate(context.Context, string, decimal.Decimal) (*couponsvc.Applied, error) {
	return s.applied, s.err
}

func (s *stubCouponService) List(context.Context) ([]domain.Coupon, error) {
	return s.coupons, s.err
}

func (s *stubCouponService) Create(_ context.Context, in couponsvc.CreateInput) (*domain.Coupon, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.created != nil {
		return s.created, nil
	}
	return &domain.Coupon{ID: someID, Code: in.Code, IsActive: true}, nil
}

func (s *stubCouponService) Deactivate(_ context.Context, id string) (*domain.Coupon, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Coupon{ID: id, Code: "SAVE10"}, nil
}

type stubCheckoutService struct {
	result *checkoutsvc.Result
	err    error
	last   checkoutsvc.Request
}

func (s *stubCheckoutService) PlaceOrder(_ context.Context, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	s.last = req
	return s.result, s.err
}

type stubOrderService struct {
	orders     []domain.Order
	err        error
	lastFilter orderrepo.ListFilter
	events     []payments.Event
}

func (s *stubOrderService) ListForUser(context.Context, string) ([]domain.Order, error) {
	return s.orders, s.err
}

func (s *stubOrderService) GetForUser(_ context.Context, uid, id string) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.orders {
		o := s.orders[i]
		if o.ID == id && o.UserID != nil && *o.UserID == uid {
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrderService) List(_ context.Context, filter orderrepo.ListFilter) ([]domain.Order, error) {
	s.lastFilter = filter
	return s.orders, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{ID: id, Status: next}, nil
}

func (s *stubOrderService) ApplyPaymentEvent(_ context.Context, evt payments.Event) (*domain.Order, error) {
	s.events = append(s.events, evt)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{ID: evt.OrderID}, nil
}

type stubAddressService struct {
	addresses []domain.Address
	err       error
}

func (s *stubAddressService) List(context.Context, string) ([]domain.Address, error) {
	return s.addresses, s.err
}

func (s *stubAddressService) Create(_ context.Context, uid string, in addresssvc.CreateInput) (*domain.Address, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Address{ID: someID, UserID: uid, FullName: in.FullName}, nil
}

type stubWebhookParser struct {
	evt *payments.Event
	err error
}

func (s *stubWebhookParser) ParseWebhook([]byte, string) (*payments.Event, error) {
	return s.evt, s.err
}

func testDeps() Deps {
	return Deps{
		Products:  &stubProductService{},
		Carts:     &stubCartService{},
		Coupons:   &stubCouponService{},
		Checkout:  &stubCheckoutService{},
		Orders:    &stubOrderService{},
		Addresses: &stubAddressService{},
		Verifier:  stubVerifier{},
	}
}

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := buildRouter(zap.NewNop(), nil, deps)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func do(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
