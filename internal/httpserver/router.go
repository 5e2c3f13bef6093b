package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
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

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CartService interface {
	View(ctx context.Context, userID, couponCode string) (*cartsvc.View, error)
	AddItem(ctx context.Context, userID string, in cartsvc.AddItemInput) (*domain.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.CartLine, error)
	RemoveItem(ctx context.Context, userID, lineID string) error
	Clear(ctx context.Context, userID string) error
}

type CouponService interface {
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*couponsvc.Applied, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Create(ctx context.Context, in couponsvc.CreateInput) (*domain.Coupon, error)
	Deactivate(ctx context.Context, id string) (*domain.Coupon, error)
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, req checkoutsvc.Request) (*checkoutsvc.Result, error)
}

type OrderService interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Order, error)
	GetForUser(ctx context.Context, userID, id string) (*domain.Order, error)
	List(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error)
	ApplyPaymentEvent(ctx context.Context, evt payments.Event) (*domain.Order, error)
}

type AddressService interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Create(ctx context.Context, userID string, in addresssvc.CreateInput) (*domain.Address, error)
}

type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payments.Event, error)
}

// Deps groups the services the router dispatches to. Webhooks may be nil
// when no gateway is configured.
type Deps struct {
	Products       ProductService
	Carts          CartService
	Coupons        CouponService
	Checkout       CheckoutService
	Orders         OrderService
	Addresses      AddressService
	Verifier       TokenVerifier
	Webhooks       WebhookParser
	AllowedOrigins []string
}

func (d Deps) validate() error {
	if d.Products == nil || d.Carts == nil || d.Coupons == nil || d.Checkout == nil ||
		d.Orders == nil || d.Addresses == nil || d.Verifier == nil {
		return errors.New("httpserver: missing service dependency")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestLogger(logger), recovery(logger))
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", idempotencyHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}
	requireUser := authenticate(deps.Verifier, true)
	optionalUser := authenticate(deps.Verifier, false)

	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)
	router.POST("/coupons/validate", h.validateCoupon)
	router.POST("/checkout", optionalUser, h.checkout)
	router.POST("/webhooks/stripe", h.stripeWebhook)

	cart := router.Group("/cart", requireUser)
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.POST("/items", h.addCartItem)
	cart.PATCH("/items/:id", h.updateCartItem)
	cart.DELETE("/items/:id", h.removeCartItem)

	me := router.Group("/me", requireUser)
	me.GET("/orders", h.listMyOrders)
	me.GET("/orders/:id", h.getMyOrder)
	me.GET("/addresses", h.listAddresses)
	me.POST("/addresses", h.createAddress)

	admin := router.Group("/admin", requireUser, requireAdmin())
	admin.GET("/coupons", h.listCoupons)
	admin.POST("/coupons", h.createCoupon)
	admin.POST("/coupons/:id/deactivate", h.deactivateCoupon)
	admin.GET("/orders", h.listOrders)
	admin.PATCH("/orders/:id/status", h.updateOrderStatus)

	return router, nil
}

type handlers struct {
	deps   Deps
	logger *zap.Logger
}
