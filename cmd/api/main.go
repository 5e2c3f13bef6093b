package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/payments"
	"storefront/internal/pricing"
	addressrepo "storefront/internal/repository/address"
	cartrepo "storefront/internal/repository/cart"
	couponrepo "storefront/internal/repository/coupon"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	addresssvc "storefront/internal/service/address"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	couponsvc "storefront/internal/service/coupon"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.Named("api")

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	shipping := pricing.ShippingPolicy{FreeThreshold: cfg.ShippingFreeThreshold, FlatFee: cfg.ShippingFlatFee}

	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)
	couponRepo := couponrepo.NewPostgres(dbpool)
	addressRepo := addressrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	productService := productsvc.New(productRepo)
	couponService := couponsvc.New(couponRepo, time.Now)
	cartService := cartsvc.New(cartRepo, productService, couponService, shipping, cfg.Currency)
	orderService := ordersvc.New(orderRepo, logger)
	addressService := addresssvc.New(addressRepo)

	deps := httpserver.Deps{
		Products:       productService,
		Carts:          cartService,
		Coupons:        couponService,
		Orders:         orderService,
		Addresses:      addressService,
		Verifier:       auth.NewVerifier(cfg.JWTSecret, auth.WithIssuer(cfg.JWTIssuer)),
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if cfg.JWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; authenticated routes will answer 503")
	}

	checkoutDeps := checkoutsvc.Deps{
		Carts:     cartRepo,
		Catalog:   productService,
		Coupons:   couponService,
		Addresses: addressRepo,
		Orders:    orderRepo,
		Shipping:  shipping,
		Currency:  cfg.Currency,
		Logger:    logger,
	}
	stripe, err := payments.NewStripeProvider(payments.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
		Logger:        logger,
	})
	switch {
	case errors.Is(err, payments.ErrNotConfigured):
		logger.Warn("STRIPE_SECRET_KEY not set; online payments disabled")
	case err != nil:
		logger.Fatal("init stripe", zap.Error(err))
	default:
		checkoutDeps.Payments = stripe
		deps.Webhooks = stripe
	}

	checkoutService, err := checkoutsvc.New(checkoutDeps)
	if err != nil {
		logger.Fatal("init checkout", zap.Error(err))
	}
	deps.Checkout = checkoutService

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, deps)
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}
