package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	couponrepo "storefront/internal/repository/coupon"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/seed"
	couponsvc "storefront/internal/service/coupon"
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
	logger = logger.Named("seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	products := productsvc.New(productrepo.NewPostgres(pool, logger))
	coupons := couponsvc.New(couponrepo.NewPostgres(pool), time.Now)
	if err := seed.Apply(ctx, products, coupons, logger); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied")
}
