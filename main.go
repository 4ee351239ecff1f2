package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	auction "vehicle-auction/internal/auctionService"
	bidding "vehicle-auction/internal/biddingService"
	"vehicle-auction/internal/clock"
	"vehicle-auction/internal/config"
	"vehicle-auction/internal/events"
	lifecycle "vehicle-auction/internal/lifecycleService"
	model "vehicle-auction/internal/models"
	"vehicle-auction/internal/repository"
	"vehicle-auction/internal/server"
	watchlist "vehicle-auction/internal/watchlistService"
	"vehicle-auction/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("Invalid configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore := openStore(cfg)
	defer closeStore()

	publisher, closePublisher := openPublisher(cfg)
	defer closePublisher()

	clk := clock.Real{}
	biddingSvc := bidding.NewBiddingService(store, clk, publisher, bidding.Options{
		AntiSnipeWindow:    cfg.AntiSnipeWindow,
		AntiSnipeExtension: cfg.AntiSnipeExtension,
		SellerCanBid:       cfg.SellerCanBid,
	})
	lifecycleSvc := lifecycle.NewLifecycleService(store, clk, publisher, lifecycle.Options{
		DefaultExtendMinutes: cfg.DefaultExtendMinutes,
		MaxExtendMinutes:     cfg.MaxExtendMinutes,
		EnforceReserve:       cfg.EnforceReserve,
	})
	auctionSvc := auction.NewAuctionService(store, clk, publisher)
	watchlistSvc := watchlist.NewWatchlistService(store, clk)

	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		if rdb = config.NewRedisClient(cfg.Redis); rdb != nil {
			defer rdb.Close()
		}
	}

	router := server.SetupRouter(server.Services{
		Bidding:   biddingSvc,
		Lifecycle: lifecycleSvc,
		Auctions:  auctionSvc,
		Watchlist: watchlistSvc,
	}, server.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
		Redis:     rdb,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SweepInterval > 0 {
		go lifecycle.NewSweeper(lifecycleSvc, cfg.SweepInterval).Run(ctx)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		utils.Info("Starting auction server", map[string]any{"addr": httpServer.Addr, "store": cfg.Store, "env": cfg.Env})
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		utils.Info("Shutdown signal received", nil)
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			utils.Error("HTTP server stopped", map[string]any{"error": err.Error()})
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		utils.Error("Graceful shutdown failed", map[string]any{"error": err.Error()})
		return
	}
	utils.Info("Server stopped", nil)
}

// openStore returns the configured backing store and its cleanup
func openStore(cfg config.Config) (repository.Store, func()) {
	if cfg.Store != config.StoreMySQL {
		repo := repository.NewMemoryRepo()
		prepopulateAuctions(repo, time.Now().UTC())
		return repo, func() {}
	}

	db, err := repository.OpenMySQL(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	if err != nil {
		utils.Fatal("Failed to connect to MySQL", map[string]any{"host": cfg.DB.Host, "error": err.Error()})
	}
	if cfg.DB.Migrate {
		if err := repository.Migrate(db, cfg.DB.Name); err != nil {
			utils.Fatal("Failed to run migrations", map[string]any{"error": err.Error()})
		}
	}
	return repository.NewMySQLRepo(db), closeDB(db)
}

func closeDB(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			utils.Warn("Failed to close database", map[string]any{"error": err.Error()})
		}
	}
}

// openPublisher returns the AMQP publisher when events are enabled, else a no-op
func openPublisher(cfg config.Config) (events.Publisher, func()) {
	if !cfg.EventsEnabled {
		return events.Noop{}, func() {}
	}
	pub, err := events.NewAMQPPublisher(cfg.RabbitMQURL)
	if err != nil {
		utils.Warn("Event broker unavailable, events disabled", map[string]any{"error": err.Error()})
		return events.Noop{}, func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			utils.Warn("Failed to close event publisher", map[string]any{"error": err.Error()})
		}
	}
}

// prepopulateAuctions adds sample listings to the in-memory repo
func prepopulateAuctions(repo *repository.MemoryRepo, now time.Time) {
	reserve := decimal.NewFromInt(15000)
	auctions := []model.Auction{
		{AuctionID: "auction1", SellerID: "seller1", Title: "2018 Honda Civic", Make: "Honda", Model: "Civic", Year: 2018, BodyType: "Sedan",
			StartingPrice: decimal.NewFromInt(9000), EndTime: now.Add(24 * time.Hour)},
		{AuctionID: "auction2", SellerID: "seller1", Title: "2020 Ford Ranger", Make: "Ford", Model: "Ranger", Year: 2020, BodyType: "Pickup",
			StartingPrice: decimal.NewFromInt(12000), ReservePrice: &reserve, EndTime: now.Add(48 * time.Hour)},
		{AuctionID: "auction3", SellerID: "seller2", Title: "2015 VW Golf", Make: "Volkswagen", Model: "Golf", Year: 2015, BodyType: "Hatchback",
			StartingPrice: decimal.NewFromInt(5000), EndTime: now.Add(2 * time.Hour)},
	}

	for _, a := range auctions {
		a.CurrentPrice = a.StartingPrice
		a.CreatedAt = now
		repo.AddAuction(a)
	}
}
