package server

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"vehicle-auction/internal/config"
	model "vehicle-auction/internal/models"
	handler "vehicle-auction/services/bidding/handler"
	"vehicle-auction/services/bidding/helpers"
)

// Services bundles what the HTTP layer calls into
type Services struct {
	Bidding   handler.BiddingServiceInterface
	Lifecycle handler.LifecycleServiceInterface
	Auctions  handler.AuctionServiceInterface
	Watchlist handler.WatchlistServiceInterface
}

// Options carries the transport concerns of the router
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(services Services, opts Options) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	helpers.RegisterValidators()

	biddingHandler := handler.NewBiddingHandler(services.Bidding)
	lifecycleHandler := handler.NewLifecycleHandler(services.Lifecycle)
	auctionHandler := handler.NewAuctionHandler(services.Auctions)
	watchlistHandler := handler.NewWatchlistHandler(services.Watchlist)

	auth := JWTAuth(opts.JWTSecret)
	sellers := RequireRole(model.RoleSeller, model.RoleAdmin)
	admins := RequireRole(model.RoleAdmin)

	router.GET("/healthz", auctionHandler.HealthHandler)

	bids := router.Group("/bids")
	{
		bids.POST("", auth, RateLimit(opts.RateLimit, opts.Redis), biddingHandler.RecordBidHandler)
		bids.GET("/vehicle/:auction_id", biddingHandler.GetBidsByAuctionHandler)
		bids.GET("/vehicle/:auction_id/leading", biddingHandler.GetLeadingBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", auctionHandler.ListAuctionsHandler)
		auctions.POST("", auth, sellers, auctionHandler.CreateAuctionHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.PATCH("/:auction_id", auth, sellers, auctionHandler.UpdateAuctionHandler)
		auctions.GET("/:auction_id/winner", auctionHandler.GetWinnerHandler)
	}

	lifecycle := router.Group("/auction")
	{
		lifecycle.GET("/status/:auction_id", auctionHandler.GetAuctionStatusHandler)
		lifecycle.POST("/close-ended", lifecycleHandler.CloseEndedHandler)
		lifecycle.POST("/pause/:auction_id", auth, lifecycleHandler.TogglePauseHandler)
		lifecycle.POST("/extend/:auction_id", auth, lifecycleHandler.ExtendHandler)
		lifecycle.POST("/close/:auction_id", auth, sellers, lifecycleHandler.CloseNowHandler)
	}

	admin := router.Group("/admin", auth, admins)
	{
		admin.POST("/auction/pause/:auction_id", lifecycleHandler.TogglePauseHandler)
		admin.POST("/auction/close/:auction_id", lifecycleHandler.CloseNowHandler)
		admin.GET("/bids", biddingHandler.ListBidsHandler)
		admin.DELETE("/bids/:bid_id", biddingHandler.DeleteBidHandler)
		admin.PATCH("/auctions/:auction_id", auctionHandler.UpdateAuctionHandler)
		admin.DELETE("/auctions/:auction_id", auctionHandler.DeleteAuctionHandler)
	}

	users := router.Group("/users", auth)
	{
		users.GET("/me/auctions", biddingHandler.GetMyAuctionsHandler)
	}

	watchlist := router.Group("/watchlist", auth)
	{
		watchlist.GET("", watchlistHandler.ListHandler)
		watchlist.POST("", watchlistHandler.AddHandler)
		watchlist.GET("/check/:auction_id", watchlistHandler.CheckHandler)
		watchlist.DELETE("/:auction_id", watchlistHandler.RemoveHandler)
	}

	return router
}
