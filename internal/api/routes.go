package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shakthivel10/FSND/internal/handlers"
	"github.com/shakthivel10/FSND/internal/metrics"
	"github.com/shakthivel10/FSND/internal/middleware"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// Common holds the middleware dependencies shared by both services.
type Common struct {
	Logger    *zap.Logger
	AccessLog *logrus.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
}

// DrinkRoutes holds what the drinks API needs. RateLimiter is optional.
type DrinkRoutes struct {
	Common
	Drinks      *handlers.DrinkHandler
	Status      *handlers.StatusHandler
	Authorizer  middleware.Authorizer
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
}

// SetupDrinkRoutes configures the drinks API with its middleware
func SetupDrinkRoutes(router *gin.Engine, r DrinkRoutes) {
	setupCommon(router, r.Common)
	router.Use(cors.New(corsConfig(r.CORSOrigins)))
	router.Use(middleware.ErrorHandler())

	// Public routes
	router.GET("/status", r.Status.Status)
	router.GET("/drinks", r.Drinks.ListDrinks)

	// Protected routes
	guard := func(permission string) []gin.HandlerFunc {
		chain := []gin.HandlerFunc{middleware.RequiresAuth(r.Authorizer, permission)}
		if r.RateLimiter != nil {
			chain = append(chain, r.RateLimiter.RateLimit())
		}
		return chain
	}
	router.GET("/drinks-detail", append(guard("get:drinks-detail"), r.Drinks.ListDrinkDetails)...)
	router.POST("/drinks", append(guard("post:drinks"), r.Drinks.CreateDrink)...)
	router.PATCH("/drinks/:id", append(guard("patch:drinks"), r.Drinks.UpdateDrink)...)
	router.DELETE("/drinks/:id", append(guard("delete:drinks"), r.Drinks.DeleteDrink)...)
}

// SetupBookingRoutes configures the venue, artist and show resources
func SetupBookingRoutes(router *gin.Engine, h *handlers.BookingHandler, common Common) {
	setupCommon(router, common)
	router.Use(middleware.ErrorHandler())

	router.GET("/", h.Home)

	venues := router.Group("/venues")
	{
		venues.GET("", h.ListVenues)
		venues.POST("", h.CreateVenue)
		venues.POST("/search", h.SearchVenues)
		venues.GET("/:id", h.GetVenue)
		venues.POST("/:id/edit", h.UpdateVenue)
		venues.DELETE("/:id", h.DeleteVenue)
	}

	artists := router.Group("/artists")
	{
		artists.GET("", h.ListArtists)
		artists.POST("", h.CreateArtist)
		artists.POST("/search", h.SearchArtists)
		artists.GET("/:id", h.GetArtist)
		artists.POST("/:id/edit", h.UpdateArtist)
	}

	shows := router.Group("/shows")
	{
		shows.GET("", h.ListShows)
		shows.POST("", h.CreateShow)
	}
}

func setupCommon(router *gin.Engine, common Common) {
	router.HandleMethodNotAllowed = true
	router.NoRoute(middleware.NotFoundHandler())
	router.NoMethod(middleware.MethodNotAllowedHandler())

	// Global middleware
	router.Use(middleware.RequestIDMiddleware(common.Logger))
	router.Use(middleware.Logger(common.AccessLog))
	router.Use(middleware.Metrics(common.Metrics))

	router.GET("/health", handlers.Health)
	if common.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(common.Gatherer, promhttp.HandlerOpts{})))
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
