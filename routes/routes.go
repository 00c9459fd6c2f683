package routes

import (
	"time"

	"adspot/handlers"
	"adspot/middleware"
	"adspot/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires the HTTP surface: CORS, panic recovery, per-IP rate
// limiting, the booking lifecycle endpoints and the read-side lists.
func SetupRouter(reservationHandler *handlers.ReservationHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RateLimitMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", reservationHandler.CreateReservation)
			bookings.GET("/:id", reservationHandler.GetReservation)
			bookings.POST("/:id/accept", reservationHandler.AcceptBooking)
			bookings.POST("/:id/decline", reservationHandler.DeclineBooking)
			bookings.POST("/:id/cancel", reservationHandler.CancelBooking)
			bookings.POST("/:id/refund-settled", reservationHandler.MarkRefundSettled)
		}

		api.GET("/screens/:id/bookings", reservationHandler.ListForScreen)
		api.GET("/owners/:id/bookings", reservationHandler.ListForOwner)
		api.GET("/renters/:id/bookings", reservationHandler.ListForRenter)
	}

	return router
}
