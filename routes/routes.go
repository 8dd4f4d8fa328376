package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Prabhav200511/QuickQRTicket/controllers"
	"github.com/Prabhav200511/QuickQRTicket/middleware"
	"github.com/Prabhav200511/QuickQRTicket/models"
)

func SetupRoutes(
	router *gin.Engine,
	secret []byte,
	auth *controllers.AuthController,
	events *controllers.EventController,
	tickets *controllers.TicketController,
) {
	api := router.Group("/api")

	api.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "QuickTicket API is running!"})
	})

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/signup", auth.Signup)
		authRoutes.POST("/login", auth.Login)
		authRoutes.POST("/logout", auth.Logout)

		protected := authRoutes.Group("")
		protected.Use(middleware.AuthMiddleware(secret))
		{
			protected.GET("/me", auth.Me)
			protected.PUT("/update-profile", auth.UpdateProfile)
			protected.POST("/send-otp", auth.SendOTP)
			protected.POST("/change-password", auth.ChangePassword)
			protected.DELETE("/delete-account", auth.DeleteAccount)
		}
	}

	eventRoutes := api.Group("/events")
	eventRoutes.Use(middleware.AuthMiddleware(secret))
	{
		eventRoutes.POST("/create", middleware.RequireRole(string(models.RoleHost)), events.CreateEvent)
		eventRoutes.GET("/all", middleware.RequireRole(string(models.RoleCustomer)), events.GetAllEvents)
		eventRoutes.GET("/host", middleware.RequireRole(string(models.RoleHost)), events.GetHostEvents)
	}

	ticketRoutes := api.Group("/tickets")
	ticketRoutes.Use(middleware.AuthMiddleware(secret))
	{
		ticketRoutes.POST("/buy", middleware.RequireRole(string(models.RoleCustomer)), tickets.BuyTicket)
		ticketRoutes.GET("/my-tickets", middleware.RequireRole(string(models.RoleCustomer)), tickets.MyTickets)
		ticketRoutes.POST("/scan-qrstring", middleware.RequireRole(string(models.RoleHost)), tickets.ScanQRString)
		ticketRoutes.POST("/scan", middleware.RequireRole(string(models.RoleHost)), tickets.ScanImage)
	}
}
