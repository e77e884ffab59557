package router

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeremiapane/cafe-app/config"
	"github.com/yeremiapane/cafe-app/controllers"
	"github.com/yeremiapane/cafe-app/middlewares"
	"github.com/yeremiapane/cafe-app/realtime"
	"github.com/yeremiapane/cafe-app/services"
	"gorm.io/gorm"
)

type Deps struct {
	DB        *gorm.DB
	Config    config.Config
	Orders    *services.OrderService
	Inventory *services.InventoryService
	Hub       *realtime.Hub
	// Gatherer backs /metrics; nil skips the endpoint.
	Gatherer prometheus.Gatherer
}

var uploadExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf"}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.Config.Server.AllowedOrigins))
	r.Use(middlewares.LoggerMiddleware())

	// Only uploaded images and receipts are served from the upload dir.
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
			ext := strings.ToLower(filepath.Ext(c.Request.URL.Path))
			allowed := false
			for _, e := range uploadExtensions {
				if ext == e {
					allowed = true
					break
				}
			}
			if !allowed {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}
		c.Next()
	})
	if d.Config.Server.UploadDir != "" {
		r.Static("/uploads", d.Config.Server.UploadDir)
	}

	userCtrl := controllers.NewUserController(d.DB, d.Config.Auth.TokenTTL)
	orderCtrl := controllers.NewOrderController(d.Orders)
	receiptCtrl := controllers.NewReceiptController(d.DB, d.Orders, d.Config.Server.UploadDir)
	paymentCtrl := controllers.NewPaymentController(d.DB)
	menuCtrl := controllers.NewMenuController(d.DB)
	inventoryCtrl := controllers.NewInventoryController(d.DB, d.Inventory)
	tableCtrl := controllers.NewTableController(d.DB, d.Config.Server.PublicBaseURL)
	reservationCtrl := controllers.NewReservationController(d.DB)
	notificationCtrl := controllers.NewNotificationController(d.DB)
	adminCtrl := controllers.NewAdminController(d.DB)
	realtimeCtrl := controllers.NewRealtimeController(d.Hub, d.Config.Server.AllowedOrigins)
	orderLimiter := middlewares.NewOrderRateLimiter(d.Config.Server.OrderRatePerMinute)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/login", userCtrl.Login)
		public.POST("/register", middlewares.AuthMiddleware(), middlewares.RequireRoles(services.RoleAdmin), userCtrl.Register)
	}

	r.GET("/menu", menuCtrl.GetMenu)
	r.GET("/tables/:code", tableCtrl.ResolveTable)
	r.POST("/reservations", orderLimiter, reservationCtrl.CreateReservation)

	// Customers place and track orders without logging in.
	r.POST("/orders", orderLimiter, orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", middlewares.OptionalAuth(), orderCtrl.GetOrderByID)
	r.POST("/orders/:order_id/receipts",
		orderLimiter,
		middlewares.ReceiptLoggerMiddleware(),
		receiptCtrl.UploadReceipt)

	r.GET("/ws", middlewares.WebSocketAuthMiddleware(), realtimeCtrl.ServeWS)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	staffOnly := middlewares.RequireRoles(services.RoleStaff, services.RoleAdmin)

	orders := r.Group("/orders")
	orders.Use(middlewares.AuthMiddleware(), staffOnly)
	{
		orders.GET("", orderCtrl.GetAllOrders)
		orders.PUT("/:order_id/status", orderCtrl.UpdateOrderStatus)
		orders.POST("/:order_id/cancel", orderCtrl.CancelOrder)

		payments := orders.Group("")
		payments.Use(middlewares.PaymentSecurityHeaders(), middlewares.LogPaymentRequest())
		payments.POST("/:order_id/verify-payment", orderCtrl.VerifyPayment)
		payments.PUT("/:order_id/payment-status", orderCtrl.UpdatePaymentStatus)
	}

	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware(), staffOnly)

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/logout", userCtrl.Logout)
	auth.GET("/dashboard/stats", adminCtrl.GetDashboardStats)

	// TABLES
	auth.GET("/tables", tableCtrl.GetAllTables)
	auth.PATCH("/tables/:table_id", tableCtrl.UpdateTableStatus)

	// MENU
	auth.GET("/menu", menuCtrl.GetFullMenu)

	// INVENTORY
	auth.GET("/ingredients", inventoryCtrl.GetIngredients)
	auth.GET("/inventory-logs", inventoryCtrl.GetInventoryLogs)

	// PAYMENTS & RECEIPTS
	auth.GET("/payments", paymentCtrl.GetAllPayments)
	auth.GET("/receipts", receiptCtrl.GetReceipts)
	receipts := auth.Group("/receipts")
	receipts.Use(middlewares.ReceiptLoggerMiddleware(), middlewares.LogPaymentRequest())
	{
		receipts.POST("/:receipt_id/verify", receiptCtrl.VerifyReceipt)
		receipts.POST("/:receipt_id/reject", receiptCtrl.RejectReceipt)
	}

	// RESERVATIONS
	auth.GET("/reservations", reservationCtrl.GetAllReservations)
	auth.PATCH("/reservations/:reservation_id", reservationCtrl.UpdateReservation)

	// NOTIFICATIONS
	auth.GET("/notifications", notificationCtrl.GetAllNotifications)
	auth.DELETE("/notifications/:notif_id", notificationCtrl.DeleteNotification)

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := auth.Group("")
	admin.Use(middlewares.RequireRoles(services.RoleAdmin))
	{
		admin.GET("/users", userCtrl.GetAllUsers)

		admin.POST("/tables", tableCtrl.CreateTable)
		admin.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

		admin.POST("/menu", menuCtrl.CreateMenuItem)
		admin.PATCH("/menu/:menu_id", menuCtrl.UpdateMenuItem)
		admin.DELETE("/menu/:menu_id", menuCtrl.DeleteMenuItem)

		admin.POST("/ingredients", inventoryCtrl.CreateIngredient)
		admin.POST("/ingredients/:ingredient_id/adjust", inventoryCtrl.AdjustStock)
	}

	return r
}
