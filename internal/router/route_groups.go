package router

import (
	"github.com/gin-gonic/gin"

	"winery_backend/internal/handlers"
	"winery_backend/internal/middleware"
	"winery_backend/internal/models"
)

// can gates a route on the roles that carry any of the capabilities.
func can(auth middleware.SessionAuthorizer, caps ...models.Capability) gin.HandlerFunc {
	return middleware.RequireRoles(auth, models.RolesWith(caps...)...)
}

// SetupPublicAuthRoutes sets up the login route. Login is rate limited per client IP.
func SetupPublicAuthRoutes(apiGroup *gin.RouterGroup, authHandler *handlers.AuthHandler, limit gin.HandlerFunc) {
	apiGroup.POST("/auth/login", limit, authHandler.Login)
}

// SetupAuthenticatedAuthRoutes sets up the self-service routes available to every
// role. Sessions of deactivated accounts are refused here as everywhere else.
func SetupAuthenticatedAuthRoutes(authGroup *gin.RouterGroup, auth middleware.SessionAuthorizer, authHandler *handlers.AuthHandler) {
	authGroup.Use(middleware.RequireRoles(auth, models.AllRoles...))
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authHandler.Me)
	authGroup.PUT("/password", authHandler.ChangePassword)
}

// SetupAccountRoutes sets up account administration.
func SetupAccountRoutes(rg *gin.RouterGroup, auth middleware.SessionAuthorizer, h *handlers.AccountHandler) {
	accountRoutes := rg.Group("/accounts")
	accountRoutes.Use(can(auth, models.CapManageAccounts))
	{
		accountRoutes.POST("", h.CreateAccount)
		accountRoutes.GET("", h.ListAccounts)
		accountRoutes.GET("/:id", h.GetAccount)
		accountRoutes.PUT("/:id", h.UpdateAccount)
		accountRoutes.PATCH("/:id/role", h.ChangeRole)
		accountRoutes.PATCH("/:id/active", h.SetActive)
		accountRoutes.PUT("/:id/supplier", h.UpdateSupplierProfile)
	}
	rg.GET("/suppliers", can(auth, models.CapManageAccounts, models.CapManagePurchasing), h.ListSuppliers)
}

// SetupProductRoutes sets up the product catalog routes.
func SetupProductRoutes(rg *gin.RouterGroup, auth middleware.SessionAuthorizer, h *handlers.ProductHandler) {
	productRoutes := rg.Group("/products")
	productRoutes.Use(can(auth, models.CapViewInventory))
	{
		productRoutes.GET("", h.ListProducts)
		productRoutes.GET("/:id", h.GetProduct)
		productRoutes.GET("/:id/stock", h.GetOnHand)

		manage := productRoutes.Group("")
		manage.Use(can(auth, models.CapManageInventory))
		{
			manage.POST("", h.CreateProduct)
			manage.PUT("/:id", h.UpdateProduct)
			manage.GET("/:id/reconcile", h.Reconcile)
		}
	}
}

// SetupLedgerRoutes sets up stock postings and history.
func SetupLedgerRoutes(rg *gin.RouterGroup, auth middleware.SessionAuthorizer, h *handlers.LedgerHandler) {
	ledgerRoutes := rg.Group("/ledger")
	{
		ledgerRoutes.GET("", can(auth, models.CapViewInventory), h.ListEntries)
		ledgerRoutes.POST("", can(auth, models.CapManageInventory), h.PostEntry)
	}
}

// SetupOrderRoutes sets up the purchase order routes. Suppliers may read
// their own orders only; scoping happens in the order service.
func SetupOrderRoutes(rg *gin.RouterGroup, auth middleware.SessionAuthorizer, h *handlers.OrderHandler) {
	orderRoutes := rg.Group("/orders")
	{
		orderRoutes.GET("", can(auth, models.CapViewPurchasing, models.CapViewOwnOrders), h.GetOrders)
		orderRoutes.GET("/:id", can(auth, models.CapViewPurchasing, models.CapViewOwnOrders), h.GetOrderByID)
		orderRoutes.POST("", can(auth, models.CapManagePurchasing), h.CreateOrder)
		orderRoutes.PATCH("/:id/status", can(auth, models.CapManagePurchasing), h.UpdateOrderStatus)
		orderRoutes.POST("/:id/receive", can(auth, models.CapReceiveGoods), h.ReceiveOrder)
	}
}

// SetupReportRoutes sets up the read-only report routes.
func SetupReportRoutes(rg *gin.RouterGroup, auth middleware.SessionAuthorizer, h *handlers.ReportHandler) {
	reportRoutes := rg.Group("/reports")
	{
		reportRoutes.GET("/dashboard", middleware.RequireRoles(auth, models.AllRoles...), h.Dashboard)
		reportRoutes.GET("/low-stock", can(auth, models.CapViewInventory), h.LowStock)
		reportRoutes.GET("/top-moving", can(auth, models.CapViewInventory), h.TopMoving)
		reportRoutes.GET("/category-totals", can(auth, models.CapViewInventory), h.CategoryTotals)
		reportRoutes.GET("/ledger-activity", can(auth, models.CapViewInventory), h.LedgerActivity)
		reportRoutes.GET("/orders-by-month", can(auth, models.CapViewPurchasing), h.OrdersByMonth)
		reportRoutes.GET("/spending", can(auth, models.CapViewPurchasing), h.Spending)
		reportRoutes.GET("/active-users", can(auth, models.CapManageAccounts), h.MostActiveUsers)
	}
}

// SetupSensorRoutes sets up temperature logging.
func SetupSensorRoutes(rg *gin.RouterGroup, auth middleware.SessionAuthorizer, h *handlers.SensorHandler) {
	sensorRoutes := rg.Group("/sensors")
	{
		sensorRoutes.GET("/labels", can(auth, models.CapViewSensors), h.Labels)
		sensorRoutes.GET("/readings", can(auth, models.CapViewSensors), h.ListReadings)
		sensorRoutes.POST("/readings", can(auth, models.CapRecordSensors), h.RecordReading)
		sensorRoutes.GET("/:label/summary", can(auth, models.CapViewSensors), h.Summary)
	}
}
