package router

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"winery_backend/internal/cache"
	"winery_backend/internal/config"
	"winery_backend/internal/handlers"
	"winery_backend/internal/middleware"
	"winery_backend/internal/repositories"
	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

// Dependencies are the process-wide resources the API is built on. Redis may be nil.
type Dependencies struct {
	DB     *sql.DB
	Redis  *redis.Client
	Config *config.Config
}

// Services groups the business services so that cmd/server can reuse them
// (e.g. for the bootstrap admin) without rebuilding the graph.
type Services struct {
	Auth     services.AuthService
	Accounts services.AccountService
	Catalog  services.CatalogService
	Ledger   services.LedgerService
	Orders   services.OrderService
	Reports  services.ReportService
	Sensors  services.SensorService
}

// NewServices wires repositories, stores and services.
func NewServices(deps Dependencies) (*Services, error) {
	db := deps.DB
	accountRepo := repositories.NewAccountRepository(db)
	supplierRepo := repositories.NewSupplierRepository(db)
	productRepo := repositories.NewProductRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	activityRepo := repositories.NewActivityRepository(db)
	sensorRepo := repositories.NewSensorRepository(db)

	var sessions cache.SessionStore
	var reports cache.ReportCache
	if deps.Redis != nil {
		sessions = cache.NewRedisSessionStore(deps.Redis)
		reports = cache.NewRedisReportCache(deps.Redis, deps.Config.Redis.CacheTTL)
	} else {
		sessions = cache.NewMemorySessionStore()
		reports = cache.NoopReportCache{}
	}

	tokens, err := utils.NewTokenIssuer(deps.Config.JWT.Secret, deps.Config.JWT.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	ledgerService := services.NewLedgerService(db, productRepo, ledgerRepo, activityRepo, reports)
	orderService := services.NewOrderService(db, orderRepo, productRepo, supplierRepo, ledgerRepo, activityRepo, reports)

	return &Services{
		Auth:     services.NewAuthService(accountRepo, supplierRepo, activityRepo, tokens, sessions),
		Accounts: services.NewAccountService(db, accountRepo, supplierRepo, activityRepo),
		Catalog:  services.NewCatalogService(db, productRepo, ledgerRepo, activityRepo, reports),
		Ledger:   ledgerService,
		Orders:   orderService,
		Reports:  services.NewReportService(ledgerService, orderService, productRepo, ledgerRepo, accountRepo, activityRepo, reports),
		Sensors:  services.NewSensorService(db, sensorRepo, activityRepo, deps.Config.Sensor),
	}, nil
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, svc *Services, deps Dependencies) error {
	if err := handlers.RegisterValidators(); err != nil {
		return err
	}
	loginLimit, err := middleware.RateLimit(deps.Config.HTTP.LoginRateLimit, deps.Redis)
	if err != nil {
		return err
	}

	authHandler := handlers.NewAuthHandler(svc.Auth)
	accountHandler := handlers.NewAccountHandler(svc.Accounts)
	productHandler := handlers.NewProductHandler(svc.Catalog, svc.Ledger)
	ledgerHandler := handlers.NewLedgerHandler(svc.Ledger)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	reportHandler := handlers.NewReportHandler(svc.Reports)
	sensorHandler := handlers.NewSensorHandler(svc.Sensors)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := engine.Group("/api/v1")
	SetupPublicAuthRoutes(apiV1, authHandler, loginLimit)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(svc.Auth))
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), svc.Auth, authHandler)
		SetupAccountRoutes(authenticated, svc.Auth, accountHandler)
		SetupProductRoutes(authenticated, svc.Auth, productHandler)
		SetupLedgerRoutes(authenticated, svc.Auth, ledgerHandler)
		SetupOrderRoutes(authenticated, svc.Auth, orderHandler)
		SetupReportRoutes(authenticated, svc.Auth, reportHandler)
		SetupSensorRoutes(authenticated, svc.Auth, sensorHandler)
	}
	return nil
}
