package router

import (
	"time"

	"economat/internal/config"
	"economat/internal/handler"
	"economat/internal/infra"
	"economat/internal/middleware"
	"economat/internal/repository"
	"economat/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services groups everything the HTTP layer calls into.
type Services struct {
	Products service.ProductService
	Sorties  service.SortieService
	Vouchers service.VoucherService
	Alerts   service.AlertService
}

// NewServices wires repositories and services.
// Dependency graph: Service ← Repository ← DB/Redis
// rdb may be nil (no cache); images may be nil (vouchers rejected); queue may
// be nil (alerts persisted only).
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, images service.ImageStore, queue service.AlertQueue) *Services {
	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	sortieRepo := repository.NewSortieRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	zoneRepo := repository.NewZoneRepository(db)
	alertRepo := repository.NewStockAlertRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	ledger := service.NewStockLedger(productRepo, movementRepo)
	cache := service.NewProductCache(rdb, cfg.ProductCacheTTL)
	vouchers := service.NewVoucherService(voucherRepo)
	alerts := service.NewAlertService(alertRepo, productRepo, queue, cfg.ExpiryWarningDays)

	return &Services{
		Products: service.NewProductService(service.ProductDeps{
			Products: productRepo,
			Zones:    zoneRepo,
			History:  movementRepo,
			Ledger:   ledger,
			Vouchers: vouchers,
			Images:   images,
			Cache:    cache,
			Alerts:   alerts,
		}),
		Sorties: service.NewSortieService(service.SortieDeps{
			Sorties:  sortieRepo,
			Ledger:   ledger,
			Vouchers: vouchers,
			Images:   images,
			Cache:    cache,
			Alerts:   alerts,
			Slips:    infra.NewSlipGenerator(""),
		}),
		Vouchers: vouchers,
		Alerts:   alerts,
	}
}

// New returns a configured Gin engine serving svcs.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svcs *Services, limiter *middleware.RateLimiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.IsProduction(), cfg.Origins()...))
	r.Use(middleware.ErrorHandler())
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	}
	r.Use(limiter.Middleware())

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(svcs.Products)
	sortiesH := handler.NewSortiesHandler(svcs.Sorties)
	vouchersH := handler.NewVouchersHandler(svcs.Vouchers)
	alertsH := handler.NewAlertsHandler(svcs.Alerts)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	if cfg.FileStoreURL == "" {
		r.Static(cfg.UploadBaseURL, cfg.UploadDir)
	}

	staff := middleware.RequireRole(middleware.Staff...)
	managers := middleware.RequireRole(middleware.Managers...)

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.Timeout(cfg.RequestTimeout))
	{
		v1.GET("/products", staff, productsH.List)
		v1.GET("/products/:id", staff, productsH.Get)
		v1.GET("/zones/:zoneId/products", staff, productsH.ListByZone)
		prods := v1.Group("/products", managers)
		{
			prods.POST("/intake", productsH.Intake)
			prods.PUT("/:id", productsH.Update)
			prods.PUT("/:id/quantity", productsH.Replenish)
			prods.DELETE("/:id", productsH.Remove)
			prods.GET("/:id/movements", productsH.Movements)
		}

		sorties := v1.Group("/sorties")
		{
			sorties.POST("", staff, sortiesH.Create)
			sorties.GET("", staff, sortiesH.List)
			sorties.GET("/:id", staff, sortiesH.Get)
			sorties.GET("/:id/slip", staff, sortiesH.Slip)
			sorties.PUT("/:id", staff, sortiesH.Update)
			sorties.DELETE("/:id", managers, sortiesH.Delete)
		}

		v1.GET("/vouchers", managers, vouchersH.Search)
		v1.GET("/vouchers/:id", staff, vouchersH.Get)

		v1.GET("/alerts", managers, alertsH.Overview)
	}

	// Swagger UI — only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
