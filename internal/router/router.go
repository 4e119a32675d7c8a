package router

import (
	"net/http"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/config"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/handler"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/middleware"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/repository"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Roles carried in the JWT "rol" claim.
const (
	rolCajero        = "cajero"
	rolSupervisor    = "supervisor"
	rolAdministrador = "administrador"
)

// Services is the service layer shared by the HTTP routes, the scheduler and
// the worker handlers.
type Services struct {
	Venta      service.VentaService
	Caja       service.CajaService
	Inventario service.InventarioService
	Cartera    service.CarteraService
	Catalogo   repository.CatalogoRepository
}

// NewServices wires repositories into services.
// Dependency graph: Service ← Repository ← DB/Redis
func NewServices(cfg *config.Config, db *gorm.DB, locker service.Bloqueador, encolador service.Encolador) *Services {
	tx := repository.NewTransactor(db)

	ventaRepo := repository.NewVentaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	stockRepo := repository.NewStockRepository(db)
	catalogoRepo := repository.NewCatalogoRepository(db)
	carteraRepo := repository.NewCarteraRepository(db)

	inventarioSvc := service.NewInventarioService(tx, stockRepo, catalogoRepo, locker)
	carteraSvc := service.NewCarteraService(tx, carteraRepo, service.OpcionesCartera{
		DiasGracia:        cfg.CarteraDiasGracia,
		PermitirSobrepago: cfg.CreditoPermitirSobrepago,
	})
	cajaSvc := service.NewCajaService(tx, cajaRepo, ventaRepo, encolador)
	ventaSvc := service.NewVentaService(tx, ventaRepo, catalogoRepo, cajaRepo, carteraRepo, inventarioSvc, carteraSvc, cajaSvc)

	return &Services{
		Venta:      ventaSvc,
		Caja:       cajaSvc,
		Inventario: inventarioSvc,
		Cartera:    carteraSvc,
		Catalogo:   catalogoRepo,
	}
}

// New returns a configured Gin engine.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer *infra.Mailer, svcs *Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Prometheus())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	Register(r, cfg, svcs, rdb)

	// Public
	r.GET("/health", handler.Health(db, rdb, mailer))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "ruta no encontrada"})
	})
	return r
}

// Register mounts the protected /v1 routes. Split from New so handler tests
// can mount them on a bare engine.
func Register(r *gin.Engine, cfg *config.Config, svcs *Services, cache handler.PrecioCache) {
	ventasH := handler.NewVentasHandler(svcs.Venta)
	cajaH := handler.NewCajaHandler(svcs.Caja)
	inventarioH := handler.NewInventarioHandler(svcs.Inventario)
	carteraH := handler.NewCarteraHandler(svcs.Cartera)
	preciosH := handler.NewConsultaPreciosHandler(svcs.Catalogo, svcs.Inventario, cache)

	todos := middleware.RequireRole(rolCajero, rolSupervisor, rolAdministrador)
	supervisores := middleware.RequireRole(rolSupervisor, rolAdministrador)
	admin := middleware.RequireRole(rolAdministrador)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret, cfg.DefaultNegocioID))
	{
		v1.POST("/ventas", todos, ventasH.RegistrarVenta)
		v1.GET("/ventas", todos, ventasH.ListarVentas)
		v1.GET("/ventas/:id", todos, ventasH.ObtenerVenta)
		v1.POST("/ventas/:id/anular", supervisores, ventasH.AnularVenta)

		v1.POST("/cajas/:id/abrir", todos, cajaH.Abrir)
		v1.GET("/cajas/:id/sesiones", supervisores, cajaH.Historial)

		sesiones := v1.Group("/sesiones", todos)
		{
			sesiones.POST("/:id/movimientos", cajaH.RegistrarMovimiento)
			sesiones.POST("/:id/cerrar", cajaH.Cerrar)
			sesiones.GET("/:id/reporte", cajaH.ObtenerReporte)
		}

		v1.GET("/precio/:barcode", todos, preciosH.GetPrecioPorBarcode)

		v1.GET("/inventario/stock", todos, inventarioH.ObtenerStock)
		inv := v1.Group("/inventario", supervisores)
		{
			inv.POST("/entradas", inventarioH.RegistrarEntrada)
			inv.POST("/ajustes", inventarioH.RegistrarAjuste)
			inv.POST("/transferencias", inventarioH.RegistrarTransferencia)
			inv.POST("/mermas", inventarioH.RegistrarMerma)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
			inv.POST("/mermas/vencidos", admin, inventarioH.ProcesarVencidos)
			inv.POST("/stock/reconstruir", admin, inventarioH.ReconstruirStock)
		}

		cartera := v1.Group("/cartera")
		{
			cartera.GET("/clientes/:id", todos, carteraH.EstadoCuentaCliente)
			cartera.POST("/clientes/:id/abonos", todos, carteraH.AbonarCliente)
			cartera.PATCH("/clientes/:id/estado", supervisores, carteraH.CambiarEstadoCliente)
			cartera.GET("/clientes/:id/reconciliacion", admin, carteraH.ReconciliarCliente)

			prov := cartera.Group("/proveedores", supervisores)
			{
				prov.GET("/:id", carteraH.EstadoCuentaProveedor)
				prov.POST("/:id/cargos", carteraH.CargarProveedor)
				prov.POST("/:id/abonos", carteraH.AbonarProveedor)
				prov.GET("/:id/reconciliacion", admin, carteraH.ReconciliarProveedor)
			}
		}
	}
}
