package server

import (
	"context"
	"net/http"

	"carparts-storefront/internal/config"
	"carparts-storefront/internal/handler"
	appmw "carparts-storefront/internal/middleware"
	"carparts-storefront/internal/service"
	"carparts-storefront/internal/validate"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

type Services struct {
	Guard    service.AuthGuard
	Auth     service.AuthService
	Products service.ProductService
	Coupons  service.CouponService
	Checkout service.CheckoutService
	Users    service.UserService
	Orders   service.OrderService
}

type Server struct {
	echo           *echo.Echo
	cfg            *config.Config
	guard          service.AuthGuard
	authHandler    *handler.AuthHandler
	catalogHandler *handler.CatalogHandler
	paymentHandler *handler.PaymentHandler
	productHandler *handler.ProductHandler
	userHandler    *handler.UserHandler
	orderHandler   *handler.OrderHandler
	couponHandler  *handler.CouponHandler
}

func NewServer(cfg *config.Config, logger *log.Logger, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Validator = validate.New()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := log.JSON{
				"method":    v.Method,
				"uri":       v.URI,
				"status":    v.Status,
				"latency":   v.Latency.String(),
				"remote_ip": v.RemoteIP,
			}
			if v.Error != nil {
				fields["error"] = v.Error.Error()
			}
			logger.Infoj(fields)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept, echo.HeaderOrigin},
		AllowCredentials: true,
	}))

	e.Static(cfg.Upload.PublicPath, cfg.Upload.Dir)

	s := &Server{
		echo:           e,
		cfg:            cfg,
		guard:          services.Guard,
		authHandler:    handler.NewAuthHandler(services.Auth, handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure, TTL: cfg.Session.TTL}),
		catalogHandler: handler.NewCatalogHandler(services.Products, services.Coupons),
		paymentHandler: handler.NewPaymentHandler(services.Checkout),
		productHandler: handler.NewProductHandler(services.Products),
		userHandler:    handler.NewUserHandler(services.Users),
		orderHandler:   handler.NewOrderHandler(services.Orders),
		couponHandler:  handler.NewCouponHandler(services.Coupons),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	requireLogin := appmw.RequireLogin(s.guard, s.cfg.Session.CookieName)
	requireAdmin := appmw.RequireAdmin(s.guard, s.cfg.Session.CookieName)

	// -------- auth --------
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.cfg.Auth.LoginRateLimit)))
	auth := api.Group("/auth")
	auth.POST("/register", s.authHandler.Register, limiter)
	auth.POST("/login", s.authHandler.Login, limiter)
	auth.POST("/logout", s.authHandler.Logout)
	auth.GET("/verify-email", s.authHandler.VerifyEmail)
	auth.GET("/me", s.authHandler.Me, requireLogin)
	api.PUT("/me", s.authHandler.UpdateMe, requireLogin)

	// -------- catalog --------
	api.GET("/products", s.catalogHandler.ListProducts)
	api.GET("/products/:id", s.catalogHandler.GetProduct)
	api.GET("/categories", s.catalogHandler.Categories)
	api.POST("/coupons/validate", s.catalogHandler.ValidateCoupon)

	// -------- payments --------
	payments := api.Group("/payments")
	payments.POST("/checkout", s.paymentHandler.Checkout, requireLogin)
	payments.GET("/session-status", s.paymentHandler.SessionStatus)
	payments.POST("/webhook", s.paymentHandler.StripeWebhook)

	// -------- admin --------
	admin := api.Group("/admin", requireAdmin)
	admin.GET("/ping", s.userHandler.Ping)

	admin.GET("/products", s.productHandler.List)
	admin.POST("/products", s.productHandler.Create)
	admin.POST("/products/image", s.productHandler.UploadImage)
	admin.PUT("/products/:id", s.productHandler.Update)
	admin.DELETE("/products/:id", s.productHandler.Delete)

	admin.GET("/users", s.userHandler.List)
	admin.GET("/users/:id", s.userHandler.Get)
	admin.PUT("/users/:id", s.userHandler.Update)
	admin.DELETE("/users/:id", s.userHandler.Delete)

	admin.GET("/orders", s.orderHandler.List)
	admin.GET("/orders/:id", s.orderHandler.Get)
	admin.PATCH("/orders/:id/status", s.orderHandler.UpdateStatus)

	admin.GET("/coupons", s.couponHandler.List)
	admin.POST("/coupons", s.couponHandler.Create)
	admin.PUT("/coupons/:id", s.couponHandler.Update)
	admin.DELETE("/coupons/:id", s.couponHandler.Delete)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
