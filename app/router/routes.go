// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/app/handlers"
	"github.com/dealdesk/deal-desk/app/middleware"
	"github.com/dealdesk/deal-desk/config"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app             *fiber.App
	cfg             *config.ProductionConfig
	authHandler     handlers.AuthHandlerInterface
	dealHandler     handlers.DealHandlerInterface
	approvalHandler handlers.ApprovalHandlerInterface
	adminHandler    handlers.AdminHandlerInterface
	authMiddleware  *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authHandler handlers.AuthHandlerInterface,
	dealHandler handlers.DealHandlerInterface,
	approvalHandler handlers.ApprovalHandlerInterface,
	adminHandler handlers.AdminHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Deal Desk API",
		ServerHeader: "DealDesk",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:             app,
		cfg:             cfg,
		authHandler:     authHandler,
		dealHandler:     dealHandler,
		approvalHandler: approvalHandler,
		adminHandler:    adminHandler,
		authMiddleware:  authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Prometheus metrics endpoint
	if r.cfg == nil || r.cfg.Metrics.Enabled {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        2000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many authentication attempts. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "AUTH_RATE_LIMIT_EXCEEDED",
				},
			})
		},
	}))

	auth.Post("/login", r.authHandler.Login)

	// Deal intake routes (seller-facing)
	deals := api.Group("/deals", r.authMiddleware.Authenticate())
	deals.Post("/", r.dealHandler.CreateDeal, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Get("/", r.dealHandler.ListDeals, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Get("/:uuid", r.dealHandler.GetDeal, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Put("/:uuid", r.dealHandler.UpdateDeal, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Post("/:uuid/tiers", r.dealHandler.AddTier, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Put("/:uuid/tiers/:tierNumber", r.dealHandler.UpdateTier, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Delete("/:uuid/tiers/:tierNumber", r.dealHandler.RemoveTier, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Get("/:uuid/summary", r.dealHandler.GetFinancialSummary, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Get("/:uuid/validation", r.dealHandler.ValidateDeal, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Get("/:uuid/chain-preview", r.dealHandler.PreviewChain, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Post("/:uuid/submit", r.dealHandler.SubmitDeal, r.authMiddleware.RequireRoles(models.RoleSeller))
	deals.Post("/:uuid/cancel", r.dealHandler.CancelDeal, r.authMiddleware.RequireRoles(models.RoleSeller))

	// Workflow progress is visible to sellers, reviewers and admins
	deals.Get("/:uuid/approval-status", r.approvalHandler.GetApprovalStatus)

	// Approval routes (reviewer-facing)
	approvals := api.Group("/approvals", r.authMiddleware.Authenticate())
	approvals.Get("/pending", r.approvalHandler.ListPendingApprovals,
		r.authMiddleware.RequireRoles(models.RoleDepartmentReviewer, models.RoleAdmin))
	approvals.Post("/:id/review", r.approvalHandler.ReviewApproval,
		r.authMiddleware.RequireRoles(models.RoleDepartmentReviewer, models.RoleAdmin))

	// Department directory
	api.Get("/approval-departments", r.approvalHandler.ListDepartments, r.authMiddleware.Authenticate())

	// Admin routes
	admin := api.Group("/admin", r.authMiddleware.Authenticate(), r.authMiddleware.RequireAdmin())
	admin.Get("/deals/export", r.adminHandler.ExportDeals)

	// 404 handler for unmatched routes
	r.app.Use(r.notFoundHandler)

	log.Println("Routes setup completed")
}

// setupMiddleware configures the global middleware stack
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000, // 1 year
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	// CORS middleware
	allowOrigins := []string{"https://dealdesk.example.com"}
	if r.cfg != nil && len(r.cfg.Security.AllowedOrigins) > 0 {
		allowOrigins = r.cfg.Security.AllowedOrigins
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Prometheus HTTP metrics
	r.app.Use(middleware.Metrics())

	// Structured request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks in production
			return c.Path() == "/api/v1/health"
		},
	}))

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "healthy",
			"timestamp": utils.UTCNow().Format(time.RFC3339),
			"service":   "deal-desk",
		},
	})
}

// notFoundHandler handles unmatched routes
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
