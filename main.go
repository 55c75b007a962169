// Package main provides the main entry point for the deal desk service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealdesk/deal-desk/app/handlers"
	"github.com/dealdesk/deal-desk/app/middleware"
	"github.com/dealdesk/deal-desk/app/router"
	"github.com/dealdesk/deal-desk/app/scheduler"
	"github.com/dealdesk/deal-desk/app/services"
	businessflow "github.com/dealdesk/deal-desk/business_flow"
	"github.com/dealdesk/deal-desk/config"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting deal desk service...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings
// redis to detect connectivity issues. The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService initializes the notification service
func initializeNotificationService(cfg *config.ProductionConfig) services.NotificationService {
	var emailProvider services.EmailProvider
	if cfg.Email.Host == "" || cfg.Email.Host == "mock" {
		emailProvider = services.NewMockEmailProvider()
	} else {
		emailProvider = services.NewSMTPEmailProvider(
			cfg.Email.Host,
			cfg.Email.Port,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.FromEmail,
		)
	}

	return services.NewNotificationService(emailProvider)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.DefaultTTL)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Seed the department directory the routing table depends on
	if err := ensureApprovalDepartments(db); err != nil {
		return nil, err
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	dealRepo := repository.NewDealRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	departmentRepo := repository.NewApprovalDepartmentRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize services
	notificationService := initializeNotificationService(cfg)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	loginFlow := businessflow.NewLoginFlow(
		userRepo,
		auditRepo,
		tokenService,
		db,
	)

	workflowFlow := businessflow.NewApprovalWorkflowFlow(
		dealRepo,
		approvalRepo,
		userRepo,
		departmentRepo,
		auditRepo,
		notificationService,
		models.RuleSetWithThresholds(
			cfg.Approval.HighValueThreshold,
			cfg.Approval.AgencyMidValueThreshold,
			cfg.Approval.LongTermMonths,
		),
		cfg.Approval,
		&cfg.Cache,
		rc,
		db,
	)

	dealFlow := businessflow.NewDealFlow(
		dealRepo,
		userRepo,
		auditRepo,
		workflowFlow,
		cfg.Approval,
		db,
	)

	reportFlow := businessflow.NewAdminDealReportFlow(
		dealRepo,
		userRepo,
		auditRepo,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginFlow)
	dealHandler := handlers.NewDealHandler(dealFlow)
	approvalHandler := handlers.NewApprovalHandler(workflowFlow)
	adminHandler := handlers.NewAdminHandler(reportFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authHandler,
		dealHandler,
		approvalHandler,
		adminHandler,
		authMiddleware,
	)

	// Start the due-date reminder loop
	reminders := scheduler.NewReminderScheduler(
		approvalRepo,
		dealRepo,
		userRepo,
		notificationService,
		cfg.Approval,
		cfg.Logging,
		cfg.Admin,
	)
	stopFuncs = append(stopFuncs, reminders.Start(context.Background()))

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureApprovalDepartments creates the departments the default routing table
// references, when they do not exist yet.
func ensureApprovalDepartments(db *gorm.DB) error {
	departmentRepo := repository.NewApprovalDepartmentRepository(db)

	defaults := []models.ApprovalDepartment{
		{
			DepartmentName: models.DepartmentRevenueOps,
			DisplayName:    "Revenue Operations",
			IncentiveTypes: []string{"volume_discount", "rebate"},
		},
		{
			DepartmentName: models.DepartmentFinance,
			DisplayName:    "Finance",
			IncentiveTypes: []string{"volume_discount", "rebate", "free_service", "payment_terms"},
		},
		{
			DepartmentName: models.DepartmentLegal,
			DisplayName:    "Legal",
			IncentiveTypes: []string{"payment_terms", "custom_terms"},
		},
		{
			DepartmentName: models.DepartmentExecutive,
			DisplayName:    "Executive",
			IncentiveTypes: []string{},
		},
	}

	for i := range defaults {
		dept := &defaults[i]
		existing, err := departmentRepo.ByName(context.Background(), dept.DepartmentName)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		dept.IsActive = utils.ToPtr(true)
		if err := departmentRepo.Save(context.Background(), dept); err != nil {
			return err
		}
		log.Printf("Seeded approval department: %s", dept.DepartmentName)
	}

	return nil
}
