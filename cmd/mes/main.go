package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/handler"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-mes service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate MES实体
	if err := db.AutoMigrate(
		&entity.ChecklistTemplate{},
		&entity.InspectionResult{},
		&entity.WorkOrder{},
		&entity.ActivityLog{},
	); err != nil {
		zapLogger.Warn("AutoMigrate MES tables warning", zap.Error(err))
	}

	// 手动补充索引（AutoMigrate不会处理的部分）
	migrationSQL := []string{
		"CREATE INDEX IF NOT EXISTS idx_mes_inspections_order ON mes_inspections(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_mes_inspections_checklist ON mes_inspections(checklist_id)",
		"CREATE INDEX IF NOT EXISTS idx_mes_work_orders_assignee ON mes_work_orders(assignee_id)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Migration SQL warning (may already exist)", zap.String("sql", sql), zap.Error(err))
		}
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg)
	dashboardSvc := service.NewDashboardService(db)

	handlers := handler.NewHandlers(
		services.Checklist,
		services.Inspection,
		services.WorkOrder,
		dashboardSvc,
		services.Report,
		services.Attachment,
		repos.ActivityLog,
	)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 需要认证的接口
		authorized := v1.Group("/mes")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 检验模板（模板维护需要管理权限）
			checklists := authorized.Group("/checklists")
			{
				checklists.GET("", h.Checklist.ListChecklists)
				checklists.GET("/:id", h.Checklist.GetChecklist)

				manage := checklists.Group("", middleware.RequirePermission("mes.checklist.manage"))
				{
					manage.POST("", h.Checklist.CreateChecklist)
					manage.PUT("/:id", h.Checklist.UpdateChecklist)
					manage.DELETE("/:id", h.Checklist.DeleteChecklist)
					manage.POST("/:id/publish", h.Checklist.PublishChecklist)
					manage.POST("/:id/archive", h.Checklist.ArchiveChecklist)
				}
			}

			// 检验单
			inspections := authorized.Group("/inspections")
			{
				inspections.GET("", h.Inspection.ListInspections)
				inspections.POST("", h.Inspection.CreateInspection)
				inspections.GET("/:id", h.Inspection.GetInspection)
				inspections.PUT("/:id", h.Inspection.UpdateInspection)
				inspections.POST("/:id/record", h.Inspection.RecordItemValue)
				inspections.POST("/:id/verdict", middleware.RequireRole("qc_inspector"), h.Inspection.SetItemVerdict)
				inspections.POST("/:id/photos", h.Inspection.AddItemPhoto)
				inspections.POST("/:id/complete", h.Inspection.CompleteInspection)
				inspections.GET("/:id/export", h.Inspection.ExportInspection)
				inspections.GET("/:id/export-csv", h.Inspection.ExportInspectionCSV)
			}

			// 工单
			workOrders := authorized.Group("/work-orders")
			{
				workOrders.GET("", h.WorkOrder.ListWorkOrders)
				workOrders.POST("", h.WorkOrder.CreateWorkOrder)
				workOrders.GET("/:id", h.WorkOrder.GetWorkOrder)
				workOrders.PUT("/:id", h.WorkOrder.UpdateWorkOrder)
				workOrders.POST("/:id/transition", h.WorkOrder.TransitionWorkOrder)
				workOrders.GET("/:id/logs", h.WorkOrder.ListWorkOrderLogs)
			}

			// 看板
			dashboard := authorized.Group("/dashboard")
			{
				dashboard.GET("/kanban", h.Dashboard.GetKanban)
				dashboard.GET("/quality", h.Dashboard.GetQualitySummary)
				dashboard.GET("/finance", h.Dashboard.GetFinanceSummary)
			}

			// 附件
			uploads := authorized.Group("/uploads")
			{
				uploads.POST("", h.Upload.Upload)
				uploads.GET("/url", h.Upload.GetDownloadURL)
			}
		}
	}
}
