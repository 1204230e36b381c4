package main

import (
	"context"
	"database/sql"
	"fmt"
	"mealswap-backend/config"
	"mealswap-backend/internal/api/admin"
	"mealswap-backend/internal/api/request"
	"mealswap-backend/internal/api/user"
	"mealswap-backend/internal/middleware"
	"mealswap-backend/internal/repository/mysql"
	"mealswap-backend/internal/service"
	"mealswap-backend/internal/storage"
	"mealswap-backend/internal/util"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("程序发生严重错误", zap.Any("error", r))
		}
	}()

	// 初始化配置
	config.Init()

	// 初始化日志
	util.InitLogger(config.AppConfig.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动")

	// 设置数据库连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.AppConfig.DBUser,
		config.AppConfig.DBPassword,
		config.AppConfig.DBHost,
		config.AppConfig.DBPort,
		config.AppConfig.DBName)

	// 连接数据库
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		util.Logger.Fatal("连接数据库失败", zap.Error(err))
	}
	defer db.Close()

	// 测试数据库连接
	err = db.Ping()
	if err != nil {
		util.Logger.Fatal("数据库连接测试失败", zap.Error(err))
	}
	util.Logger.Info("数据库连接成功")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	util.Logger.Info("数据库连接池配置完成")

	// 注册自定义验证器
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("future_date", util.ValidateFutureDate)
	}

	// 确保上传文件夹存在
	ensureUploadsFolder()

	// 按配置选择文件存储后端
	var fileStorage storage.FileStorage
	if config.AppConfig.StorageBackend == "s3" {
		fileStorage, err = storage.NewS3Client(config.AppConfig.S3Region, config.AppConfig.S3Bucket)
		if err != nil {
			util.Logger.Fatal("初始化S3存储失败", zap.Error(err))
		}
	} else {
		fileStorage, err = storage.NewLocalStorage(config.AppConfig.LocalStoragePath)
		if err != nil {
			util.Logger.Fatal("初始化本地存储失败", zap.Error(err))
		}
	}

	// 初始化存储库、服务和处理器
	userRepo := mysql.NewUserRepository(db)
	requestRepo := mysql.NewRequestRepository(db)
	flagRepo := mysql.NewFlagRepository(db)

	userService := service.NewUserService(userRepo)
	requestService := service.NewRequestService(requestRepo, userRepo, flagRepo)
	adminService := service.NewAdminService(userRepo, requestRepo, flagRepo)
	statsService := service.NewStatsService(userRepo, requestRepo, flagRepo)

	authHandler := user.NewAuthHandler(userService)
	profileHandler := user.NewProfileHandler(userService, fileStorage)
	requestHandler := request.NewRequestHandler(requestService)
	adminHandler := admin.NewAdminHandler(adminService, statsService)

	// 启动定时任务：清理过期请求、释放超时认领
	go func() {
		interval := time.Duration(config.AppConfig.ExpirySweepMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		for range ticker.C {
			if err := requestService.ExpireOverdueRequests(); err != nil {
				util.Logger.Error("清理过期请求失败", zap.Error(err))
			}
			if err := requestService.ReleaseStaleClaims(); err != nil {
				util.Logger.Error("释放超时认领失败", zap.Error(err))
			}
		}
	}()

	// 初始化错误监控
	errorMonitor := middleware.NewErrorMonitor()

	// 设置 Gin 路由
	r := gin.Default()

	// 添加中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.ErrorMonitorMiddleware(errorMonitor))

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{config.AppConfig.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length",
		"Content-Type",
		"Access-Control-Allow-Origin",
	}

	// 先应用 CORS 中间件
	r.Use(cors.New(corsConfig))

	// 处理静态文件的CORS
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
			c.Header("Access-Control-Allow-Origin", config.AppConfig.FrontendURL)
			c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(200)
				return
			}
		}
		c.Next()
	})

	// 配置静态文件服务
	r.Static("/uploads", config.AppConfig.LocalStoragePath)

	// 定义 API 路由
	api := r.Group("/api")
	{
		// 用户相关路由
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.GET("/verify-email", authHandler.VerifyEmail)

		// 食堂地点列表无需认证
		api.GET("/locations", requestHandler.GetLocations)

		// 需要认证的路由
		authorized := api.Group("/")
		authorized.Use(middleware.AuthMiddleware(userService))
		{
			authorized.GET("/profile", profileHandler.GetProfile)
			authorized.PUT("/profile", profileHandler.UpdateProfile)
			authorized.POST("/logout", authHandler.Logout)
			authorized.POST("/refresh-token", authHandler.RefreshToken)
			authorized.POST("/profile/avatar", profileHandler.UploadAvatar)

			// 用餐请求生命周期
			authorized.POST("/requests", requestHandler.Create)
			authorized.GET("/requests", requestHandler.List)
			authorized.GET("/requests/:id", requestHandler.Get)
			authorized.POST("/requests/:id/claim", requestHandler.Claim)
			authorized.POST("/requests/:id/fulfill", requestHandler.Fulfill)
			authorized.POST("/requests/:id/release", requestHandler.Release)
			authorized.POST("/requests/:id/complete", requestHandler.Complete)
			authorized.POST("/requests/:id/cancel", requestHandler.Cancel)
		}

		// 管理员路由组
		adminRoutes := api.Group("/admin")
		adminRoutes.Use(middleware.AuthMiddleware(userService), middleware.AdminMiddleware(userService))
		{
			// 用户管理
			userAdmin := adminRoutes.Group("/users")
			{
				userAdmin.GET("", adminHandler.GetUsers)           // 获取用户列表
				userAdmin.GET("/:id", adminHandler.GetUserDetail)  // 获取用户详情
				userAdmin.PATCH("/:id", adminHandler.UpdateUser)   // 停用/封禁/设置角色
			}

			// 标记管理
			flagAdmin := adminRoutes.Group("/flags")
			{
				flagAdmin.GET("", adminHandler.GetFlags)            // 获取标记列表
				flagAdmin.POST("", adminHandler.CreateFlag)         // 手动创建标记
				flagAdmin.PATCH("/:id", adminHandler.ResolveFlag)   // 处理标记
			}

			// 系统统计
			adminRoutes.GET("/stats", adminHandler.GetStats)
		}
	}

	// 创建一个带有超时的 http.Server
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	// 在一个新的 goroutine 中启动服务器
	go func() {
		util.Logger.Info("服务器正在启动，监听端口 :8080")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Fatal("服务器强制关闭", zap.Error(err))
	}

	util.Logger.Info("服务器已优雅关闭")
}

// 确保上传文件夹存在
func ensureUploadsFolder() {
	uploadsPath := config.AppConfig.LocalStoragePath
	if err := os.MkdirAll(uploadsPath, 0755); err != nil {
		util.Logger.Fatal("创建上传文件夹失败", zap.Error(err), zap.String("path", uploadsPath))
	}
	util.Logger.Info("上传文件夹已创建或已存在", zap.String("path", uploadsPath))
}
