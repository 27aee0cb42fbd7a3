package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"miniplm/config"
	"miniplm/database"
	_ "miniplm/docs" // Swagger 문서
	"miniplm/handlers"
	"miniplm/logger"
	"miniplm/middleware"
	"miniplm/models"
	"miniplm/scheduler"
	"miniplm/services"
	"miniplm/utils"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Mini PLM Server API
// @version 1.0
// @description 제품 트리와 파일 리비전을 저장하는 PLM 서버

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// 설정 파일 경로는 MINIPLM_CONFIG로 지정
	if err := config.Init(os.Getenv("MINIPLM_CONFIG")); err != nil {
		logger.Fatal("Failed to read configuration: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warn("%v, using INFO", err)
	}
	if err := logger.Initialize(logger.Config{
		Level:      level,
		LogDir:     cfg.Log.Dir,
		FileName:   "miniplm-server",
		MaxSize:    cfg.Log.MaxSizeMB * 1024 * 1024,
		MaxAge:     cfg.Log.MaxAgeDays,
		UseColor:   cfg.Log.Color,
		ShowCaller: cfg.Log.Caller,
	}); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	defer logger.Shutdown()

	if err := utils.SetLocation(cfg.Server.Timezone); err != nil {
		logger.Warn("%v, timestamps stay in %s", err, utils.Location())
	}
	utils.SetMediaSecret(cfg.Server.MediaSecret)

	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Info("Mini PLM Server Starting")
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := database.Initialize(cfg.Server.DBType, cfg.Server.DSN); err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 서비스 계층 초기화
	sqlExecutor := services.NewSQLExecutor(database.DB)
	productService := services.NewProductService(sqlExecutor)
	fileService := services.NewFileService(sqlExecutor, cfg.Server.MediaDir)
	setupService := services.NewSetupService(sqlExecutor, productService)

	productHandler := handlers.NewProductHandler(productService)
	fileHandler := handlers.NewFileHandler(fileService, setupService, cfg.Server.MaxUploadMB*1024*1024)
	mediaHandler := handlers.NewMediaHandler(fileService, cfg.Server.RequireSignedMedia, cfg.Server.MediaTokenTTL)
	setupHandler := handlers.NewSetupHandler(setupService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 참조되지 않는 업로드 정리
	scheduler.StartScheduler(ctx, cfg.Server.CleanupInterval, &scheduler.OrphanCleaner{
		Products:  productService,
		Files:     fileService,
		Retention: cfg.Server.OrphanRetention,
	})

	cors := middleware.CORS(cfg.Server.AllowedOrigins)
	api := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ChainMiddleware(h, middleware.LoggingMiddleware, cors, middleware.SetJSONHeader)
	}

	mux := http.NewServeMux()

	// Swagger 문서
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	mux.HandleFunc("/health", api(healthHandler))

	mux.HandleFunc("/api/setup/", api(setupHandler.Handle))
	mux.HandleFunc("/api/products/", api(productHandler.Route))
	mux.HandleFunc("/api/products/save", api(productHandler.Save))
	mux.HandleFunc("/api/files/", api(fileHandler.Route))
	mux.HandleFunc("/api/media/link", api(mediaHandler.Link))

	// 미디어는 파일 자체를 응답하므로 JSON 헤더를 붙이지 않는다
	mux.HandleFunc("/media/", middleware.ChainMiddleware(mediaHandler.Serve, middleware.LoggingMiddleware, cors))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Warn("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed: %v", err)
		}
	}()

	logger.Info("Server listening on %s", cfg.Server.Addr)
	logger.Info("Swagger UI: http://localhost%s/swagger/index.html", cfg.Server.Addr)
	logger.Info("Database: %s (%s)", database.Type(), cfg.Server.DSN)
	logger.Info("Media directory: %s", cfg.Server.MediaDir)
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed to start: %v", err)
	}
	logger.Info("Server stopped")
}

// healthHandler 헬스체크 핸들러
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := database.DB.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(models.ErrorResponse("Database unavailable", err))
		return
	}
	json.NewEncoder(w).Encode(models.SuccessResponse("Server is healthy", nil))
}
