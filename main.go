package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custombuttons-restful/auth"
	"custombuttons-restful/cache"
	"custombuttons-restful/config"
	"custombuttons-restful/controllers"
	"custombuttons-restful/database"
	grpcserver "custombuttons-restful/grpc_server"
	"custombuttons-restful/middleware"
	"custombuttons-restful/repositories"
	"custombuttons-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	switch level {
	case "debug":
		logger, _ = zap.NewDevelopment()
	default:
		logger, _ = zap.NewProduction()
	}
	return logger
}

// newContainer assembles the HTTP API: custom buttons, login, OpenAPI
// document, health probe and metrics.
func newContainer(db *gorm.DB, buttons *controllers.CustomButtonController, logger *zap.Logger) *restful.Container {
	container := restful.NewContainer()
	container.DoNotRecover(false)
	container.RecoverHandler(middleware.RecoverHandler(logger))
	container.Filter(middleware.RequestID())
	container.Filter(middleware.AccessLog(logger.Named("access")))
	container.Filter(middleware.Metrics())

	buttonsWS := new(restful.WebService)
	buttons.RegisterRoutes(buttonsWS)
	container.Add(buttonsWS)

	authWS := new(restful.WebService)
	authWS.Path("/api").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	auth.NewLoginHandler(db).RegisterRoutes(authWS)
	container.Add(authWS)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: describeAPI,
	}))

	container.Handle("/health", healthHandler(db))
	container.Handle("/metrics", http.HandlerFunc(middleware.MetricsHandler))
	return container
}

func describeAPI(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Custom Buttons API",
			Description: "Manage custom buttons and the catalogs they reference",
			Version:     "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{{TagProps: spec.TagProps{Name: controllers.CollectionName, Description: "Custom buttons"}}}
}

// healthHandler answers 200 while the database is reachable.
func healthHandler(db *gorm.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", restful.MIME_JSON)
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

func main() {
	// Initialize configs
	config.InitConfig()
	cfg := config.AppConfig

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync() // Make sure the buffer is flushed before the program exits
	sugar := logger.Sugar()

	auth.SetSigningKey([]byte(cfg.JwtSecret))

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	if err := database.SeedInitialData(db, cfg.AdminPassword, sugar.Named("seed")); err != nil {
		logger.Fatal("Failed to seed database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var documentCache services.DocumentCache
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("Redis unavailable, metadata documents will not be cached", zap.Error(err))
		} else {
			defer client.Close()
			documentCache = cache.NewRedisDocumentCache(client, cfg.MetadataCacheTTL, sugar)
		}
	}

	buttonService := services.NewCustomButtonService(repositories.NewCustomButtonRepository(db), sugar)
	metadataService := services.NewMetadataService(repositories.NewMetadataRepository(db), cfg.AutomateClassPath, documentCache, sugar)
	buttonController := controllers.NewCustomButtonController(buttonService, metadataService, auth.NewPermissionChecker(db), cfg.BaseURL, logger.Named("http"))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newContainer(db, buttonController, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		logger.Fatal("Failed to listen for gRPC", zap.Int("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcServer := grpcserver.New(metadataService, logger)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr), zap.String("service", cfg.ServiceName))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcServer.Stop()
	logger.Info("Servers stopped")
}
