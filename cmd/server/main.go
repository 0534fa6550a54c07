package main

import (
	"context"
	"io"
	"log"

	"prism-backend/config"
	"prism-backend/handlers"
	"prism-backend/repository"
	"prism-backend/service"
	"prism-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize database connections
	db, err := initPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize Postgres", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Postgres connection established")

	// Initialize storage
	blobs, err := storage.NewStorageFromEnv()
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	logger.Info("Storage initialized")

	// Initialize repositories
	documentRepo := repository.NewDocumentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	exportRepo := repository.NewExportJobRepository(db)

	kv, err := repository.NewKeyValueStore(cfg.KVType, db, cfg.KVSQLitePath)
	if err != nil {
		logger.Fatal("Failed to initialize key-value store", zap.Error(err))
	}
	if closer, ok := kv.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info("Key-value store initialized", zap.String("type", string(cfg.KVType)))

	// Initialize services
	documentService := service.NewDocumentService(
		service.WithDocumentStore(documentRepo),
		service.WithDocumentStorage(blobs),
		service.WithDocumentLogger(logger.Named("documents")),
	)

	readingService := service.NewReadingService(
		service.WithDocumentLoader(documentService),
		service.WithSessionStore(sessionRepo),
		service.WithKeyValueStore(kv),
		service.WithReaderTotal(cfg.ReaderTotal),
		service.WithShareLink(cfg.PublicBaseURL, cfg.ShareParam),
		service.WithReadingLogger(logger.Named("reading")),
	)

	exportService := service.NewExportService(
		service.WithExportJobStore(exportRepo),
		service.WithSnapshotSource(readingService),
		service.WithExportDocumentLoader(documentService),
		service.WithExportStorage(blobs),
		service.WithExportLogger(logger.Named("exports")),
	)

	// Initialize handlers
	documentHandler := handlers.NewDocumentHandler(documentService)
	readingHandler := handlers.NewReadingHandler(readingService, documentService)
	exportHandler := handlers.NewExportHandler(exportService, logger.Named("exports"))

	// Setup Gin router
	gin.SetMode(cfg.GinMode)
	r := gin.Default()
	handlers.RegisterRoutes(r, documentHandler, readingHandler, exportHandler)

	logger.Info("Server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
