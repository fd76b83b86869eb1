package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/ai"
	"github.com/askdoc/askdoc/internal/chunker"
	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/embedcache"
	"github.com/askdoc/askdoc/internal/extractor"
	"github.com/askdoc/askdoc/internal/filestore"
	"github.com/askdoc/askdoc/internal/handler"
	"github.com/askdoc/askdoc/internal/job"
	"github.com/askdoc/askdoc/internal/middleware"
	"github.com/askdoc/askdoc/internal/repo"
	"github.com/askdoc/askdoc/internal/schedule"
	"github.com/askdoc/askdoc/internal/service"
	"github.com/askdoc/askdoc/internal/vectorstore"
	"github.com/askdoc/askdoc/internal/worker"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "askdoc",
		Short: "askdoc document question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run askdoc server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("vector_store", cfg.VectorStore.Type),
	)

	docRepo := repo.NewDocumentRepo(db)
	jobRepo := repo.NewJobRepo(db)
	cacheRepo := repo.NewEmbeddingCacheRepo(db)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	var embedder ai.IEmbedder = ai.NewEmbedder(aiProvider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, *cfg.AI.CacheSize, time.Duration(cfg.AI.CacheTTLHours)*time.Hour)
	generator := ai.NewGenerator(aiProvider, cfg.AI.GenerateModel)

	vectors, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	ensureCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := vectors.EnsureCollection(ensureCtx, cfg.AI.EmbedDimension); err != nil {
		return fmt.Errorf("init vector collection: %w", err)
	}

	chunk, err := chunker.New(cfg.Ingest.ChunkSize, *cfg.Ingest.ChunkOverlap)
	if err != nil {
		return err
	}

	embedTimeout := time.Duration(cfg.AI.EmbedTimeoutSecs) * time.Second
	genTimeout := time.Duration(cfg.AI.GenTimeoutSecs) * time.Second
	ingestService := service.NewIngestService(store, extractor.NewPDF(), chunk, embedder, vectors,
		cfg.Ingest.BatchSize, cfg.AI.EmbedDimension, embedTimeout)
	answerService := service.NewAnswerService(embedder, generator, vectors,
		cfg.Chat.TopK, cfg.Chat.MaxContextChars, embedTimeout, genTimeout)
	uploadService := service.NewUploadService(store, docRepo, jobRepo)
	jobService := service.NewJobService(jobRepo)

	deps := handler.RouterDeps{
		Upload: handler.NewUploadHandler(uploadService, cfg.Ingest.MaxUploadSizeMegabytes),
		Chat:   handler.NewChatHandler(answerService),
		Jobs:   handler.NewJobHandler(jobService),
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(jobRepo, ingestService,
		cfg.Ingest.WorkerCount,
		time.Duration(cfg.Ingest.PollIntervalMillis)*time.Millisecond,
		cfg.Ingest.MaxAttempts,
		time.Duration(cfg.Ingest.RetryBackoffSecs)*time.Second,
	)
	pool.Start(ctx)

	scheduler := schedule.New()
	visibility := time.Duration(cfg.Ingest.VisibilityTimeoutSecs) * time.Second
	retention := time.Duration(cfg.AI.CacheRetentionDays) * 24 * time.Hour
	if err := scheduler.Schedule("* * * * *", job.NewJobReclaimJob(jobRepo, visibility)); err != nil {
		return err
	}
	if err := scheduler.Schedule("0 4 * * *", job.NewEmbeddingCacheCleanupJob(cacheRepo, retention)); err != nil {
		return err
	}
	scheduler.Start(ctx)

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping, draining workers...")
	scheduler.Stop()
	pool.Wait()
	return nil
}
