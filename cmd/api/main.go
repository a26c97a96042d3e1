package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/Gpanazio/brickreview-sub001/internal/api"
	"github.com/Gpanazio/brickreview-sub001/internal/config"
	"github.com/Gpanazio/brickreview-sub001/internal/db"
	"github.com/Gpanazio/brickreview-sub001/internal/dispatch"
	"github.com/Gpanazio/brickreview-sub001/internal/media"
	"github.com/Gpanazio/brickreview-sub001/internal/metrics"
	"github.com/Gpanazio/brickreview-sub001/internal/pipeline"
	"github.com/Gpanazio/brickreview-sub001/internal/storage/s3"
	queue "github.com/Gpanazio/brickreview-sub001/internal/temporal"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	database, err := db.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Initialize repositories
	videoRepo := db.NewVideoRepository(database)
	failureRepo := db.NewFailureRepository(database)

	// Initialize object storage client
	s3Client, err := s3.New(cfg.S3)
	if err != nil {
		logger.Fatal("failed to initialize storage client", zap.Error(err))
	}

	// Initialize metrics
	m := metrics.New()

	// The API carries a full pipeline so jobs still run in-process when the
	// queue backend is down.
	transcoder := media.NewTranscoder(cfg.FFmpeg.BinaryPath, cfg.FFmpeg.FFprobePath, cfg.FFmpeg.ProcessTimeout)
	pipe := pipeline.New(videoRepo, failureRepo, s3Client, transcoder, pipeline.Options{
		WorkdirRoot:        cfg.Worker.WorkdirRoot,
		MaxParallelUploads: cfg.Worker.MaxParallelUploads,
		Sprite: media.SpriteOptions{
			IntervalSec: cfg.Sprite.IntervalSec,
			Columns:     cfg.Sprite.Columns,
			ThumbWidth:  cfg.Sprite.ThumbWidth,
			ThumbHeight: cfg.Sprite.ThumbHeight,
		},
	}, logger, m)

	// Initialize the queue backend. A failed connection is not fatal; the
	// dispatcher degrades to synchronous runs.
	var jobQueue dispatch.Queue
	if cfg.Temporal.Enabled {
		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.Address,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			logger.Warn("failed to connect to Temporal, jobs will run synchronously", zap.Error(err))
		} else {
			defer temporalClient.Close()
			jobQueue = queue.NewQueue(temporalClient, cfg.Temporal.TaskQueue, logger)
		}
	}

	dispatcher := dispatch.New(jobQueue, pipe, cfg.Temporal.Enabled, logger, m)

	// Initialize handler
	handler := api.NewHandler(videoRepo, failureRepo, dispatcher, s3Client, database, logger)

	// Create router
	router := api.NewRouter(handler, logger)

	// Create server
	server := api.NewServer(cfg.API, router, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server error", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("API server started",
		zap.Int("port", cfg.API.Port),
		zap.Bool("queueEnabled", cfg.Temporal.Enabled),
	)

	// Wait for shutdown signal
	<-sigChan
	logger.Info("received shutdown signal")

	if err := server.Stop(ctx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
