package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homefinder/server/config"
	"homefinder/server/internal/amenities"
	"homefinder/server/internal/analytics"
	"homefinder/server/internal/api"
	"homefinder/server/internal/database"
	"homefinder/server/internal/metadata"
	"homefinder/server/internal/processor"
	"homefinder/server/internal/queue"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger.Infof("Using database at: %s", cfg.SQLitePath)

	// Initialize the transaction/policy database
	db, err := database.NewDatabase(cfg.SQLitePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Connect to the amenity/metadata document store
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to document store")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to disconnect document store")
		}
	}()
	mongoDB := client.Database(cfg.MongoDB)

	spatialStore := amenities.NewMongoStore(mongoDB)
	if err := spatialStore.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to create spatial indexes")
	}

	metaStore := metadata.NewStore(mongoDB)
	if err := metaStore.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to create metadata indexes")
	}
	if err := metaStore.Seed(ctx, config.TownMetadataRecords()); err != nil {
		logger.WithError(err).Error("Failed to seed town metadata")
	}

	// Ingestion pipeline with its queue and workers
	pipeline := amenities.NewPipeline(spatialStore, logger)
	featureQueue := queue.NewFeatureQueue(cfg.Ingestion.QueueSize, logger)
	workers := processor.NewIngestWorkers(pipeline, featureQueue, cfg, logger)
	workers.Start()
	defer workers.Stop()
	defer featureQueue.Close()

	ranker := analytics.NewComparisonRanker(db, metaStore, db, logger)
	handler := api.NewHandler(db, ranker, pipeline, spatialStore, metaStore, featureQueue, logger)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(router, handler)

	// Shut the workers down cleanly on SIGINT/SIGTERM
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down...")
		featureQueue.Close()
		workers.Stop()
		os.Exit(0)
	}()

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
