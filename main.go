// main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"cinema-reservation/cmd"
	"cinema-reservation/internal/data/cache"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/events"
	"cinema-reservation/internal/sweeper"
	"cinema-reservation/internal/wire"
	"cinema-reservation/pkg/database"
	"cinema-reservation/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Redis is optional; without it the seat map is served from the store.
	var redisClient *redis.Client
	if config.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		defer redisClient.Close()
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	}
	seatCache := cache.NewSeatAvailability(
		redisClient,
		time.Duration(config.Redis.TTLSeconds)*time.Second,
		logger,
	)

	// RabbitMQ is optional; without it lifecycle events are not published.
	var publisher *events.Publisher
	if config.Queue.URL != "" {
		publisher, err = events.NewPublisher(config.Queue.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to rabbitmq", zap.Error(err))
		}
		defer publisher.Close()
		logger.Info("RabbitMQ connected")
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, seatCache, publisher, config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background reconciliation sweeps
	intervals := sweeper.Intervals{
		Showtime:    time.Duration(config.Sweep.ShowtimeSeconds) * time.Second,
		Booking:     time.Duration(config.Sweep.BookingSeconds) * time.Second,
		Lock:        time.Duration(config.Sweep.LockSeconds) * time.Second,
		Consistency: time.Duration(config.Sweep.ConsistencySeconds) * time.Second,
	}
	sw := sweeper.New(app.Service, repos, intervals, logger)
	go sw.Run(ctx)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
