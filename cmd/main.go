package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/config"
	"github.com/sbilibin2017/musicon/internal/handlers"
	"github.com/sbilibin2017/musicon/internal/jwt"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/mailer"
	"github.com/sbilibin2017/musicon/internal/middlewares"
	"github.com/sbilibin2017/musicon/internal/migrations"
	"github.com/sbilibin2017/musicon/internal/repositories"
	"github.com/sbilibin2017/musicon/internal/services"
	"github.com/sbilibin2017/musicon/internal/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// @title MusicOn API
// @version 1.0.0
// @description Music catalog with tracks, genres and playlists
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Version: %s\nCommit: %s\nBuild: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// run connects the backing services, serves HTTP and, when Kafka is
// configured, consumes the storage cleanup queue until ctx is cancelled or a
// termination signal arrives.
func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.Initialize(cfg.LogLevel, cfg.IsDevelopment()); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)
	apperror.SetDevelopment(cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	// Connect to PostgreSQL
	logger.Log.Infof("Connecting to PostgreSQL at %s:%d/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.PostgresDSN())
	if err != nil {
		return fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PostgresMaxOpenConns)
	db.SetMaxIdleConns(cfg.PostgresMaxIdleConns)

	if err := migrations.Up(cfg.PostgresDSN()); err != nil {
		return err
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection error: %w", err)
	}
	defer rdb.Close()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}

	// Storage cleanup goes through Kafka when brokers are configured
	var (
		kafkaWriter services.KafkaWriter
		worker      *services.CleanupWorker
	)
	if len(cfg.KafkaBrokers) > 0 {
		w := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaCleanupTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		}
		defer w.Close()
		kafkaWriter = w

		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   cfg.KafkaCleanupTopic,
		})
		defer reader.Close()
		worker = services.NewCleanupWorker(reader, store)
		logger.Log.Infof("Storage cleanup queue on topic %s", cfg.KafkaCleanupTopic)
	}
	cleanup := services.NewCleanupService(store, kafkaWriter)
	defer cleanup.Wait()

	// Initialize JWT service
	tokens := jwt.New(jwt.WithSecretKey(cfg.JWTSecretKey), jwt.WithExpiration(cfg.JWTExp))

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, middlewares.GetTxFromContext)
	sessionRepo := repositories.NewSessionRepository(rdb)

	// Initialize services
	userService := services.NewUserService(userRepo)
	authService := services.NewAuthService(userService, tokens, sessionRepo, mailer.New(cfg))

	r := newRouter(routerDeps{
		DB:            db,
		Tokens:        tokens,
		Auth:          authService,
		Users:         userService,
		Uploader:      store,
		Cleaner:       cleanup,
		Cookie:        handlers.SessionCookie{Expires: cfg.CookieExpires},
		CORSOrigins:   cfg.CORSOrigins,
		MaxImageBytes: cfg.MaxImageBytes,
		MaxAudioBytes: cfg.MaxAudioBytes,
		SwaggerURL:    fmt.Sprintf("http://%s/swagger/doc.json", cfg.Addr()),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Infof("HTTP server listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorw("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
