package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pressly/goose/v3"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/electrabid/backend/internal/adapters/api"
	"github.com/electrabid/backend/internal/adapters/cache"
	"github.com/electrabid/backend/internal/adapters/database"
	"github.com/electrabid/backend/internal/adapters/memstore"
	"github.com/electrabid/backend/internal/config"
	"github.com/electrabid/backend/internal/domain/auctions"
	"github.com/electrabid/backend/internal/domain/elections"
	"github.com/electrabid/backend/internal/domain/users"
	"github.com/electrabid/backend/migrations"
	"github.com/electrabid/backend/pkg/auth"
	pkgdb "github.com/electrabid/backend/pkg/database"
	pkgevents "github.com/electrabid/backend/pkg/events"
)

const tokenIssuer = "electrabid"

// repositories groups everything the domain services need from a store.
type repositories struct {
	txManager    pkgdb.TransactionManager
	userRepo     users.UserRepository
	electionRepo elections.ElectionRepository
	voteRepo     elections.VoteRepository
	auctionRepo  auctions.AuctionRepository
	bidRepo      auctions.BidRepository
	outboxRepo   pkgevents.OutboxRepository
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repos repositories
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := connectPostgres(ctx, cfg, logger)
		if err != nil {
			logger.Error("Unable to set up database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		repos = repositories{
			txManager:    pkgdb.NewPostgresTransactionManager(pool, 3*time.Second),
			userRepo:     database.NewPostgresUserRepository(pool),
			electionRepo: database.NewPostgresElectionRepository(pool),
			voteRepo:     database.NewPostgresVoteRepository(pool),
			auctionRepo:  database.NewPostgresAuctionRepository(pool),
			bidRepo:      database.NewPostgresBidRepository(pool),
			outboxRepo:   database.NewPostgresOutboxRepository(pool),
		}
	case config.StoreMemory:
		store := memstore.New()
		repos = repositories{
			txManager:    store,
			userRepo:     store.UserRepository(),
			electionRepo: store.ElectionRepository(),
			voteRepo:     store.VoteRepository(),
			auctionRepo:  store.AuctionRepository(),
			bidRepo:      store.BidRepository(),
			outboxRepo:   store.OutboxRepository(),
		}
		logger.Warn("Using in-memory store, data will not survive a restart")
	}

	var tallyCache elections.TallyCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis connection failed, results served without cache", "error", err)
		} else {
			tallyCache = cache.NewRedisTallyCache(rdb)
			logger.Info("Redis Connected")
		}
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, tokenIssuer)
	if err != nil {
		logger.Error("Unable to create token signer", "error", err)
		os.Exit(1)
	}

	userService := users.NewService(repos.userRepo, repos.outboxRepo, repos.txManager, signer)
	electionService := elections.NewService(
		repos.electionRepo, repos.voteRepo, repos.outboxRepo, repos.txManager, tallyCache, logger)
	auctionService := auctions.NewService(
		repos.auctionRepo, repos.bidRepo, repos.outboxRepo, repos.txManager)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := userService.EnsureAdmin(ctx, "Administrator", cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("Unable to bootstrap admin account", "error", err)
			os.Exit(1)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))

	handler := api.NewHandler(userService, electionService, auctionService, signer, logger)
	handler.RegisterRoutes(e)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.RabbitURL != "" {
		amqpConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer amqpConn.Close()

		publisher, err := pkgevents.NewRabbitMQPublisher(amqpConn)
		if err != nil {
			logger.Error("Failed to create RabbitMQ publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		logger.Info("RabbitMQ Connected")

		relay := pkgevents.NewOutboxRelay(
			repos.outboxRepo,
			publisher,
			repos.txManager,
			10,
			time.Second,
			pkgevents.Exchange,
			logger,
		)
		g.Go(func() error {
			logger.Info("Starting outbox relay")
			return relay.Run(ctx)
		})
	} else {
		logger.Warn("RABBITMQ_URL not set, outbox events will accumulate unpublished")
	}

	g.Go(func() error {
		logger.Info("Starting API server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// connectPostgres opens the pool, verifies connectivity and applies the
// embedded migrations.
func connectPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	dsn := cfg.PostgresDSN()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.DBConnLimit)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Postgres Connected")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		pool.Close()
		return nil, err
	}
	if err := goose.Up(db, "."); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Migrations applied")

	return pool, nil
}
