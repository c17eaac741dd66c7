package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/taskpulse/internal/config"
	"github.com/mtlprog/taskpulse/internal/database"
	"github.com/mtlprog/taskpulse/internal/events"
	"github.com/mtlprog/taskpulse/internal/handler"
	"github.com/mtlprog/taskpulse/internal/logger"
	"github.com/mtlprog/taskpulse/internal/middleware"
	"github.com/mtlprog/taskpulse/internal/repository"
	"github.com/mtlprog/taskpulse/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "taskpulse",
		Usage: "Task tracker with domain events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "storage",
				Value:   config.DefaultStorage,
				Usage:   "Storage backend (postgres, memory)",
				EnvVars: []string{"STORAGE"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL database URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.IntFlag{
				Name:  "db-max-conns",
				Value: config.DefaultMaxConns,
				Usage: "Maximum database connections",
			},
			&cli.IntFlag{
				Name:  "db-min-conns",
				Value: config.DefaultMinConns,
				Usage: "Minimum idle database connections",
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL; when set, domain events are published to Redis",
				EnvVars: []string{"REDIS_URL"},
			},
			&cli.StringFlag{
				Name:    "events-channel",
				Value:   config.DefaultEventsChannel,
				Usage:   "Redis channel for domain events",
				EnvVars: []string{"EVENTS_CHANNEL"},
			},
			&cli.DurationFlag{
				Name:    "handler-timeout",
				Value:   config.DefaultHandlerTimeout,
				Usage:   "Timeout for a single event handler (0 disables)",
				EnvVars: []string{"EVENT_HANDLER_TIMEOUT"},
			},
			&cli.IntFlag{
				Name:    "handler-concurrency",
				Value:   config.DefaultHandlerConcurrency,
				Usage:   "Maximum handlers running at once per event (0 means unlimited)",
				EnvVars: []string{"EVENT_HANDLER_CONCURRENCY"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")), c.String("log-format"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runServe,
			},
			{
				Name:  "escalate-overdue",
				Usage: "Raise the priority of overdue tasks",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rebalance",
						Usage: "Also recompute priorities of all active tasks from their due dates",
					},
				},
				Action: runEscalateOverdue,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Action: runMigrate,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Config{
		LogLevel:           c.String("log-level"),
		LogFormat:          c.String("log-format"),
		Storage:            c.String("storage"),
		DatabaseURL:        c.String("database-url"),
		MaxConns:           int32(c.Int("db-max-conns")),
		MinConns:           int32(c.Int("db-min-conns")),
		RedisURL:           c.String("redis-url"),
		EventsChannel:      c.String("events-channel"),
		HandlerTimeout:     c.Duration("handler-timeout"),
		HandlerConcurrency: c.Int("handler-concurrency"),
		Port:               c.String("port"),
	}
	if cfg.Port == "" {
		cfg.Port = config.DefaultPort
	}
	return cfg, cfg.Validate()
}

// app holds the wired components shared by all commands.
type app struct {
	service *service.TaskService
	pinger  handler.Pinger
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setup builds the dispatcher, storage and service from cfg.
func setup(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}

	dispatcher := events.NewDispatcher(
		events.WithLogger(slog.Default()),
		events.WithHandlerTimeout(cfg.HandlerTimeout),
		events.WithConcurrency(cfg.HandlerConcurrency),
	)
	events.RegisterLoggingHandlers(dispatcher, slog.Default())

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })

		events.NewRedisPublisher(client, cfg.EventsChannel).Subscribe(dispatcher)
		slog.Info("publishing domain events to redis", "channel", cfg.EventsChannel)
	}

	var repo service.TaskRepository
	switch cfg.Storage {
	case config.StorageMemory:
		repo = repository.NewMemoryTaskRepository(dispatcher)
		slog.Warn("using in-memory storage; data is lost on exit")
	default:
		db, err := database.New(ctx, cfg.DatabaseURL, database.PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if err := database.RunMigrations(ctx, db.Pool()); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		repo = repository.NewTaskRepository(db.Pool(), dispatcher)
		a.pinger = db.Pool()
	}

	a.service = service.NewTaskService(repo, dispatcher)
	return a, nil
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	a, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	h := handler.New(a.service, a.pinger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(mux,
			middleware.RequestLogger(slog.Default()),
			middleware.Recover(slog.Default()),
		),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+cfg.Port, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runEscalateOverdue(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	a, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	escalated, err := a.service.EscalateOverdueTasks(ctx)
	if err != nil {
		return fmt.Errorf("escalate overdue tasks: %w", err)
	}
	slog.Info("overdue tasks escalated", "count", escalated)

	if c.Bool("rebalance") {
		rebalanced, err := a.service.RebalancePriorities(ctx)
		if err != nil {
			return fmt.Errorf("rebalance priorities: %w", err)
		}
		slog.Info("priorities rebalanced", "count", rebalanced)
	}

	return nil
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context

	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return fmt.Errorf("%w: database url is required", config.ErrInvalidConfig)
	}

	db, err := database.New(ctx, databaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("migrations applied")
	return nil
}
