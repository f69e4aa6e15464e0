package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tailorflow/tailorflow/cmd/tailorflow/cli"
	"github.com/tailorflow/tailorflow/internal/app"
	jobmetrics "github.com/tailorflow/tailorflow/internal/jobs"
	"github.com/tailorflow/tailorflow/internal/observability"
	"github.com/tailorflow/tailorflow/internal/seed"
	"github.com/tailorflow/tailorflow/jobs"
)

const usage = `usage: tailorflow [command]

commands:
  serve       run the HTTP server (default)
  seed        load seed data: seed [-file path] [-mode dry|apply] [-json]
  low-stock   list items at or below reorder level: low-stock [-json]
  jobs        queue helpers: jobs stats | jobs trigger <task>
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "seed", "low-stock":
		os.Exit(runStoreCommand(ctx, cfg, logger, cmd, args))
	case "jobs":
		os.Exit(runJobsCommand(ctx, cfg, args))
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("tailorflow", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	backend, closeBackend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	application, err := app.New(app.Deps{
		Config:    cfg,
		Logger:    logger,
		Redis:     redisClient,
		Backend:   backend,
		Notifier:  jobClient,
		Inspector: inspector,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	if cfg.SeedDemo || cfg.SeedFile != "" {
		file, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := application.Seeder.Run(ctx, file); err != nil {
			return err
		}
	}

	// The in-memory store only exists in this process, so its jobs run here too.
	if cfg.StoreDriver == app.StoreMemory {
		worker, err := app.NewWorker(app.WorkerDeps{
			Config:    cfg,
			Logger:    logger,
			Inventory: application.Inventory,
			Inbox:     application.Notifications,
			Metrics:   jobmetrics.NewMetrics(metrics.Registerer()),
		})
		if err != nil {
			return err
		}
		go func() {
			if err := worker.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("embedded worker", slog.Any("error", err))
			}
		}()
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      application.Handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runStoreCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, cmd string, args []string) int {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	path := fs.String("file", cfg.SeedFile, "seed file (built-in demo data when empty)")
	mode := fs.String("mode", string(cli.SeedModeDry), "dry or apply")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	backend, closeBackend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return 1
	}
	defer closeBackend()
	application, err := app.New(app.Deps{Config: cfg, Logger: logger, Redis: redisClient, Backend: backend})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return 1
	}

	if cmd == "low-stock" {
		return cli.NewStockOpsCLI(application.Inventory).LowStockCommand(ctx, cli.LowStockOptions{JSONOutput: *asJSON})
	}
	return cli.NewSeedOpsCLI(application.Seeder).SeedCommand(ctx, cli.SeedOptions{
		Path:       *path,
		Mode:       cli.SeedMode(*mode),
		JSONOutput: *asJSON,
	})
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	helper, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer helper.Close()

	if len(args) == 0 {
		args = []string{"stats"}
	}
	switch args[0] {
	case "stats":
		stats, err := helper.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
			return 1
		}
		_ = json.NewEncoder(os.Stdout).Encode(stats)
		return 0
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "jobs: trigger needs a task name")
			return 2
		}
		info, err := helper.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "enqueued %s as %s\n", info.Type, info.ID)
		return 0
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}
