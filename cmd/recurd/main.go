// Command recurd runs the recur engine as a standalone service: an HTTP API
// for tenants and schedules, an optional cron-driven trusted invoker, AMQP
// settlement forwarding and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/xraph/recur"
	"github.com/xraph/recur/api"
	audithook "github.com/xraph/recur/audit_hook"
	"github.com/xraph/recur/host"
	"github.com/xraph/recur/host/amqp"
	"github.com/xraph/recur/invoker"
	"github.com/xraph/recur/observability"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/store/memory"
	redisstore "github.com/xraph/recur/store/redis"
	"github.com/xraph/recur/types"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "recurd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	custody, closeSettlement, err := openCustody(cfg, logger)
	if err != nil {
		_ = st.Close()
		return err
	}
	defer closeSettlement()

	engineOpts, err := engineOptions(cfg, logger, custody)
	if err != nil {
		_ = st.Close()
		return err
	}

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
		engineOpts = append(engineOpts, recur.WithPlugin(metrics))
	}

	engine := recur.New(st, engineOpts...)
	if err := engine.Start(ctx); err != nil {
		_ = st.Close()
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Error("engine stop failed", "error", err)
		}
	}()

	var inv *invoker.Invoker
	if cfg.Invoker.Enabled {
		inv, err = startInvoker(ctx, cfg, logger, engine)
		if err != nil {
			return err
		}
	}

	router := chi.NewRouter()
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	router.Mount("/", api.NewServer(engine, []byte(cfg.Auth.JWTSecret),
		api.WithLogger(logger),
		api.WithFunder(custody),
	))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("recurd listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if inv != nil {
		if err := inv.Stop(shutdownCtx); err != nil {
			logger.Warn("invoker stop timed out", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func openStore(cfg *Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "redis":
		rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    []string{cfg.Store.Redis.Addr},
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		var opts []redisstore.Option
		if cfg.Store.Redis.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Store.Redis.Prefix))
		}
		return redisstore.New(rdb, opts...), nil
	default:
		return memory.New(), nil
	}
}

func openCustody(cfg *Config, logger *slog.Logger) (*host.Custody, func(), error) {
	opts := []host.CustodyOption{host.WithCustodyLogger(logger)}
	closer := func() {}

	if cfg.Engine.InitialBalance != "" {
		balance, err := types.ParseAmount(cfg.Engine.InitialBalance)
		if err != nil {
			return nil, nil, fmt.Errorf("engine.initial_balance: %w", err)
		}
		opts = append(opts, host.WithInitialBalance(balance))
	}
	for account, value := range cfg.Engine.Funds {
		amount, err := types.ParseAmount(value)
		if err != nil {
			return nil, nil, fmt.Errorf("engine.funds[%s]: %w", account, err)
		}
		opts = append(opts, host.WithFunds(account, amount))
	}

	if cfg.Settlement.AMQPURL != "" {
		pub, err := amqp.Dial(cfg.Settlement.AMQPURL, cfg.Settlement.Queue,
			amqp.WithExchange(cfg.Settlement.Exchange),
			amqp.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, host.WithSettlement(pub))
		closer = func() {
			if err := pub.Close(); err != nil {
				logger.Warn("amqp close failed", "error", err)
			}
		}
	}

	return host.NewCustody(opts...), closer, nil
}

func engineOptions(cfg *Config, logger *slog.Logger, custody *host.Custody) ([]recur.Option, error) {
	opts := []recur.Option{
		recur.WithLogger(logger),
		recur.WithHost(custody),
		recur.WithTrustedInvoker(cfg.Engine.TrustedInvoker),
		recur.WithPlugin(audithook.New(slogRecorder(logger), audithook.WithLogger(logger))),
	}
	if cfg.Engine.UnitScale != "" {
		scale, err := types.ParseAmount(cfg.Engine.UnitScale)
		if err != nil {
			return nil, fmt.Errorf("engine.unit_scale: %w", err)
		}
		opts = append(opts, recur.WithUnitScale(scale))
	}
	if cfg.Engine.OpenCancellation {
		opts = append(opts, recur.WithOpenCancellation())
	}
	return opts, nil
}

func startInvoker(ctx context.Context, cfg *Config, logger *slog.Logger, engine *recur.Engine) (*invoker.Invoker, error) {
	opts := []invoker.Option{invoker.WithLogger(logger)}
	if cfg.Invoker.RatePerSecond > 0 {
		opts = append(opts, invoker.WithRateLimit(rate.Limit(cfg.Invoker.RatePerSecond), cfg.Invoker.Burst))
	}

	inv := invoker.New(engine, cfg.Engine.TrustedInvoker, opts...)
	for _, job := range cfg.Invoker.Jobs {
		if err := inv.Add(job.ScheduleID, job.Spec); err != nil {
			return nil, err
		}
	}
	inv.Start(ctx)
	return inv, nil
}

// slogRecorder writes audit events to the process log.
func slogRecorder(logger *slog.Logger) audithook.Recorder {
	return audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
		logger.LogAttrs(ctx, slog.LevelInfo, "audit",
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
			slog.String("severity", evt.Severity),
			slog.Any("metadata", evt.Metadata),
		)
		return nil
	})
}
