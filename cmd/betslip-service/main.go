package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/betslip-service/internal/betslip"
	httpapi "github.com/radieske/betslip-service/internal/betslip-service/http"
	"github.com/radieske/betslip-service/internal/betslip-service/session"
	"github.com/radieske/betslip-service/internal/feed"
	"github.com/radieske/betslip-service/internal/odds"
	"github.com/radieske/betslip-service/internal/placement"
	"github.com/radieske/betslip-service/internal/shared/cache"
	"github.com/radieske/betslip-service/internal/shared/config"
	"github.com/radieske/betslip-service/internal/shared/db"
	"github.com/radieske/betslip-service/internal/shared/kafka"
	"github.com/radieske/betslip-service/internal/shared/logger"
	"github.com/radieske/betslip-service/internal/shared/metrics"
)

const restartDelay = 2 * time.Second

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service",
		zap.String("feed", cfg.Feed),
		zap.String("fetcher", cfg.Fetcher),
		zap.String("placement", cfg.Placement),
	)

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBetslip(reg)
	checks := map[string]metrics.HealthFunc{}

	// Redis é compartilhado entre feed e fetcher; conecta só se algum dos dois usar
	var rdb *redis.Client
	redisClient := func() *redis.Client {
		if rdb != nil {
			return rdb
		}
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		c, err := cache.ConnectRedis(cctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		log.Info("redis connected")
		checks["redis"] = func(ctx context.Context) error { return c.Ping(ctx).Err() }
		rdb = c
		return c
	}

	g, gctx := errgroup.WithContext(ctx)

	// Feed de odds
	hub := feed.NewHub(log, 0)
	hub.OnOverflow = func(string) { m.FeedOverflow.Inc() }
	var eventFeed betslip.EventFeed = hub

	switch cfg.Feed {
	case config.FeedRedis:
		sub := &feed.RedisSubscriber{
			Client:     redisClient(),
			Channel:    cfg.RedisPubSubChannel,
			Hub:        hub,
			Log:        log,
			OnReceived: m.FeedReceived("redis"),
			OnError:    m.FeedError("redis"),
		}
		g.Go(func() error { return runForever(gctx, log, "redis feed", sub.Run) })
	case config.FeedKafka:
		reader := kafka.NewReader(cfg.Brokers(), cfg.TopicOddsUpdates, "")
		defer reader.Close()
		consumer := &feed.KafkaConsumer{
			Log:        log,
			Reader:     reader,
			Hub:        hub,
			OnConsumed: m.FeedReceived("kafka"),
			OnError:    m.FeedError("kafka"),
		}
		g.Go(func() error { return consumer.Run(gctx) })
	case config.FeedWS:
		ws := feed.NewWSClient(cfg.OddsWSURL, hub, log)
		ws.OnError = m.FeedError("ws")
		g.Go(func() error { return ws.Run(gctx) })
	case config.FeedNone:
		eventFeed = nil // somente polling
	default:
		log.Fatal("unknown feed", zap.String("BETSLIP_FEED", cfg.Feed))
	}

	// Consulta pontual do evento
	var fetcher betslip.EventFetcher
	switch cfg.Fetcher {
	case config.FetcherHTTP:
		fetcher = odds.New(cfg.OddsURL, cfg.FetchRPS)
	case config.FetcherRedis:
		fetcher = odds.NewRedisFetcher(redisClient())
	case config.FetcherPostgres:
		pg := connectPostgres(ctx, log, cfg.PostgresDSN)
		defer pg.Close()
		checks["postgres"] = pg.PingContext
		fetcher = odds.NewPostgresFetcher(pg)
	default:
		log.Fatal("unknown fetcher", zap.String("BETSLIP_FETCHER", cfg.Fetcher))
	}

	// Colocação das apostas
	var placer betslip.BetPlacer
	switch cfg.Placement {
	case config.PlacementHTTP:
		placer = placement.New(cfg.BetURL)
	case config.PlacementKafka:
		writer := kafka.NewWriter(cfg.Brokers(), cfg.TopicBetPlaced)
		defer writer.Close()
		brokers := cfg.Brokers()
		checks["kafka"] = func(ctx context.Context) error { return kafka.Ping(ctx, brokers) }
		placer = placement.NewKafkaPublisher(writer)
	default:
		log.Fatal("unknown placement", zap.String("BETSLIP_PLACEMENT", cfg.Placement))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Um engine por usuário
	sessions := session.NewManager(func(userID string, n betslip.Notifier) *betslip.Engine {
		return betslip.NewEngine(betslip.Config{
			UserID:       userID,
			DefaultStake: cfg.DefaultStakeCents,
			Reconciler: betslip.ReconcilerConfig{
				PollInterval: cfg.PollInterval,
				Hooks:        m.ReconcilerHooks(),
			},
			Gate: m.GateHooks(),
		}, betslip.Deps{
			Fetcher:  fetcher,
			Feed:     eventFeed,
			Placer:   placer,
			Notifier: n,
			Log:      log,
		})
	}, log)
	sessions.OnOpen = m.Sessions.Inc
	sessions.OnClose = m.Sessions.Dec

	// HTTP público
	api := httpapi.NewServer(log, sessions, fetcher)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, reg, checks)

	g.Go(func() error {
		log.Info("betslip-service listening", zap.String("addr", apiSrv.Addr))
		return serve(apiSrv)
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		return serve(metricsSrv)
	})
	g.Go(func() error { return sessions.RunSweeper(gctx, time.Minute, cfg.SessionIdle) })
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(sctx)
		_ = metricsSrv.Shutdown(sctx)
		sessions.CloseAll()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service stopped with error", zap.Error(err))
		return
	}
	log.Info("betslip-service stopped")
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}

func connectPostgres(ctx context.Context, log *zap.Logger, dsn string) *sql.DB {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pg, err := db.ConnectPostgres(cctx, dsn)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	log.Info("postgres connected")
	return pg
}

// runForever reinicia fn após falhas até ctx terminar
func runForever(ctx context.Context, log *zap.Logger, name string, fn func(context.Context) error) error {
	for {
		err := fn(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn(name+" stopped, restarting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(restartDelay):
		}
	}
}
