// The server command runs a ringkv partition server: it loads cluster
// metadata from the configured coordinator backend, binds this host's
// partitions to readers at the dictated versions, and serves lookups over
// HTTP until signalled to stop.
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

	"golang.org/x/sync/errgroup"

	"ringkv/internal/coordinator"
	pgstore "ringkv/internal/coordinator/store/postgres"
	redisstore "ringkv/internal/coordinator/store/redis"
	"ringkv/internal/events"
	"ringkv/internal/platform/config"
	"ringkv/internal/platform/httpserver"
	"ringkv/internal/platform/logger"
	"ringkv/internal/platform/postgres"
	platformredis "ringkv/internal/platform/redis"
	"ringkv/internal/server"
	servermetrics "ringkv/internal/server/metrics"
	"ringkv/internal/storage"
	"ringkv/internal/storage/memory"
	httptransport "ringkv/internal/transport/http"
)

// configurator adapts the env config to the serving handler's view of it.
type configurator struct {
	cfg config.Server
}

func (c configurator) RingGroupName() string {
	return c.cfg.RingGroupName
}

func (c configurator) NumConcurrentGets() int {
	return c.cfg.NumConcurrentGets
}

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("partition server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cluster, cleanup, err := loadCluster(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load cluster metadata: %w", err)
	}
	defer cleanup()

	sink, sinkCleanup, err := buildEventSink(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect event sink: %w", err)
	}
	defer sinkCleanup()
	recorder := events.NewRecorder(256, log)
	worker := events.NewWorker(sink, recorder, log)

	metrics := servermetrics.New()
	addr := coordinator.HostAddress{Host: cfg.Host, Port: cfg.Port}

	handler, err := server.NewHandler(addr, configurator{cfg}, cluster,
		server.WithLogger(log),
		server.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("assemble handler: %w", err)
	}

	transport := httptransport.NewHandler(handler, log)
	dataServer := httpserver.New(cfg.DataAddr, httptransport.NewRouter(transport))
	opsServer := httpserver.New(cfg.OpsAddr, httptransport.NewOpsRouter(transport))

	recorder.Record(events.Event{
		Type:      events.TypeServerReady,
		Host:      addr.String(),
		RingGroup: cfg.RingGroupName,
	})
	for _, accessor := range handler.DomainAccessors() {
		if accessor == nil {
			continue
		}
		recorder.Record(events.Event{
			Type:      events.TypeDomainLoaded,
			Host:      addr.String(),
			RingGroup: cfg.RingGroupName,
			Domain:    accessor.Name(),
		})
	}

	log.Info("partition server serving",
		"host", addr.String(),
		"ring_group", cfg.RingGroupName,
		"data_addr", cfg.DataAddr,
		"ops_addr", cfg.OpsAddr,
		"num_concurrent_gets", cfg.NumConcurrentGets,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := dataServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("data server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("event worker: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dataServer.Shutdown(shutdownCtx); err != nil {
			log.Error("data server shutdown", "error", err)
		}
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("ops server shutdown", "error", err)
		}

		handler.ShutDown()
		recorder.Record(events.Event{
			Type:      events.TypeServerStopped,
			Host:      addr.String(),
			RingGroup: cfg.RingGroupName,
		})
		return nil
	})

	return group.Wait()
}

// loadCluster reads metadata from the configured backend, binding every
// domain to a local storage engine by name.
func loadCluster(ctx context.Context, cfg config.Server) (*coordinator.Cluster, func(), error) {
	bindEngine := func(ds coordinator.DomainSpec) (storage.Engine, error) {
		switch ds.EngineName {
		case "memory":
			return memory.NewEngine(ds.NumPartitions), nil
		default:
			return nil, fmt.Errorf("unknown storage engine %q", ds.EngineName)
		}
	}

	switch cfg.CoordinatorBackend {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		cluster, err := pgstore.NewStore(db).LoadCluster(ctx, bindEngine)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return cluster, func() { db.Close() }, nil

	case "redis":
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, fmt.Errorf("redis coordinator backend requires RINGKV_REDIS_URL")
		}
		cluster, err := redisstore.NewStore(client.Client).LoadCluster(ctx, bindEngine)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return cluster, func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown coordinator backend %q", cfg.CoordinatorBackend)
	}
}

// buildEventSink connects Kafka when brokers are configured and falls back
// to an in-memory sink otherwise.
func buildEventSink(ctx context.Context, cfg config.Server, log *slog.Logger) (events.Sink, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("kafka brokers not configured, keeping serving events in memory")
		return events.NewMemorySink(), func() {}, nil
	}
	sink, err := events.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	return sink, sink.Close, nil
}
