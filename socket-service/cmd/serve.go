package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/jwt"
	pkglog "github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/pkg/middleware"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/auth"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/config"
	grpcserver "github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/grpc"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/handler"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/kafka"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/metrics"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/registry"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/service"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/store"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/transport"
)

func buildServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the socket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: serviceName,
	})
	logger := pkglog.L()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Collaborators
	st, err := store.Open(ctx, cfg.Store.Config)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close(context.Background())
	logger.Info().Str("driver", cfg.Store.Driver).Str("message_driver", cfg.Store.Messages.Driver).Msg("store connected")

	tokens, err := jwt.NewManager(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	h := hub.NewHub(cfg.Hub)
	metrics.RegisterHubGauges(reg, h)

	// Event sink
	var producer kafka.EventProducer = kafka.NoopProducer{}
	if cfg.Kafka.Enabled {
		p, err := kafka.NewConfluentProducer(kafka.ProducerConfig{
			Brokers:    cfg.Kafka.Brokers,
			Topic:      cfg.Kafka.EventsTopic,
			Partitions: cfg.Kafka.Partitions,
			OnFailure:  m.PublishFailed,
		})
		if err != nil {
			return fmt.Errorf("failed to create kafka producer: %w", err)
		}
		producer = p
		logger.Info().Str("topic", cfg.Kafka.EventsTopic).Msg("kafka producer created")
	}
	defer producer.Close()

	// Presence mirror
	var mirror registry.PresenceMirror = registry.Noop{}
	if cfg.Redis.Enabled {
		rm, err := registry.NewRedisMirror(registry.Config{
			Address:           cfg.Redis.Address,
			Password:          cfg.Redis.Password,
			DB:                cfg.Redis.DB,
			Prefix:            cfg.Redis.Prefix,
			HeartbeatInterval: cfg.Redis.HeartbeatInterval,
			KeyTTL:            cfg.Redis.KeyTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect presence mirror: %w", err)
		}
		mirror = rm
		logger.Info().Str("address", cfg.Redis.Address).Msg("presence mirror connected")
	}
	defer mirror.Close()

	router := service.NewRouter(h, service.Deps{
		Accounts:     st,
		Contents:     st,
		Interactions: st,
		Messages:     st,
		Producer:     producer,
		Mirror:       mirror,
		Metrics:      m,
		Timeout:      cfg.Store.Timeout,
	})
	go h.Run()

	if err := mirror.StartHeartbeat(ctx); err != nil {
		return fmt.Errorf("failed to start presence heartbeat: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Stream lifecycle consumer
	var consumer kafka.StreamEventConsumer
	if cfg.Kafka.Enabled {
		c, err := kafka.NewConfluentConsumer(cfg.Kafka.Brokers, cfg.Kafka.StreamTopic, cfg.Kafka.GroupID, router)
		if err != nil {
			return fmt.Errorf("failed to create kafka consumer: %w", err)
		}
		if err := c.Start(gctx); err != nil {
			return fmt.Errorf("failed to start kafka consumer: %w", err)
		}
		consumer = c
	}

	// HTTP
	gate := auth.NewGate(tokens, st, cfg.Store.Timeout)
	ws := transport.NewWSHandler(gate, router, cfg.WebSocket, cfg.Server.FrontendOrigin, m)
	polling := transport.NewPollingHandler(gate, router, cfg.Polling, m)
	api := handler.NewHandler(router, middleware.NewAuthMiddleware(tokens))

	engine := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		FrontendOrigin: cfg.Server.FrontendOrigin,
		Gatherer:       reg,
	}, ws, polling, api)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC ops server
	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		grpcSrv, err = grpcserver.StartGRPCServer(fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port), logger)
		if err != nil {
			return fmt.Errorf("failed to start grpc server: %w", err)
		}
	}

	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("origin", cfg.Server.FrontendOrigin).Msg("socket-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return polling.RunJanitor(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		if grpcSrv != nil {
			grpcSrv.SetServing(false)
		}
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka consumer")
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown incomplete, closing")
			srv.Close()
		}

		h.Stop()

		if grpcSrv != nil {
			grpcSrv.Stop()
		}
		return nil
	})

	return g.Wait()
}
