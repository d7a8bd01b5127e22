package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"roundbets/config"
	"roundbets/database"
	"roundbets/events"
	"roundbets/httpapi"
	"roundbets/infrastructure"
	"roundbets/metrics"
	"roundbets/repository"
	"roundbets/service"
	"roundbets/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting roundbets")

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	redisClient, err := session.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	log.WithField("addr", cfg.RedisAddr).Info("Session store connected")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	authorizer := service.NewEmailAllowList(cfg.AdminEmails)
	wagerService := service.NewWagerService(uowFactory)
	roundService := service.NewRoundService(uowFactory, authorizer)
	statsService := service.NewStatsService(uowFactory, authorizer)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)
	appMetrics.Attach(eventBus)

	healthChecks := map[string]metrics.HealthFunc{
		"postgres": db.Ping,
		"redis":    sessions.Ping,
	}

	closeSinks, err := attachSinks(cfg, eventBus, healthChecks)
	if err != nil {
		return err
	}
	defer closeSinks()

	metricsServer := metrics.StartServer(cfg.MetricsAddr, registry, metrics.AllHealthy(healthChecks))

	api := httpapi.NewServer(sessions, wagerService, roundService, statsService, appMetrics)
	apiServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("API server failed: %w", err)
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down API server")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics server")
	}

	// Deliver events already committed before the sinks are closed
	eventBus.Close()

	log.Info("Shutdown completed")
	return nil
}

// attachSinks wires the configured outbound event sinks to the bus and
// returns a func releasing their connections
func attachSinks(cfg *config.Config, bus *events.Bus, healthChecks map[string]metrics.HealthFunc) (func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.EventSink {
	case config.EventSinkNATS:
		client := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := client.Connect(); err != nil {
			return func() {}, err
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		})

		publisher := infrastructure.NewNATSEventPublisher(client, infrastructure.NewEventSubjectMapper(cfg.NATSSubjectPrefix))
		if err := publisher.EnsureDomainEventStream(client); err != nil {
			closeAll()
			return func() {}, err
		}
		infrastructure.AttachSink(bus, "nats", publisher)
		healthChecks["nats"] = client.Ping

	case config.EventSinkKafka:
		publisher := infrastructure.NewKafkaEventPublisher(infrastructure.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				log.WithError(err).Error("Error closing kafka writer")
			}
		})
		infrastructure.AttachSink(bus, "kafka", publisher)
	}

	if cfg.DiscordToken != "" {
		dg, err := infrastructure.NewDiscordSession(cfg.DiscordToken)
		if err != nil {
			closeAll()
			return func() {}, err
		}
		closers = append(closers, func() {
			if err := dg.Close(); err != nil {
				log.WithError(err).Error("Error closing Discord session")
			}
		})
		infrastructure.AttachSink(bus, "discord", infrastructure.NewDiscordAnnouncer(dg, cfg.DiscordChannelID))
	}

	return closeAll, nil
}
