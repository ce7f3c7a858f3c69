package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/commerce"
	"github.com/Ramsey-B/fern/internal/repositories/syncrun"
	"github.com/Ramsey-B/fern/pkg/cms"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/indexer"
	"github.com/Ramsey-B/fern/pkg/indexsync"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/routes/dlq"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/search"
	"github.com/Ramsey-B/fern/pkg/routes/syncapi"
	"github.com/Ramsey-B/fern/pkg/routes/webhook"
	"github.com/Ramsey-B/fern/pkg/searchindex"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

type app struct {
	cfg    config.Config
	logger ectologger.Logger
	health *health.Checker

	db       *sqlx.DB
	redis    *redis.Client
	dlq      *redis.DeadLetterQueue
	search   *searchindex.Client
	settings map[models.EntityType]searchindex.Settings
	producer *kafka.Producer
	consumer *kafka.Consumer

	commerce *commerce.Repository
	runs     *syncrun.Repository
	engine   *indexsync.Engine
	indexer  *indexer.Indexer
	webhooks *cms.WebhookParser

	server *http.Server
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush, err := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := tracing.Setup(ctx, cfg.AppName, cfg.Version, exporters.OTLPConfig{
			Endpoint: cfg.TracingEndpoint,
			Protocol: cfg.TracingProtocol,
			Insecure: cfg.TracingInsecure,
		})
		if err != nil {
			logger.WithError(err).Error("Failed to set up tracing")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
		}
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		health: health.NewChecker(cfg.Version),
	}

	s := startup.New(logger, cfg.StartupMaxAttempts)
	for _, dep := range a.dependencies() {
		s.Add(dep)
	}

	if err := s.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start fern")
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = s.Stop(stopCtx)
		cancel()
		os.Exit(1)
	}
	a.health.SetReady(true)
	logger.WithField("port", cfg.Port).Info("fern started")

	<-ctx.Done()
	logger.Info("Shutting down fern")
	a.health.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
	}
}

func (a *app) dependencies() []startup.Dependency {
	deps := []startup.Dependency{
		&startup.Func{Name: "database", OnStart: a.startDatabase, OnStop: a.stopDatabase},
		&startup.Func{Name: "search", OnStart: a.startSearch},
		&startup.Func{Name: "redis", OnStart: a.startRedis, OnStop: a.stopRedis},
		&startup.Func{Name: "kafka-producer", OnStart: a.startProducer, OnStop: a.stopProducer},
		&startup.Func{
			Name:     "indexer",
			Requires: []string{"database", "search", "redis"},
			OnStart:  a.startIndexer,
			OnStop:   a.stopIndexer,
		},
		&startup.Func{
			Name:     "kafka-consumer",
			Requires: []string{"indexer"},
			OnStart:  a.startConsumer,
			OnStop:   a.stopConsumer,
		},
		&startup.Func{
			Name:     "http",
			Requires: []string{"indexer", "kafka-producer"},
			OnStart:  a.startHTTP,
			OnStop:   a.stopHTTP,
		},
	}
	return deps
}

func (a *app) startDatabase(ctx context.Context) error {
	db, err := database.Connect(ctx, database.PoolConfig{
		Driver:          a.cfg.DatabaseDriver,
		DSN:             a.cfg.DatabaseDSN(),
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return err
	}

	migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(a.cfg.DatabaseName, db.DB); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	a.db = db
	a.health.AddCheck("database", db.PingContext)
	return nil
}

func (a *app) stopDatabase(context.Context) error {
	return a.db.Close()
}

func (a *app) startSearch(ctx context.Context) error {
	a.search = searchindex.NewClient(searchindex.Config{
		Host:    a.cfg.SearchHost,
		APIKey:  a.cfg.SearchAPIKey,
		Timeout: a.cfg.SearchTimeout,
		Indexes: map[models.EntityType]string{
			models.EntityTypeProduct:  a.cfg.SearchProductsIndex,
			models.EntityTypeCategory: a.cfg.SearchCategoriesIndex,
			models.EntityTypeBrand:    a.cfg.SearchBrandsIndex,
		},
		WaitForTasks: a.cfg.SearchWaitForTasks,
	}, a.logger)

	if err := a.search.Health(ctx); err != nil {
		return err
	}

	// loaded even when not applied; the storefront filters only on declared attributes
	settings, err := searchindex.LoadSettings(a.cfg.SearchSettingsFilePath)
	if err != nil {
		return err
	}
	a.settings = settings

	if a.cfg.SearchApplySettings {
		if err := a.search.ApplySettings(ctx, settings); err != nil {
			return err
		}
	}

	a.health.AddCheck("search", a.search.Health)
	return nil
}

func (a *app) startRedis(ctx context.Context) error {
	if !a.cfg.RedisEnabled {
		a.logger.Info("Redis disabled, failed index events will not be dead-lettered")
		return nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		Host:     a.cfg.RedisHost,
		Port:     a.cfg.RedisPort,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
		PoolSize: a.cfg.RedisPoolSize,
	}, a.logger)
	if err != nil {
		return err
	}

	a.redis = client
	a.dlq = redis.NewDeadLetterQueue(client, a.cfg.RedisDLQStream, a.logger)
	a.health.AddOptionalCheck("redis", client.Ping)
	return nil
}

func (a *app) stopRedis(context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *app) startProducer(context.Context) error {
	if !a.cfg.KafkaProducerEnabled {
		return nil
	}
	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaCMSTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)
	return nil
}

func (a *app) stopProducer(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *app) startIndexer(context.Context) error {
	evaluator := expressions.NewEvaluator()
	collections := map[models.EntityType]string{
		models.EntityTypeProduct:  a.cfg.CMSProductCollection,
		models.EntityTypeCategory: a.cfg.CMSCategoryCollection,
		models.EntityTypeBrand:    a.cfg.CMSBrandCollection,
	}

	cmsHTTP := httpclient.NewClient(httpclient.Config{
		Upstream:    "cms",
		BaseURL:     a.cfg.CMSBaseURL,
		BearerToken: a.cfg.CMSAPIToken,
		Timeout:     a.cfg.CMSTimeout,
	}, a.logger)
	enrichments := cms.NewClient(cmsHTTP, cms.Config{
		Collections:     collections,
		ForeignKeyField: a.cfg.CMSForeignKeyField,
	}, evaluator, a.logger)

	webhooks, err := cms.NewWebhookParser(evaluator, collections, a.cfg.CMSWebhookForeignKeyExp)
	if err != nil {
		return err
	}

	a.commerce = commerce.NewRepository(a.db, a.logger)
	a.runs = syncrun.NewRepository(a.db, a.logger)
	builder := indexsync.NewBuilder(a.commerce, enrichments)

	a.engine = indexsync.NewEngine(a.commerce, a.search, builder, a.runs, a.logger, indexsync.Options{
		DefaultLimit: a.cfg.SyncDefaultLimit,
		MaxLimit:     a.cfg.SyncMaxLimit,
		Concurrency:  a.cfg.SyncConcurrency,
	})

	var deadLetters indexer.DeadLetters
	if a.dlq != nil {
		deadLetters = a.dlq
	}
	a.indexer = indexer.NewIndexer(a.commerce, a.search, builder, deadLetters, a.logger)
	a.webhooks = webhooks
	return nil
}

func (a *app) stopIndexer(context.Context) error {
	a.indexer.Wait()
	return nil
}

func (a *app) startConsumer(ctx context.Context) error {
	if !a.cfg.KafkaConsumerEnabled {
		return nil
	}
	a.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       a.cfg.KafkaBrokers,
		Topics:        []string{a.cfg.KafkaCommerceTopic, a.cfg.KafkaCMSTopic},
		ConsumerGroup: a.cfg.KafkaConsumerGroup,
	}, a.logger, a.handleMessage)
	// the consume loop must outlive the startup context
	return a.consumer.Start(context.WithoutCancel(ctx))
}

func (a *app) stopConsumer(context.Context) error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Stop()
}

// handleMessage indexes one stream event. Unparseable messages are logged and
// committed; indexing failures land in the dead letter stream.
func (a *app) handleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	event, err := msg.ParseEvent()
	if err != nil {
		a.logger.WithContext(ctx).WithError(err).WithField("topic", msg.Topic).Warn("Skipping unparseable event")
		return nil
	}
	if !a.indexer.Supports(event.Name) {
		a.logger.WithContext(ctx).WithField("event", event.Name).Debug("Skipping unsupported event")
		return nil
	}
	a.indexer.Handle(ctx, event)
	return nil
}

func (a *app) startHTTP(ctx context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))

	a.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	filterable := a.settings[models.EntityTypeProduct].FilterableAttributes
	search.NewHandler(a.search, filterable, a.logger).RegisterRoutes(api)

	var publisher webhook.Publisher
	if a.producer != nil {
		publisher = a.producer
	}
	webhooks := webhook.NewHandler(a.webhooks, publisher, a.indexer, a.cfg.CMSWebhookSecret, a.logger)
	webhooks.RegisterRoutes(api)

	admin := e.Group("/api/v1")
	if a.cfg.AuthEnabled {
		auth, err := middleware.Authentication(ctx, a.logger, middleware.AuthConfig{
			IssuerURL: a.cfg.AuthIssuerURL,
			ClientID:  a.cfg.AuthClientID,
			AdminRole: a.cfg.AuthAdminRole,
		})
		if err != nil {
			return err
		}
		admin.Use(auth)
	}
	syncapi.NewHandler(a.engine, a.runs, a.logger).RegisterRoutes(admin)
	webhooks.RegisterAdminRoutes(admin)
	if a.dlq != nil {
		dlq.NewHandler(a.dlq, a.indexer.Process, a.logger).RegisterRoutes(admin)
	}

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server stopped")
		}
	}()
	return nil
}

func (a *app) stopHTTP(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
