package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"rentboard/internal/app/idempotency"
	appoutbox "rentboard/internal/app/outbox"
	"rentboard/internal/app/policies"
	authsvc "rentboard/internal/app/services/auth"
	"rentboard/internal/app/services/catalog"
	"rentboard/internal/app/services/inbox"
	"rentboard/internal/app/services/notifications"
	domainauth "rentboard/internal/domain/auth"
	domainlistings "rentboard/internal/domain/listings"
	"rentboard/internal/domain/messaging"
	domainuser "rentboard/internal/domain/user"
	"rentboard/internal/infra/broker/kafka"
	"rentboard/internal/infra/config"
	mongostore "rentboard/internal/infra/db/mongo"
	ginserver "rentboard/internal/infra/http/gin"
	infrainbox "rentboard/internal/infra/inbox"
	"rentboard/internal/infra/notify"
	"rentboard/internal/infra/obs"
	infraoutbox "rentboard/internal/infra/outbox"
	"rentboard/internal/infra/security"
	"rentboard/internal/infra/storage/memory"
	"rentboard/internal/infra/storage/s3"
	"rentboard/internal/infra/storage/scylla"
)

const notificationsGroup = "rentboard-notifications"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		app.close(logger)
		os.Exit(1)
	}
	defer app.close(logger)

	if cfg.SeedDemo {
		path := getenv("DEMO_FIXTURES", defaultFixturesPath())
		if err := app.loadDemoFixtures(ctx, path, logger); err != nil {
			logger.Warn("demo fixtures load failed", "error", err, "path", path)
		}
	}

	var wg sync.WaitGroup
	for _, task := range app.background {
		wg.Add(1)
		go func(task backgroundTask) {
			defer wg.Done()
			if err := task.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task stopped", "task", task.name, "error", err)
			}
		}(task)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageBackend, "messages", cfg.MessageStore)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
		wg.Wait()
		app.close(logger)
		os.Exit(1)
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

type backgroundTask struct {
	name string
	run  func(ctx context.Context) error
}

type application struct {
	handlers   ginserver.Handlers
	health     obs.HealthHandlers
	background []backgroundTask
	closers    []func(ctx context.Context) error
	repos      struct {
		users     domainuser.Repository
		listings  domainlistings.Repository
		messages  messaging.Repository
		passwords authsvc.PasswordHasher
	}
	closeOnce sync.Once
}

func buildApplication(cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}
	checks := map[string]obs.Check{}

	var (
		users     domainuser.Repository
		sessions  domainauth.SessionStore
		listings  domainlistings.Repository
		messages  messaging.Repository
		idemStore idempotency.Store
		mongoDB   *mongostore.Client
	)

	connectMongo := func() (*mongostore.Client, error) {
		if mongoDB != nil {
			return mongoDB, nil
		}
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		mongoDB = client
		checks["mongo"] = client.Ping
		app.closers = append(app.closers, client.Close)
		return client, nil
	}

	switch cfg.StorageBackend {
	case config.BackendMongo:
		client, err := connectMongo()
		if err != nil {
			return app, err
		}
		users = mongostore.NewUserRepository(client.DB)
		sessions = mongostore.NewSessionStore(client.DB)
		listings = mongostore.NewListingRepository(client.DB)
		idemStore = mongostore.NewIdempotencyStore(client.DB, 24*time.Hour)
	default:
		users = memory.NewUserRepository()
		sessions = memory.NewSessionStore()
		listings = memory.NewListingRepository()
		idemStore = memory.NewIdempotencyStore()
	}

	switch cfg.MessageStore {
	case config.BackendMongo:
		client, err := connectMongo()
		if err != nil {
			return app, err
		}
		messages = mongostore.NewMessageRepository(client.DB)
	case config.BackendScylla:
		session, err := scylla.NewSession(cfg, logger)
		if err != nil {
			return app, err
		}
		app.closers = append(app.closers, func(context.Context) error {
			session.Close()
			return nil
		})
		store := scylla.NewMessageStore(session, logger)
		checks["scylla"] = store.Ping
		messages = store
	default:
		messages = memory.NewMessageRepository()
	}

	formatter := infraoutbox.Formatter{TopicPrefix: cfg.KafkaTopicPrefix}
	var producer *kafka.Producer
	if cfg.KafkaEnabled() {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return app, err
		}
		producer = p
		app.closers = append(app.closers, func(context.Context) error { return p.Close() })
	}

	var box appoutbox.Outbox
	switch {
	case mongoDB != nil:
		store := infraoutbox.NewStore(mongoDB.DB)
		box = store
		if producer != nil {
			worker := &infraoutbox.Worker{
				Store:     store,
				Producer:  producer,
				Formatter: formatter,
				Logger:    logger,
			}
			app.background = append(app.background, backgroundTask{name: "outbox-relay", run: worker.Run})
		}
	case producer != nil:
		box = &infraoutbox.Direct{Producer: producer, Formatter: formatter, Logger: logger}
	default:
		box = &memory.Outbox{Logger: logger}
	}
	encoder := appoutbox.JSONEventEncoder{NewID: uuid.NewString}

	if producer != nil {
		var dedup policies.Deduplicator = memory.NewSeenStore()
		if mongoDB != nil {
			dedup = infrainbox.NewStore(mongoDB.DB, notificationsGroup)
		}
		notifier := &notifications.Service{
			Users:    users,
			Listings: listings,
			Notifier: notify.LogNotifier{Logger: logger},
			Dedup:    dedup,
			Logger:   logger,
		}
		consumer, err := kafka.NewConsumer(kafka.ConsumerOptions{
			Brokers: cfg.KafkaBrokers,
			Group:   notificationsGroup,
			Topics:  []string{formatter.TopicFor("message.sent")},
			Logger:  logger,
		}, kafka.MessageEvents{Sent: notifier})
		if err != nil {
			return app, err
		}
		app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
		app.background = append(app.background, backgroundTask{name: "notifications", run: consumer.Run})
	}

	var uploader catalog.Uploader = s3.NoopUploader{}
	if cfg.S3Enabled() {
		client, err := s3.NewClient(s3.Options{
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicEndpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			UseSSL:        cfg.S3UseSSL,
		}, logger)
		if err != nil {
			return app, err
		}
		checks["s3"] = client.Ping
		uploader = client
	}

	passwords := security.BcryptHasher{}
	authService := &authsvc.Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  passwords,
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	catalogService := &catalog.Service{
		Listings: listings,
		Users:    users,
		Uploader: uploader,
		Outbox:   box,
		Encoder:  encoder,
		Logger:   logger,
	}
	inboxService := &inbox.Service{
		Messages: messages,
		Listings: listings,
		Users:    users,
		Outbox:   box,
		Encoder:  encoder,
		Logger:   logger,
	}

	app.handlers = ginserver.Handlers{
		Auth:     ginserver.AuthHandler{Service: authService, Logger: logger},
		Listings: ginserver.ListingHandler{Service: catalogService, Logger: logger},
		Messages: ginserver.MessageHandler{
			Service:     inboxService,
			Idempotency: idemStore,
			Logger:      logger,
		},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	}
	app.health = obs.HealthHandlers{Checks: checks, Timeout: 2 * time.Second}
	if cfg.GRPCHealthAddr != "" {
		grpcHealth := obs.NewGRPCHealthServer(cfg.GRPCHealthAddr, app.health, logger)
		app.background = append(app.background, backgroundTask{name: "grpc-health", run: grpcHealth.Run})
	}

	app.repos.users = users
	app.repos.listings = listings
	app.repos.messages = messages
	app.repos.passwords = passwords
	return app, nil
}

// close releases connections in reverse order of creation. It is safe to call more than once.
func (a *application) close(logger *slog.Logger) {
	if a == nil {
		return
	}
	a.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](ctx); err != nil {
				logger.Warn("resource close failed", "error", err)
			}
		}
	})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
