package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appoutbox "petadopt/internal/app/outbox"
	chatservice "petadopt/internal/app/services/chat"
	"petadopt/internal/app/uow"
	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
	"petadopt/internal/infra/broker/kafka"
	"petadopt/internal/infra/config"
	mongostore "petadopt/internal/infra/db/mongo"
	ginserver "petadopt/internal/infra/http/gin"
	"petadopt/internal/infra/obs"
	infraoutbox "petadopt/internal/infra/outbox"
	"petadopt/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger := obs.NewLogger("dev")
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if cfg.FixturesPath != "" {
		if err := loadFixtures(ctx, cfg.FixturesPath, app.users, app.listings, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
	}

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	users    domainuser.Repository
	listings domainlistings.Repository
	worker   *infraoutbox.Worker
	ready    func() error
	mongo    *mongostore.Client
	producer *kafka.Producer
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	var (
		factory uow.UoWFactory
		box     appoutbox.Outbox
		app     = &application{ready: func() error { return nil }}
	)

	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		app.mongo = client
		app.ready = func() error { return client.Ping(context.Background()) }
		app.users = mongostore.NewUserRepository(client.DB)
		app.listings = mongostore.NewListingRepository(client.DB)
		factory = mongostore.Factory{
			DB:                client.DB,
			UsersRepo:         app.users,
			ListingsRepo:      app.listings,
			ConversationsRepo: mongostore.NewConversationRepository(client.DB),
			MessagesRepo:      mongostore.NewMessageRepository(client.DB),
		}
		store := infraoutbox.NewStore(client.DB)
		box = store
		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return nil, fmt.Errorf("kafka producer: %w", err)
			}
			app.producer = producer
			app.worker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Logger:      logger,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		} else {
			logger.Warn("no kafka brokers configured, chat events stay in the outbox")
		}
	case config.StorageMemory:
		app.users = memory.NewUserRepository()
		app.listings = memory.NewListingRepository()
		factory = memory.Factory{
			UsersRepo:         app.users,
			ListingsRepo:      app.listings,
			ConversationsRepo: memory.NewConversationRepository(),
			MessagesRepo:      memory.NewMessageRepository(),
		}
		box = memory.NewOutbox()
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
	}

	service := &chatservice.Service{
		UoWFactory: factory,
		Outbox:     box,
		Encoder:    appoutbox.JSONEventEncoder{},
		Logger:     logger,
	}
	app.handlers = ginserver.Handlers{
		Chat: ginserver.ChatHandler{Chat: service, Logger: logger},
	}
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Error("kafka producer close failed", "error", err)
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Close(ctx); err != nil {
			logger.Error("mongo disconnect failed", "error", err)
		}
	}
}

type fixtureFile struct {
	Users    []userFixture    `json:"users"`
	Listings []listingFixture `json:"listings"`
}

type userFixture struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	IsShelter bool   `json:"is_shelter"`
}

type listingFixture struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Title       string `json:"title"`
	Species     string `json:"species"`
	Breed       string `json:"breed"`
	PetName     string `json:"pet_name"`
	Age         int    `json:"age"`
	Description string `json:"description"`
	PhotoURL    string `json:"photo_url"`
}

// loadFixtures seeds the user directory and listing store so the messaging
// endpoints are exercisable without the account/listing CRUD service.
func loadFixtures(ctx context.Context, path string, users domainuser.Repository, listings domainlistings.Repository, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures.Users {
		usr, err := domainuser.NewUser(domainuser.CreateParams{
			ID:        domainuser.ID(fx.ID),
			Email:     fx.Email,
			IsShelter: fx.IsShelter,
			CreatedAt: now,
		})
		if err != nil {
			logger.Error("user fixture invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := users.Save(ctx, usr); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
			continue
		}
		logger.Info("user fixture imported", "user_id", usr.ID)
	}
	for _, fx := range fixtures.Listings {
		listing, err := domainlistings.NewListing(domainlistings.CreateParams{
			ID:          domainlistings.ListingID(fx.ID),
			Owner:       domainuser.ID(fx.Owner),
			Title:       fx.Title,
			Species:     fx.Species,
			Breed:       fx.Breed,
			PetName:     fx.PetName,
			Age:         fx.Age,
			Description: fx.Description,
			PhotoURL:    fx.PhotoURL,
			CreatedAt:   now,
		})
		if err != nil {
			logger.Error("listing fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := listings.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", listing.ID)
	}
	return nil
}
