package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"secondbrain/internal/ai"
	appsvc "secondbrain/internal/app"
	"secondbrain/internal/cache"
	"secondbrain/internal/config"
	"secondbrain/internal/extract"
	"secondbrain/internal/logger"
	"secondbrain/internal/pkg/webscrape"
	mysqlClient "secondbrain/internal/platform/mysql"
	rabbitmqClient "secondbrain/internal/platform/rabbitmq"
	redisClient "secondbrain/internal/platform/redis"
	"secondbrain/internal/rag"
	"secondbrain/internal/repository"
	"secondbrain/internal/vision"
	"secondbrain/internal/worker"
)

// Options selects which infrastructure New connects to. One-shot CLI
// commands skip Redis and RabbitMQ and write conversation messages directly.
type Options struct {
	Messaging bool
}

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	MessageWorker *worker.MessagePersistWorker
	Provider      ai.Provider
	Publisher     *rabbitmqClient.MessagePublisher
	Classifier    *vision.Classifier

	Documents     *repository.DocumentRepository
	Ingest        *appsvc.IngestService
	Query         *appsvc.QueryService
	DocumentSvc   *appsvc.DocumentService
	Conversations *appsvc.ConversationService
	Auth          *appsvc.AuthService

	StartedAt time.Time
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat, cfg.App.Env)

	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.connect(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.wire()
	return a, nil
}

func (a *App) connect(ctx context.Context, opts Options) error {
	cfg := a.Config

	db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.DefaultPool)
	if err != nil {
		return err
	}
	a.MySQL = db
	if err := mysqlClient.Migrate(db); err != nil {
		return err
	}

	provider, err := ai.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create ai provider failed: %w", err)
	}
	a.Provider = provider

	if _, err := os.Stat(cfg.Vision.ModelPath); err == nil {
		a.Classifier = vision.NewClassifier(cfg.Vision.ModelPath, cfg.Vision.LabelsPath, cfg.Vision.ONNXSharedLibPath, cfg.Vision.TopK)
	} else {
		log.Warn().Str("model_path", cfg.Vision.ModelPath).Msg("vision model not found, image uploads disabled")
	}

	if !opts.Messaging {
		return nil
	}

	if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
		return err
	}
	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MessagePersistQueue); err != nil {
		return err
	}

	a.MessageWorker = worker.NewMessagePersistWorker(a.MQConn, repository.NewMessageRepository(db), cfg.RabbitMQ.MessagePersistQueue)
	if err := a.MessageWorker.Start(ctx); err != nil {
		return fmt.Errorf("start message worker failed: %w", err)
	}
	return nil
}

func (a *App) wire() {
	cfg := a.Config

	a.Documents = repository.NewDocumentRepository(a.MySQL)
	messages := repository.NewMessageRepository(a.MySQL)
	conversations := repository.NewConversationRepository(a.MySQL)

	var (
		publisher appsvc.AsyncMessagePublisher
		history   appsvc.HistoryCache
	)
	if a.MQConn != nil {
		a.Publisher = rabbitmqClient.NewMessagePublisher(a.MQConn, cfg.RabbitMQ.MessagePersistQueue)
		publisher = a.Publisher
	}
	if a.Redis != nil {
		history = cache.NewHistoryCache(a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second)
	}
	a.Conversations = appsvc.NewConversationService(conversations, messages, publisher, history)

	chunker := rag.NewChunker(
		rag.WithChunkSize(cfg.Retrieval.ChunkSize),
		rag.WithOverlap(cfg.Retrieval.ChunkOverlap),
		rag.WithOverlapUnit(rag.OverlapUnit(cfg.Retrieval.OverlapUnit)),
	)
	var images extract.ImageDescriber
	if a.Classifier != nil {
		images = a.Classifier
	}
	scraper := webscrape.New(time.Duration(cfg.Ingest.WebTimeoutSeconds)*time.Second, cfg.Ingest.UserAgent)
	a.Ingest = appsvc.NewIngestService(a.Documents, chunker, a.Provider, extract.NewProcessor(a.Provider, images), scraper)

	retriever := rag.NewRetriever(a.Provider, a.Documents, rag.WithLimits(cfg.Retrieval.DefaultLimit, cfg.Retrieval.MaxLimit))
	a.Query = appsvc.NewQueryService(retriever, rag.NewAnswerGenerator(a.Provider), a.Conversations)
	a.DocumentSvc = appsvc.NewDocumentService(a.Documents)
	a.Auth = appsvc.NewAuthService(cfg.Auth.Enabled, cfg.Auth.PasswordHash, cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute)
}

func (a *App) Close() error {
	var errs []error
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Classifier != nil {
		a.Classifier.Close()
	}
	if closer, ok := a.Provider.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
