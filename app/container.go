package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RezaEskandarii/jobstatus/client"
	"github.com/RezaEskandarii/jobstatus/internal/constants"
	"github.com/RezaEskandarii/jobstatus/internal/db"
	"github.com/RezaEskandarii/jobstatus/internal/lock"
	"github.com/RezaEskandarii/jobstatus/internal/message_broaker"
	"github.com/RezaEskandarii/jobstatus/internal/queue"
	"github.com/RezaEskandarii/jobstatus/internal/reconciler"
	"github.com/RezaEskandarii/jobstatus/internal/resolver"
	"github.com/RezaEskandarii/jobstatus/internal/retry"
	"github.com/RezaEskandarii/jobstatus/internal/store"
	"github.com/RezaEskandarii/jobstatus/internal/store/postgres"
	"github.com/RezaEskandarii/jobstatus/internal/tasks"
	"github.com/RezaEskandarii/jobstatus/internal/worker"
	"github.com/RezaEskandarii/jobstatus/types/config"
	"github.com/redis/go-redis/v9"
)

// channelBufferSize bounds job-ended events waiting for the reconciler.
const channelBufferSize = 1024

// Container holds all application dependencies. It is the single source of truth
// for dependency injection and ensures connections and services are created once.
type Container struct {
	Config *config.Config

	// Storage connections (created once, shared by all stores)
	DB    *sql.DB
	Redis *redis.Client

	Queue           *queue.RedisQueue
	JobHistoryStore store.JobHistoryStore
	Progress        *retry.RedisProgressRecorder

	// Infrastructure
	LockManager   lock.DistributedLockManager
	MessageBroker message_broaker.MessageBroker
	EventQueue    string

	JobHandler *worker.JobHandler
	Pool       *worker.Pool
	Resolver   *resolver.Resolver
	Reconciler *reconciler.Reconciler
	JobManager *client.JobManager
}

// NewContainer creates and wires all dependencies. Single entry point for DI.
// Call this once per application lifecycle.
// Pass optional WithDB, WithRedis, WithMessageBroker to inject connections for testing.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	opt := &containerConfig{}
	for _, o := range opts {
		o(opt)
	}

	database := opt.db
	if database == nil {
		var err error
		if database, err = initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
	}

	redisClient := opt.redis
	if redisClient == nil {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			database.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
	}

	broker, eventQueue, err := createMessageBroker(cfg, opt.broker)
	if err != nil {
		redisClient.Close()
		database.Close()
		return nil, fmt.Errorf("init message broker: %w", err)
	}

	redisQueue := queue.NewRedisQueue(redisClient, cfg.Redis.KeyPrefix, cfg.Worker.Queue, cfg.ResultTTL())
	historyStore := postgres.NewPostgresJobHistoryStore(database)
	progress := retry.NewRedisProgressRecorder(redisClient, cfg.Redis.KeyPrefix)

	jobHandler := worker.NewJobHandler()
	if err := registerTasks(jobHandler, tasks.New(retry.NewRunner(progress, redisQueue), cfg.Worker), opt.extraTasks); err != nil {
		broker.Close()
		redisClient.Close()
		database.Close()
		return nil, fmt.Errorf("register tasks: %w", err)
	}

	statusResolver := resolver.NewResolver(redisQueue, historyStore, cfg.Worker.ResultTimeout)

	return &Container{
		Config:          cfg,
		DB:              database,
		Redis:           redisClient,
		Queue:           redisQueue,
		JobHistoryStore: historyStore,
		Progress:        progress,
		LockManager:     lock.NewPostgresDistributedLockManager(database),
		MessageBroker:   broker,
		EventQueue:      eventQueue,
		JobHandler:      jobHandler,
		Pool:            worker.NewPool(redisQueue, jobHandler, broker, eventQueue, cfg.Instance, cfg.Worker),
		Resolver:        statusResolver,
		Reconciler:      reconciler.NewReconciler(statusResolver, historyStore, broker, eventQueue),
		JobManager:      client.NewJobManager(redisQueue, statusResolver, historyStore, progress, cfg.Worker.MaxTries),
	}, nil
}

// Migrate creates the job history schema under the migration lock.
func (c *Container) Migrate(ctx context.Context) error {
	return db.Init(ctx, c.DB, c.LockManager)
}

// Close releases every connection the container opened.
func (c *Container) Close() error {
	var errs []error
	if c.MessageBroker != nil {
		errs = append(errs, c.MessageBroker.Close())
	}
	errs = append(errs, c.Redis.Close(), c.JobHistoryStore.Close())
	return errors.Join(errs...)
}

func registerTasks(jobHandler *worker.JobHandler, builtin *tasks.Tasks, extra map[string]worker.HandlerFunc) error {
	if err := builtin.Register(jobHandler); err != nil {
		return err
	}
	for name, fn := range extra {
		if err := jobHandler.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// initDatabase opens the job history database based on config.
func initDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.StorageDriver {
	case config.Postgres:
		return db.Open(ctx, cfg.Postgres.ConnectionUrl)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %v", cfg.StorageDriver)
	}
}

func createMessageBroker(cfg *config.Config, injected message_broaker.MessageBroker) (message_broaker.MessageBroker, string, error) {
	eventQueue := constants.JobEndedQueue
	if cfg.MQDriver == config.RabbitMQ && cfg.Broker.RabbitMQ.Queue != "" {
		eventQueue = cfg.Broker.RabbitMQ.Queue
	}
	if injected != nil {
		return injected, eventQueue, nil
	}

	switch cfg.MQDriver {
	case config.RabbitMQ:
		rmq, err := message_broaker.NewRabbitMQ(
			cfg.Broker.RabbitMQ.URL,
			cfg.Broker.RabbitMQ.Exchange,
			eventQueue,
			cfg.Broker.RabbitMQ.RoutingKey,
		)
		if err != nil {
			return nil, "", fmt.Errorf("init rabbitmq: %w", err)
		}
		return rmq, eventQueue, nil
	case config.Channel:
		return message_broaker.NewChannelBroker(channelBufferSize), eventQueue, nil
	default:
		return nil, "", fmt.Errorf("unsupported message queue driver: %v", cfg.MQDriver)
	}
}
