package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RiskLens/internal/domain/repository"
	"RiskLens/internal/domain/service"
	"RiskLens/internal/handler/api"
	mid "RiskLens/internal/middleware"
	internalrepo "RiskLens/internal/repository"
	icache "RiskLens/internal/service/cache"
	"RiskLens/internal/service/marketdata"
	"RiskLens/internal/services/alerts"
	"RiskLens/internal/services/backtest"
	"RiskLens/internal/services/features"
	"RiskLens/internal/services/oracle"
	"RiskLens/internal/services/scoring"
	"RiskLens/internal/usecase"
	pkgcache "RiskLens/pkg/cache"
	pkgch "RiskLens/pkg/clickhouse"
	"RiskLens/pkg/config"
	pkgkafka "RiskLens/pkg/kafka"
	applogger "RiskLens/pkg/logger"
	"RiskLens/pkg/metrics"
	"RiskLens/pkg/queue"
	"RiskLens/pkg/server"
	"RiskLens/pkg/util"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ddl := make([]string, 0, len(internalrepo.BarSchema)+len(internalrepo.ScoreSchema))
	ddl = append(ddl, internalrepo.BarSchema...)
	ddl = append(ddl, internalrepo.ScoreSchema...)
	if err := client.InitSchema(ctx, ddl); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBarStorage creates the ClickHouse write side for bars.
func ProvideBarStorage(chClient *pkgch.Client) repository.Storage {
	return internalrepo.NewClickHouseBarStorage(chClient)
}

// ProvideBarStore creates the ClickHouse read side for bars.
func ProvideBarStore(chClient *pkgch.Client, l *applogger.Logger) repository.BarStore {
	return internalrepo.NewClickHouseBarStore(chClient, l)
}

// ProvideScoreStore creates the score/alert history store.
func ProvideScoreStore(chClient *pkgch.Client, l *applogger.Logger) *internalrepo.ClickHouseScoreStore {
	return internalrepo.NewClickHouseScoreStore(chClient, l)
}

func ProvideScoreReader(s *internalrepo.ClickHouseScoreStore) repository.ScoreStore { return s }

func ProvideAlertStore(s *internalrepo.ClickHouseScoreStore) repository.AlertStore { return s }

// ProvideBarPublisher creates the Kafka publisher for ingested bars.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.BarsTopic)
}

// ProvideAlertSink creates the Kafka alert publisher, or nil when no
// alerts topic is configured.
func ProvideAlertSink(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertSink {
	if cfg.Kafka.AlertsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaBarsHandler registers the handler for the bars topic.
func ProvideKafkaBarsHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.BarsTopic, store, metrics)
}

// ProvideMarketStream creates the provider WebSocket stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return marketdata.New(
		cfg.MarketData.APIKey,
		cfg.MarketData.WebSocketURL,
		cfg.MarketData.Symbols,
		cfg.MarketData.ReconnectDelay,
		cfg.MarketData.PingInterval,
		l,
	)
}

// ProvideBarProcessor creates the bar processor use case.
func ProvideBarProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.BarProcessor {
	return usecase.NewBarProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideBarCollector creates the bar collector use case.
func ProvideBarCollector(
	stream repository.MarketStream,
	processor *usecase.BarProcessor,
	metrics repository.Metrics,
) *usecase.BarCollector {
	// Build middleware pipeline between WebSocket and the backend
	pipe := mid.NewIngestPipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewBarCollector(stream, processor, metrics, pipe)
}

// ProvideBackfiller creates the cold-start history backfiller, or nil
// when no REST endpoint is configured. The benchmark series is included
// so beta and backtest overlays have data on first run.
func ProvideBackfiller(cfg *config.Config, proc *usecase.BarProcessor, l *applogger.Logger) *usecase.Backfiller {
	if cfg.MarketData.RestURL == "" {
		return nil
	}
	symbols := append([]string{}, cfg.MarketData.Symbols...)
	if cfg.Risk.BenchmarkSymbol != "" {
		symbols = append(symbols, cfg.Risk.BenchmarkSymbol)
	}
	source := marketdata.NewHistoryClient(cfg.MarketData.RestURL, cfg.MarketData.APIKey, cfg.MarketData.RequestTimeout)
	return usecase.NewBackfiller(source, proc, symbols, cfg.MarketData.BackfillDays, l)
}

// ProvideOracle loads the offline training artifacts.
func ProvideOracle(cfg *config.Config, l *applogger.Logger) *oracle.Artifact {
	return oracle.Load(oracle.Config{
		ModelPath:        cfg.Oracle.ModelPath,
		ExplanationsPath: cfg.Oracle.ExplanationsPath,
		VolForecastsPath: cfg.Oracle.VolForecastsPath,
		SentimentPath:    cfg.Oracle.SentimentPath,
	}, l)
}

func ProvideRiskOracle(a *oracle.Artifact) service.RiskOracle { return a }

func ProvideVolForecaster(a *oracle.Artifact) service.VolForecaster { return a }

func ProvideSentimentProvider(a *oracle.Artifact) service.SentimentProvider { return a }

// ProvideSnapshotCache creates the Redis-backed scoring snapshot cache,
// or nil when caching is disabled (the in-memory run pointer suffices for
// a single instance).
func ProvideSnapshotCache(cfg *config.Config) pkgcache.Service {
	if !cfg.Redis.CacheEnabled {
		return nil
	}
	host := cfg.Redis.Addr
	port := 6379
	if i := strings.LastIndex(cfg.Redis.Addr, ":"); i >= 0 {
		host = cfg.Redis.Addr[:i]
		port = util.ParseIntDefault(cfg.Redis.Addr[i+1:], 6379)
	}
	c, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil
	}
	return c
}

// ProvideScoringPipeline assembles the full scoring pass.
func ProvideScoringPipeline(
	cfg *config.Config,
	bars repository.BarStore,
	scoreStore repository.ScoreStore,
	alertStore repository.AlertStore,
	alertSink repository.AlertSink,
	sentiment service.SentimentProvider,
	riskOracle service.RiskOracle,
	snapshot pkgcache.Service,
	l *applogger.Logger,
) *usecase.ScoringPipeline {
	weights := scoring.Weights{
		Volatility: cfg.Risk.Weights.Volatility,
		Drawdown:   cfg.Risk.Weights.Drawdown,
		Sentiment:  cfg.Risk.Weights.Sentiment,
		Liquidity:  cfg.Risk.Weights.Liquidity,
	}
	if weights == (scoring.Weights{}) {
		weights = scoring.DefaultWeights()
	}

	spike := alerts.SpikeConfig{
		ChangePctOver: cfg.Risk.Spike.ChangePctOver,
		ChangeOver:    cfg.Risk.Spike.ChangeOver,
		HighPctAt:     cfg.Risk.Spike.HighPctAt,
	}
	if spike == (alerts.SpikeConfig{}) {
		spike = alerts.DefaultSpikeConfig()
	}

	p := usecase.NewScoringPipeline(
		usecase.PipelineConfig{
			BenchmarkSymbol: cfg.Risk.BenchmarkSymbol,
			LookbackBars:    cfg.Risk.LookbackBars,
			Workers:         cfg.Risk.Workers,
		},
		bars,
		scoreStore,
		alertStore,
		alertSink,
		sentiment,
		features.NewExtractor(features.DefaultConfig(), l),
		scoring.NewNormalizer(scoring.DefaultNormalizerConfig()),
		scoring.NewScorer(riskOracle, weights, l),
		scoring.NewClassifier(scoring.DefaultThresholds()),
		alerts.NewDetector(spike, l),
		l,
	)
	if snapshot != nil {
		p.SetSnapshotCache(snapshot)
	}
	return p
}

// ProvideRedisClient creates the shared Redis client.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideRefreshJob creates the queued refresh job.
func ProvideRefreshJob(pipeline *usecase.ScoringPipeline, l *applogger.Logger) *usecase.RefreshJob {
	return usecase.NewRefreshJob(pipeline, l)
}

// ProvideRefreshQueue creates the Redis-backed refresh queue consuming
// the refresh job.
func ProvideRefreshQueue(cfg *config.Config, client *redis.Client, job *usecase.RefreshJob, l *applogger.Logger) *queue.RedisQueue {
	qcfg := &queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		QueueSize:  cfg.Redis.Queue.QueueSize,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}
	opts := []queue.RedisQueueOption{}
	if cfg.Redis.Queue.KeyPrefix != "" {
		opts = append(opts, queue.WithKeyPrefix(cfg.Redis.Queue.KeyPrefix))
	}
	return queue.NewRedisQueue(l, qcfg, client, queue.ModeProducerConsumer, opts...)
}

// ProvideRefreshScheduler creates the periodic refresh trigger.
func ProvideRefreshScheduler(q *queue.RedisQueue, cfg *config.Config, l *applogger.Logger) *usecase.RefreshScheduler {
	return usecase.NewRefreshScheduler(q, cfg.Risk.RefreshInterval, l)
}

// ProvideBacktestRunner creates the backtest use case.
func ProvideBacktestRunner(bars repository.BarStore, scores repository.ScoreStore, l *applogger.Logger) *usecase.BacktestRunner {
	return usecase.NewBacktestRunner(bars, scores, backtest.NewEngine(l), backtest.NewAnalyzer(), l)
}

// ProvideRiskHandler creates the HTTP API handler with cache wiring.
func ProvideRiskHandler(
	cfg *config.Config,
	l *applogger.Logger,
	pipeline *usecase.ScoringPipeline,
	alertStore repository.AlertStore,
	runner *usecase.BacktestRunner,
	scheduler *usecase.RefreshScheduler,
	riskOracle service.RiskOracle,
	vol service.VolForecaster,
	storage repository.Storage,
) *api.RiskEchoHandler {
	h := api.NewRiskEchoHandler(l, pipeline, alertStore, runner, scheduler, riskOracle, vol)
	if cfg.Redis.CacheEnabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	h.SetStorage(storage)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBarsHandler,
	chClient *pkgch.Client,
	refreshQueue *queue.RedisQueue,
	job *usecase.RefreshJob,
	scheduler *usecase.RefreshScheduler,
	backfiller *usecase.Backfiller,
	handler *api.RiskEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if refreshQueue != nil {
		refreshQueue.RegisterJob(job)
	}
	return server.New(cfg, l, collector, consumer, kh, chClient, refreshQueue, scheduler, backfiller, handler)
}
