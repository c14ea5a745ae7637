package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/backend"
	"ledgerbot/internal/bot"
	"ledgerbot/internal/cache"
	"ledgerbot/internal/classifier"
	"ledgerbot/internal/cli"
	"ledgerbot/internal/config"
	"ledgerbot/internal/dedup"
	"ledgerbot/internal/i18n"
	"ledgerbot/internal/log"
	"ledgerbot/internal/middleware/ratelimit"
	"ledgerbot/internal/services"
)

const cacheSweepInterval = time.Minute

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	cli.Fatal(logger, "ledgerbot stopped", run(cfg, logger))
	logger.Info("ledgerbot stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err.Error())
		}
	}()

	texts, err := loadTexts(cfg)
	if err != nil {
		return err
	}

	cls, err := newClassifier(cfg)
	if err != nil {
		return err
	}

	resolverOpts := []services.ResolverOption{services.WithLogger(logger)}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without ledger events", log.FieldError, err.Error())
		} else {
			defer client.Close()
			resolverOpts = append(resolverOpts, services.WithPublisher(client))
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	caches := cache.NewManager(logger)
	filter, closeFilter, err := newDedupFilter(ctx, cfg, caches, logger)
	if err != nil {
		return err
	}
	defer closeFilter()

	var limiter *ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
		caches.Register(limiter)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	logger.Info("Authorized on Telegram", "account", api.Self.UserName)

	handler, err := bot.NewHandler(bot.Deps{
		API:        api,
		Classifier: cls,
		Resolver:   services.NewResolver(store.Store, resolverOpts...),
		Stats:      services.NewStatsAggregator(store.Store, loc),
		Balances:   store.Store,
		Dedup:      filter,
		Limiter:    limiter,
		Texts:      texts,
		Logger:     logger,
		// Updates accepted before shutdown finish under their own deadline.
		DrainTimeout: cfg.DrainTimeout,
	})
	if err != nil {
		return err
	}

	if err := bot.RegisterCommands(api, texts); err != nil {
		logger.Warn("Failed to register bot commands", log.FieldError, err.Error())
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	logger.Info("Starting ledgerbot",
		"backend", cfg.DataBackend,
		"classifier", cfg.ClassifierProvider,
		"dedup", cfg.DedupBackend,
		"max_concurrent_updates", cfg.MaxConcurrentUpdates)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return caches.Run(gctx, cacheSweepInterval)
	})
	g.Go(func() error {
		return handler.Run(gctx, updates, cfg.MaxConcurrentUpdates)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, draining updates")
		api.StopReceivingUpdates()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadTexts(cfg *config.Config) (*i18n.Texts, error) {
	if cfg.LocaleFile != "" {
		return i18n.LoadFile(cfg.LocaleFile)
	}
	return i18n.Load(cfg.Locale)
}

func newClassifier(cfg *config.Config) (classifier.Classifier, error) {
	prompt := classifier.DefaultPrompt()
	if cfg.ClassifierPromptFile != "" {
		p, err := classifier.LoadPrompt(cfg.ClassifierPromptFile)
		if err != nil {
			return nil, err
		}
		prompt = p
	}
	return classifier.New(classifier.Config{
		Provider:        cfg.ClassifierProvider,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		Prompt:          prompt,
		Timeout:         cfg.ClassifierTimeout,
	})
}

func newDedupFilter(ctx context.Context, cfg *config.Config, caches *cache.Manager, logger *log.Logger) (dedup.Filter, func(), error) {
	if cfg.DedupBackend != "redis" {
		filter := dedup.NewMemoryFilter(cfg.DedupWindow, dedup.WithLogger(logger))
		caches.Register(filter)
		return filter, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	filter := dedup.NewRedisFilter(client, cfg.DedupWindow, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := filter.Ping(pingCtx); err != nil {
		filter.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("Using Redis duplicate filter", "addr", cfg.RedisAddr, "window", cfg.DedupWindow.String())
	return filter, func() { filter.Close() }, nil
}
