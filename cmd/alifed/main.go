package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ALiFe-Chain/internal/agent"
	"ALiFe-Chain/internal/api"
	"ALiFe-Chain/internal/config"
	"ALiFe-Chain/internal/decision"
	"ALiFe-Chain/internal/decision/openrouter"
	"ALiFe-Chain/internal/lifecycle"
	"ALiFe-Chain/internal/observability/metrics"
	"ALiFe-Chain/internal/oracle"
	"ALiFe-Chain/internal/social"
	"ALiFe-Chain/internal/token"
	"ALiFe-Chain/internal/tools"
	"ALiFe-Chain/internal/wallet"
	"ALiFe-Chain/internal/web3/provider"
	"ALiFe-Chain/pkg/logger"
)

// main 是守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("alifed 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("ALIFE_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "alife.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logger.Level,
		Format:      cfg.Logger.Format,
		OutputPaths: cfg.Logger.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logger.Audit.Enabled,
			Path:       cfg.Logger.Audit.Path,
			MaxSizeMB:  cfg.Logger.Audit.MaxSizeMB,
			MaxBackups: cfg.Logger.Audit.MaxBackups,
			MaxAgeDays: cfg.Logger.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var store agent.Store
	switch cfg.Storage.Driver {
	case "", "memory":
		store = agent.NewMemoryStore()
	case "mysql":
		mysqlStore, err := agent.NewMySQLStore(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		store = mysqlStore
	default:
		return fmt.Errorf("未知的存储驱动: %s", cfg.Storage.Driver)
	}
	defer func() {
		if closer, ok := store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	var queue lifecycle.Queue
	switch cfg.Queue.Driver {
	case "", "memory":
		queue = lifecycle.NewMemoryQueue(1024)
	case "redis":
		redisQueue, err := lifecycle.NewRedisQueue(lifecycle.RedisQueueConfig{
			Address:  cfg.Queue.Redis.Address,
			Password: cfg.Queue.Redis.Password,
			DB:       cfg.Queue.Redis.DB,
			Queue:    cfg.Queue.Redis.Queue,
		})
		if err != nil {
			return err
		}
		queue = redisQueue
	case "rabbitmq":
		rabbitQueue, err := lifecycle.NewRabbitMQQueue(lifecycle.RabbitMQConfig{
			URL:      cfg.Queue.RabbitMQ.URL,
			Queue:    cfg.Queue.RabbitMQ.Queue,
			Prefetch: cfg.Queue.RabbitMQ.Prefetch,
			Durable:  cfg.Queue.RabbitMQ.Durable,
		})
		if err != nil {
			return err
		}
		queue = rabbitQueue
	default:
		return fmt.Errorf("未知的队列驱动: %s", cfg.Queue.Driver)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.L().Warn("关闭唤醒队列失败", "error", err)
		}
	}()

	chainRegistry, err := provider.NewRegistry(ctx, cfg.Web3)
	if err != nil {
		return err
	}
	defer chainRegistry.Close()
	chain := chainRegistry.Default()

	prices := oracle.NewService(nil,
		oracle.WithCacheTTL(time.Duration(cfg.Oracle.CacheTTLSeconds)*time.Second))
	valuer := oracle.NewValuer(chain, prices)

	sealer, err := wallet.NewSealerFromEnv(cfg.Wallet.EncryptionKeyEnv)
	if err != nil {
		return err
	}
	wallets := wallet.NewProvider(sealer)

	engine, err := createEngine(cfg)
	if err != nil {
		return err
	}

	var launcher agent.TokenLauncher
	if apiKey := secretFromEnv(cfg.Token.Launchpad.APIKeyEnv); apiKey != "" {
		tokenLauncher, err := token.NewLauncher(token.Config{
			APIKey:  apiKey,
			BaseURL: cfg.Token.Launchpad.BaseURL,
		})
		if err != nil {
			return err
		}
		launcher = tokenLauncher
	} else {
		logger.L().Warn("未配置发射台 API Key，智能体将以无代币状态创建")
	}

	var socialClient social.Client
	if apiKey := secretFromEnv(cfg.Social.Neynar.APIKeyEnv); apiKey != "" {
		neynar, err := social.NewNeynarClient(social.NeynarConfig{
			APIKey:  apiKey,
			BaseURL: cfg.Social.Neynar.BaseURL,
		})
		if err != nil {
			return err
		}
		socialClient = neynar
	} else {
		logger.L().Warn("未配置 Neynar API Key，社交身份工具不可用")
	}

	catalog, err := tools.LoadCatalog(cfg.Tools.CatalogPath)
	if err != nil {
		return err
	}

	policy := lifecycle.Policy{
		ActivationUSD: cfg.Lifecycle.ActivationUSD,
		DeathUSD:      cfg.Lifecycle.DeathUSD,
		TickInterval:  time.Duration(cfg.Lifecycle.TickIntervalSeconds) * time.Second,
		DailyBurnUSD:  cfg.Lifecycle.DailyBurnUSD,
	}

	treasury := lifecycle.NewTreasury(chain, wallets, prices)
	executors := lifecycle.NewExecutors(store, socialClient, catalog, treasury, nil)
	scheduler := lifecycle.NewScheduler(store, queue, valuer, policy)
	processor := lifecycle.NewProcessor(store, queue, engine, executors, valuer, catalog, policy,
		lifecycle.WithWorkerCount(cfg.Lifecycle.Workers),
		lifecycle.WithSocialClient(socialClient),
	)

	if cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.StartServer(ctx, cfg.Metrics.Address); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("指标服务异常退出", "error", err)
			}
		}()
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	go func() {
		if err := scheduler.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("调度器异常退出", "error", err)
		}
	}()
	go func() {
		if err := processor.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("思考处理器异常退出", "error", err)
		}
	}()

	service := agent.NewService(store, wallets, launcher, valuer)
	server := api.NewServer(cfg.Server.Address, service)
	return server.Start(ctx)
}

// createEngine 根据配置构造决策引擎。
func createEngine(cfg *config.Config) (decision.Engine, error) {
	switch cfg.LLM.Provider {
	case "", "openrouter":
		apiKey := secretFromEnv(cfg.LLM.OpenRouter.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("环境变量 %s 未提供 OpenRouter API Key", cfg.LLM.OpenRouter.APIKeyEnv)
		}
		return openrouter.NewClient(openrouter.Config{
			APIKey:  apiKey,
			BaseURL: cfg.LLM.OpenRouter.BaseURL,
			Model:   cfg.LLM.OpenRouter.Model,
			Timeout: time.Duration(cfg.LLM.OpenRouter.TimeoutSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("未知的决策引擎 provider: %s", cfg.LLM.Provider)
	}
}

func secretFromEnv(envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}
