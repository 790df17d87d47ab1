package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config 描述了服务在启动阶段需要加载的全部配置。
type Config struct {
	Server    ServerConfig    `json:"server"`
	Storage   StorageConfig   `json:"storage"`
	Queue     QueueConfig     `json:"queue"`
	LLM       LLMConfig       `json:"llm"`
	Web3      Web3Config      `json:"web3"`
	Oracle    OracleConfig    `json:"oracle"`
	Wallet    WalletConfig    `json:"wallet"`
	Social    SocialConfig    `json:"social"`
	Token     TokenConfig     `json:"token"`
	Lifecycle LifecycleConfig `json:"lifecycle"`
	Tools     ToolsConfig     `json:"tools"`
	Metrics   MetricsConfig   `json:"metrics"`
	Logger    LoggerConfig    `json:"logger"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// StorageConfig 描述智能体存储后端的连接信息。
// driver 支持 memory 与 mysql。
type StorageConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// QueueConfig 描述唤醒队列的驱动与连接信息。
// driver 支持 memory、redis 与 rabbitmq。
type QueueConfig struct {
	Driver   string         `json:"driver"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig 描述 Redis 队列的连接信息。
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Queue    string `json:"queue"`
}

// RabbitMQConfig 描述 RabbitMQ 队列的连接信息。
type RabbitMQConfig struct {
	URL      string `json:"url"`
	Queue    string `json:"queue"`
	Prefetch int    `json:"prefetch"`
	Durable  bool   `json:"durable"`
}

// LLMConfig 配置决策引擎的调用方式。API Key 永远不直接写进
// 配置文件，只记录存放它的环境变量名。
type LLMConfig struct {
	Provider   string           `json:"provider"`
	OpenRouter OpenRouterConfig `json:"openrouter"`
}

// OpenRouterConfig 描述通过 OpenRouter 聚合网关调用大模型的参数。
type OpenRouterConfig struct {
	APIKeyEnv      string `json:"api_key_env"`
	Model          string `json:"model"`
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Web3Config 包含访问区块链节点所需的 RPC 地址，
// 或者指向一份多链定义文件。
type Web3Config struct {
	RPCURL       string `json:"rpc_url"`
	DefaultChain string `json:"default_chain"`
	ChainConfig  string `json:"chain_config"`
}

// OracleConfig 控制价格预言机的缓存行为。
type OracleConfig struct {
	CacheTTLSeconds int `json:"cache_ttl_seconds"`
}

// WalletConfig 指定钱包加密密钥所在的环境变量。
type WalletConfig struct {
	EncryptionKeyEnv string `json:"encryption_key_env"`
}

// SocialConfig 描述社交网络提供方。
type SocialConfig struct {
	Neynar NeynarConfig `json:"neynar"`
}

// NeynarConfig 描述 Neynar 托管的 Farcaster API。
type NeynarConfig struct {
	APIKeyEnv string `json:"api_key_env"`
	BaseURL   string `json:"base_url"`
}

// TokenConfig 描述代币发射台。
type TokenConfig struct {
	Launchpad LaunchpadConfig `json:"launchpad"`
}

// LaunchpadConfig 描述发射台 HTTP API 的访问参数。
type LaunchpadConfig struct {
	APIKeyEnv string `json:"api_key_env"`
	BaseURL   string `json:"base_url"`
}

// LifecycleConfig 汇总生命周期的经济参数与调度参数。
type LifecycleConfig struct {
	ActivationUSD       float64 `json:"activation_usd"`
	DeathUSD            float64 `json:"death_usd"`
	TickIntervalSeconds int     `json:"tick_interval_seconds"`
	DailyBurnUSD        float64 `json:"daily_burn_usd"`
	Workers             int     `json:"workers"`
}

// ToolsConfig 指向工具目录文件，留空时使用内置目录。
type ToolsConfig struct {
	CatalogPath string `json:"catalog_path"`
}

// MetricsConfig 控制指标服务的监听地址，留空表示不启动。
type MetricsConfig struct {
	Address string `json:"address"`
}

// LoggerConfig 描述日志输出方式，映射到 pkg/logger 的配置。
type LoggerConfig struct {
	Level       string      `json:"level"`
	Format      string      `json:"format"`
	OutputPaths []string    `json:"output_paths"`
	Audit       AuditConfig `json:"audit"`
}

// AuditConfig 控制审计日志的滚动输出。
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}

	if c.Queue.Driver == "" {
		c.Queue.Driver = "memory"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openrouter"
	}
	if c.LLM.OpenRouter.APIKeyEnv == "" {
		c.LLM.OpenRouter.APIKeyEnv = "OPENROUTER_API_KEY"
	}

	if c.Wallet.EncryptionKeyEnv == "" {
		c.Wallet.EncryptionKeyEnv = "WALLET_ENCRYPTION_KEY"
	}
	if c.Social.Neynar.APIKeyEnv == "" {
		c.Social.Neynar.APIKeyEnv = "NEYNAR_API_KEY"
	}
	if c.Token.Launchpad.APIKeyEnv == "" {
		c.Token.Launchpad.APIKeyEnv = "LAUNCHPAD_API_KEY"
	}

	if c.Lifecycle.Workers <= 0 {
		c.Lifecycle.Workers = 4
	}

	if c.Tools.CatalogPath != "" && !filepath.IsAbs(c.Tools.CatalogPath) {
		c.Tools.CatalogPath = filepath.Join(baseDir, c.Tools.CatalogPath)
	}
	if c.Web3.ChainConfig != "" && !filepath.IsAbs(c.Web3.ChainConfig) {
		c.Web3.ChainConfig = filepath.Join(baseDir, c.Web3.ChainConfig)
	}
}
