package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	VectorDB VectorDBConfig `mapstructure:"vectordb"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Database DatabaseConfig `mapstructure:"database"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"` // 服务器主机
	Port int    `mapstructure:"port"` // 服务器端口
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// VectorDBConfig 向量数据库配置
type VectorDBConfig struct {
	Type     string `mapstructure:"type"`     // 向量数据库类型：memory 或 faiss
	Path     string `mapstructure:"path"`     // 索引文件路径
	Dim      int    `mapstructure:"dim"`      // 向量维度
	Distance string `mapstructure:"distance"` // 距离度量方式：cosine, l2, dot
}

// EmbedConfig 向量嵌入模型配置
type EmbedConfig struct {
	Provider   string `mapstructure:"provider"`   // 提供商：local 或 remote
	Model      string `mapstructure:"model"`      // 模型名称
	APIKey     string `mapstructure:"api_key"`    // API密钥（远程后端需要）
	Endpoint   string `mapstructure:"endpoint"`   // API端点
	BatchSize  int    `mapstructure:"batch_size"` // 批处理大小
	Dimensions int    `mapstructure:"dimensions"` // 向量维度
	MaxInput   int    `mapstructure:"max_input"`  // 单次输入字符窗口
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`         // 是否启用任务队列
	Type          string `mapstructure:"type"`           // 队列类型
	RedisAddr     string `mapstructure:"redis_addr"`     // Redis地址
	RedisPassword string `mapstructure:"redis_password"` // Redis密码
	RedisDB       int    `mapstructure:"redis_db"`       // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency"`    // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit"`    // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay"`    // 重试延迟(秒)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型: sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// AnalyzerConfig 分析管线配置
type AnalyzerConfig struct {
	MaxWorkers      int           `mapstructure:"max_workers"`      // 每批次并行处理的文档数
	BatchBudget     time.Duration `mapstructure:"batch_budget"`     // 批次墙钟预算
	TopSections     int           `mapstructure:"top_sections"`     // 入选章节数量
	TopSummaries    int           `mapstructure:"top_summaries"`    // 生成摘要的章节数量
	ChunkSize       int           `mapstructure:"chunk_size"`       // 嵌入分块大小
	ChunkOverlap    int           `mapstructure:"chunk_overlap"`    // 分块重叠大小
	SemanticWeight  float64       `mapstructure:"semantic_weight"`  // 语义相似度权重
	KeywordWeight   float64       `mapstructure:"keyword_weight"`   // 关键词权重
	ProximityWeight float64       `mapstructure:"proximity_weight"` // 邻近度权重
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`        // 日志级别
	File       string `mapstructure:"file"`         // 日志文件路径，空则输出到stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个日志文件大小上限
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的轮转文件数量
	MaxAgeDays int    `mapstructure:"max_age_days"` // 日志保留天数
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值并落盘一份
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			setDefaults(v)
			if mkErr := os.MkdirAll(filepath.Dir(configPath), 0755); mkErr == nil {
				if writeErr := v.WriteConfigAs(configPath); writeErr != nil {
					log.Printf("Warning: Could not write default config to %s: %v", configPath, writeErr)
				}
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setDefaults(v)

	// 支持环境变量覆盖，如 STORAGE_TYPE=minio
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expandEnvPlaceholders(&config)

	return &config, nil
}

// expandEnvPlaceholders 展开 ${VAR} 形式的敏感配置项
func expandEnvPlaceholders(cfg *Config) {
	expand := func(value string) string {
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
				return envVal
			}
		}
		return value
	}

	cfg.Embed.APIKey = expand(cfg.Embed.APIKey)
	cfg.Storage.AccessKey = expand(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expand(cfg.Storage.SecretKey)
	cfg.Cache.Password = expand(cfg.Cache.Password)
	cfg.Queue.RedisPassword = expand(cfg.Queue.RedisPassword)
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./uploads")
	v.SetDefault("storage.bucket", "docintel")
	v.SetDefault("storage.use_ssl", false)

	// 向量数据库默认配置
	v.SetDefault("vectordb.type", "memory")
	v.SetDefault("vectordb.path", "./data/index")
	v.SetDefault("vectordb.dim", 256)
	v.SetDefault("vectordb.distance", "cosine")

	// 嵌入默认配置
	v.SetDefault("embed.provider", "local")
	v.SetDefault("embed.model", "local-hash-v1")
	v.SetDefault("embed.batch_size", 16)
	v.SetDefault("embed.dimensions", 256)
	v.SetDefault("embed.max_input", 1000)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 3600)

	// 队列默认配置
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retry_limit", 2)
	v.SetDefault("queue.retry_delay", 30)

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/docintel.db")

	// 分析管线默认配置
	v.SetDefault("analyzer.max_workers", 4)
	v.SetDefault("analyzer.batch_budget", "60s")
	v.SetDefault("analyzer.top_sections", 20)
	v.SetDefault("analyzer.top_summaries", 10)
	v.SetDefault("analyzer.chunk_size", 1000)
	v.SetDefault("analyzer.chunk_overlap", 200)
	v.SetDefault("analyzer.semantic_weight", 0.6)
	v.SetDefault("analyzer.keyword_weight", 0.3)
	v.SetDefault("analyzer.proximity_weight", 0.1)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}
