// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf = Default()

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Corpus        CorpusConfig        `mapstructure:"corpus"`
	Rating        RatingConfig        `mapstructure:"rating"`
	Session       SessionConfig       `mapstructure:"session"`
	Filter        FilterConfig        `mapstructure:"filter"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Recommend     RecommendConfig     `mapstructure:"recommend"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置，名字描述表存放在这里。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置，仅在 worker.queue_driver=kafka 时使用。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。名字向量索引即向量相似度服务。
type ElasticsearchConfig struct {
	Addresses  string        `mapstructure:"addresses"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	IndexName  string        `mapstructure:"index_name"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	// 熔断器：连续失败次数达到阈值后在 BreakerTimeout 内直接失败
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，语料文件可以从这里读取。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey            string              `mapstructure:"api_key"`
	BaseURL           string              `mapstructure:"base_url"`
	Model             string              `mapstructure:"model"`
	Timeout           time.Duration       `mapstructure:"timeout"`
	MaxRetries        int                 `mapstructure:"max_retries"`
	PromptTokenBudget int                 `mapstructure:"prompt_token_budget"`
	Generation        LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// CorpusConfig 描述静态语料（评分、年度频率、相似名字、名字向量）的位置。
type CorpusConfig struct {
	Source  string `mapstructure:"source"` // local 或 minio
	Dir     string `mapstructure:"dir"`
	Prefix  string `mapstructure:"prefix"`
	EndYear int    `mapstructure:"end_year"`
	// SeedVectors 为 true 时，若名字向量索引为空则从 name_embeddings.jsonl 导入
	SeedVectors bool `mapstructure:"seed_vectors"`
}

// RatingConfig 评分模型参数。
type RatingConfig struct {
	MinVotes      int     `mapstructure:"min_votes"`
	PopularPool   int     `mapstructure:"popular_pool"`
	Clamp         float64 `mapstructure:"clamp"`
	MinScore      float64 `mapstructure:"min_score"`
	ReasonCeiling float64 `mapstructure:"reason_ceiling"`
}

// SessionConfig 会话存储参数。
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxSentiments int           `mapstructure:"max_sentiments"`
	MaxDisplayed  int           `mapstructure:"max_displayed"`
	JobQueueKey   string        `mapstructure:"job_queue_key"`
}

// FilterConfig 过滤流水线参数。
type FilterConfig struct {
	AvoidNeighbors  int     `mapstructure:"avoid_neighbors"`
	AvoidSimilarity float64 `mapstructure:"avoid_similarity"`
}

// WorkerConfig 后台推荐理由生成 worker 的参数。
type WorkerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	QueueDriver string        `mapstructure:"queue_driver"` // redis 或 kafka
	PopTimeout  time.Duration `mapstructure:"pop_timeout"`
	MaxInFlight int64         `mapstructure:"max_in_flight"`
	GroupSize   int           `mapstructure:"group_size"`
}

// RecommendConfig 推荐流程参数。
type RecommendConfig struct {
	DefaultCount    int `mapstructure:"default_count"`
	MaxCount        int `mapstructure:"max_count"`
	SourceFanout    int `mapstructure:"source_fanout"`
	SiblingMinQuery int `mapstructure:"sibling_min_query"`
}

// Default 返回所有引擎参数的默认值，未提供配置文件时（例如测试）也能直接使用。
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8081", Mode: "release"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Redis: RedisConfig{Addr: "127.0.0.1:6379", PoolSize: 20},
		},
		Kafka: KafkaConfig{Topic: "name-reason-jobs", GroupID: "name-smart-go-reason-worker"},
		Elasticsearch: ElasticsearchConfig{
			IndexName:       "name_vectors",
			Dimensions:      1536,
			Timeout:         time.Second,
			MaxRetries:      2,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-ada-002",
			Timeout:    time.Second,
			MaxRetries: 2,
		},
		LLM: LLMConfig{
			Model:             "gpt-3.5-turbo-1106",
			Timeout:           60 * time.Second,
			MaxRetries:        5,
			PromptTokenBudget: 16000,
		},
		Corpus: CorpusConfig{Source: "local", Dir: "./data", EndYear: 2022},
		Rating: RatingConfig{
			MinVotes:      20,
			PopularPool:   5000,
			Clamp:         2.0,
			MinScore:      1.0,
			ReasonCeiling: 0.4,
		},
		Session: SessionConfig{
			TTL:           14 * 24 * time.Hour,
			MaxSentiments: 100,
			MaxDisplayed:  100,
			JobQueueKey:   "reason_job_que",
		},
		Filter: FilterConfig{AvoidNeighbors: 5, AvoidSimilarity: 0.9},
		Worker: WorkerConfig{
			Enabled:     true,
			QueueDriver: "redis",
			PopTimeout:  15 * time.Minute,
			MaxInFlight: 8,
			GroupSize:   3,
		},
		Recommend: RecommendConfig{
			DefaultCount:    20,
			MaxCount:        100,
			SourceFanout:    10,
			SiblingMinQuery: 20,
		},
	}
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并覆盖到默认值之上。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	conf := Default()
	if err := viper.Unmarshal(&conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
	Conf = conf
}
