// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
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

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// AnalysisConfig 存储提及检测与主题提取使用的全部分析表。
// 词典、线索短语和分类表作为配置注入而非编译进控制流，
// 以便将来在同一接口后替换为学习型模型。
type AnalysisConfig struct {
	// PositiveWords / NegativeWords 是情感词典；窗口内每次命中分别贡献 +0.1 / -0.1。
	PositiveWords []string `mapstructure:"positive_words"`
	NegativeWords []string `mapstructure:"negative_words"`
	// CueRules 按优先级排列，首个命中的规则决定提及类型。
	CueRules []CueRule `mapstructure:"cue_rules"`
	// Topics 是固定的主题分类表，各触发词组独立判定。
	Topics []TopicRule `mapstructure:"topics"`
	// ContextRadius 是提及上下文窗口在命中两侧各取的字符数。
	ContextRadius int `mapstructure:"context_radius"`
	// MaxMatchesPerTerm 限制单个检索词的最大命中数，防止病态输入拖垮扫描。
	MaxMatchesPerTerm int `mapstructure:"max_matches_per_term"`
	// DefaultConfidence 是所有提及统一携带的置信度占位值。
	DefaultConfidence float64 `mapstructure:"default_confidence"`
	// SimilarityThreshold 是创建关系边所需的最小 Jaccard 相似度（严格大于）。
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// LinkerCandidateLimit 限制关系链接阶段检索的候选对话数量。
	LinkerCandidateLimit int `mapstructure:"linker_candidate_limit"`
	// RejectInactiveTurns 为 true 时拒绝向已停用的对话追加轮次。
	RejectInactiveTurns bool `mapstructure:"reject_inactive_turns"`
	// StatsCacheTTLSeconds 是统计聚合结果在 Redis 中的缓存时长。
	StatsCacheTTLSeconds int `mapstructure:"stats_cache_ttl_seconds"`
}

// CueRule 是"窗口内包含任一线索短语则判定为指定提及类型"的一条规则。
type CueRule struct {
	Phrases []string `mapstructure:"phrases"`
	Type    string   `mapstructure:"type"`
}

// TopicRule 把一组触发子串映射为一个 (主题, 类别, 相关度) 三元组。
type TopicRule struct {
	Triggers  []string `mapstructure:"triggers"`
	Name      string   `mapstructure:"name"`
	Category  string   `mapstructure:"category"`
	Relevance float64  `mapstructure:"relevance"`
}

// DefaultAnalysis 返回内置的分析表。配置文件省略 analysis 段时使用。
func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		PositiveWords: []string{
			"great", "excellent", "good", "best", "amazing", "love",
			"recommend", "impressive", "reliable", "helpful",
		},
		NegativeWords: []string{
			"bad", "poor", "worst", "terrible", "hate", "avoid",
			"disappointing", "unreliable", "broken", "awful",
		},
		CueRules: []CueRule{
			{Phrases: []string{"recommend", "suggest", "should consider"}, Type: "recommendation"},
			{Phrases: []string{"compare", "versus", "vs", "better than"}, Type: "comparison"},
			{Phrases: []string{"similar to", "like", "such as"}, Type: "indirect"},
		},
		Topics: []TopicRule{
			{Triggers: []string{"ai", "artificial intelligence"}, Name: "Artificial Intelligence", Category: "Technology", Relevance: 0.9},
			{Triggers: []string{"software", "app"}, Name: "Software", Category: "Technology", Relevance: 0.8},
			{Triggers: []string{"marketing", "advertising"}, Name: "Marketing", Category: "Business", Relevance: 0.8},
			{Triggers: []string{"sales", "revenue"}, Name: "Sales", Category: "Business", Relevance: 0.8},
		},
		ContextRadius:        50,
		MaxMatchesPerTerm:    100,
		DefaultConfidence:    0.8,
		SimilarityThreshold:  0.7,
		LinkerCandidateLimit: 5,
		RejectInactiveTurns:  false,
		StatsCacheTTLSeconds: 300,
	}
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	// analysis 段缺失的条目回填内置默认表
	applyAnalysisDefaults(&Conf.Analysis)
}

// applyAnalysisDefaults 用内置默认值补齐缺失的 analysis 配置项。
func applyAnalysisDefaults(a *AnalysisConfig) {
	def := DefaultAnalysis()
	if len(a.PositiveWords) == 0 {
		a.PositiveWords = def.PositiveWords
	}
	if len(a.NegativeWords) == 0 {
		a.NegativeWords = def.NegativeWords
	}
	if len(a.CueRules) == 0 {
		a.CueRules = def.CueRules
	}
	if len(a.Topics) == 0 {
		a.Topics = def.Topics
	}
	if a.ContextRadius <= 0 {
		a.ContextRadius = def.ContextRadius
	}
	if a.MaxMatchesPerTerm <= 0 {
		a.MaxMatchesPerTerm = def.MaxMatchesPerTerm
	}
	if a.DefaultConfidence <= 0 {
		a.DefaultConfidence = def.DefaultConfidence
	}
	if a.SimilarityThreshold <= 0 {
		a.SimilarityThreshold = def.SimilarityThreshold
	}
	if a.LinkerCandidateLimit <= 0 {
		a.LinkerCandidateLimit = def.LinkerCandidateLimit
	}
	if a.StatsCacheTTLSeconds <= 0 {
		a.StatsCacheTTLSeconds = def.StatsCacheTTLSeconds
	}
}
