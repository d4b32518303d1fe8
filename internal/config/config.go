package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Comments      CommentsConfig      `mapstructure:"comments"`
	Seed          SeedConfig          `mapstructure:"seed"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
	CORS          CORSConfig          `mapstructure:"cors"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name            string `mapstructure:"name"`
	Version         string `mapstructure:"version"`
	Mode            string `mapstructure:"mode"`
	Port            int    `mapstructure:"port"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // 秒
}

// ShutdownDuration 返回优雅退出的等待时间
func (a *AppConfig) ShutdownDuration() time.Duration {
	if a.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.ShutdownTimeout) * time.Second
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres | sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
}

// DSN 返回PostgreSQL连接字符串
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	PoolSize      int    `mapstructure:"pool_size"`
	ChangeChannel string `mapstructure:"change_channel"`
	CacheTTL      int    `mapstructure:"cache_ttl"` // 秒
}

// Addr 返回Redis地址
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheTTLDuration 文章文档缓存有效期
func (r *RedisConfig) CacheTTLDuration() time.Duration {
	return time.Duration(r.CacheTTL) * time.Second
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	ExportBucket  string `mapstructure:"export_bucket"`
	PresignExpiry int    `mapstructure:"presign_expiry"` // 分钟
}

// PresignDuration 预签名链接有效期
func (m *MinIOConfig) PresignDuration() time.Duration {
	if m.PresignExpiry <= 0 {
		return time.Hour
	}
	return time.Duration(m.PresignExpiry) * time.Minute
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers       []string          `mapstructure:"brokers"`
	Topics        map[string]string `mapstructure:"topics"`
	ConsumerGroup string            `mapstructure:"consumer_group"`
}

// ArticleEventsTopic 文章变更事件 topic
func (k *KafkaConfig) ArticleEventsTopic() string {
	if t := k.Topics["article_events"]; t != "" {
		return t
	}
	return "article-events"
}

// ElasticsearchConfig Elasticsearch配置
type ElasticsearchConfig struct {
	Hosts []string          `mapstructure:"hosts"`
	Index map[string]string `mapstructure:"index"`
}

// ArticlesIndex 文章索引名
func (e *ElasticsearchConfig) ArticlesIndex() string {
	if idx := e.Index["articles"]; idx != "" {
		return idx
	}
	return "articles"
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// ExpireDuration 返回过期时间
func (j *JWTConfig) ExpireDuration() time.Duration {
	return time.Duration(j.ExpireHours) * time.Hour
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// 孤儿回复的处理策略
const (
	OrphanAttach = "attach"
	OrphanReject = "reject"
)

// CommentsConfig 评论树配置
type CommentsConfig struct {
	OrphanPolicy   string `mapstructure:"orphan_policy"`
	BotAuthor      string `mapstructure:"bot_author"`
	MaxIndentDepth int    `mapstructure:"max_indent_depth"`
	MaxLength      int    `mapstructure:"max_length"`
}

// SeedConfig 内置文章配置
type SeedConfig struct {
	Path string `mapstructure:"path"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"` // otlp | stdout
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// 全局配置实例
var globalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 8000)
	v.SetDefault("app.mode", "release")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("redis.change_channel", "puzle:article-changes")
	v.SetDefault("redis.cache_ttl", 600)
	v.SetDefault("kafka.consumer_group", "puzle-read-search-sync")
	v.SetDefault("comments.orphan_policy", OrphanAttach)
	v.SetDefault("comments.bot_author", "Puzle")
	v.SetDefault("comments.max_indent_depth", 8)
	v.SetDefault("comments.max_length", 2000)
	v.SetDefault("seed.path", "configs/seed_articles.yaml")
	v.SetDefault("tracing.exporter", "otlp")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load 加载配置文件，环境变量 PUZLE_<SECTION>_<KEY> 可覆盖同名配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("puzle")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Comments.OrphanPolicy {
	case OrphanAttach, OrphanReject:
	default:
		return fmt.Errorf("invalid comments.orphan_policy %q", c.Comments.OrphanPolicy)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database.driver %q", c.Database.Driver)
	}
	return nil
}

// Set 直接设置全局配置，用于测试和嵌入式启动
func Set(cfg *Config) {
	globalConfig = cfg
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded, please call Load() first")
	}
	return globalConfig
}

// GetApp 获取应用配置
func GetApp() *AppConfig {
	return &Get().App
}

// GetDatabase 获取数据库配置
func GetDatabase() *DatabaseConfig {
	return &Get().Database
}

// GetRedis 获取Redis配置
func GetRedis() *RedisConfig {
	return &Get().Redis
}

// GetMinIO 获取MinIO配置
func GetMinIO() *MinIOConfig {
	return &Get().MinIO
}

// GetKafka 获取Kafka配置
func GetKafka() *KafkaConfig {
	return &Get().Kafka
}

// GetElasticsearch 获取Elasticsearch配置
func GetElasticsearch() *ElasticsearchConfig {
	return &Get().Elasticsearch
}

// GetJWT 获取JWT配置
func GetJWT() *JWTConfig {
	return &Get().JWT
}

// GetLog 获取日志配置
func GetLog() *LogConfig {
	return &Get().Log
}

// GetComments 获取评论树配置
func GetComments() *CommentsConfig {
	return &Get().Comments
}
