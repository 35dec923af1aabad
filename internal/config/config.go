package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	YouTube   YouTubeConfig   `mapstructure:"youtube"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Insight   InsightConfig   `mapstructure:"insight"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Profile   ProfileConfig   `mapstructure:"profile"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSNString       string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.DSNString
	}
	return c.Path
}

type YouTubeConfig struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	MaxCommentsPerVideo int    `mapstructure:"max_comments_per_video"`
	RecentVideoCount    int    `mapstructure:"recent_video_count"`
}

type EmbeddingConfig struct {
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Dimensions int           `mapstructure:"dimensions"`
	BatchSize  int           `mapstructure:"batch_size"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
}

type InsightConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type AnalysisConfig struct {
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
	TopClusters         int           `mapstructure:"top_clusters"`
	DedupWindowDays     int           `mapstructure:"dedup_window_days"`
	RecentDays          int           `mapstructure:"recent_days"`
	JobTimeout          time.Duration `mapstructure:"job_timeout"`
	Workers             int           `mapstructure:"workers"`
	QueueSize           int           `mapstructure:"queue_size"`
	RepliesPerCluster   int           `mapstructure:"replies_per_cluster"`
	MaxReplyCandidates  int           `mapstructure:"max_reply_candidates"`
	RankWeights         RankWeights   `mapstructure:"rank_weights"`
}

// RankWeights are the cluster scoring weights. They are configuration, not
// constants baked into the ranker.
type RankWeights struct {
	MemberCount float64 `mapstructure:"member_count"`
	TotalLikes  float64 `mapstructure:"total_likes"`
	RecentCount float64 `mapstructure:"recent_count"`
}

type ProfileConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	SampleSize int           `mapstructure:"sample_size"`
}

type VectorConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/replyt.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.max_comments_per_video", 500)
	v.SetDefault("youtube.recent_video_count", 20)
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.batch_size", 100)
	v.SetDefault("embedding.batch_delay", 100*time.Millisecond)
	v.SetDefault("insight.model", "gpt-4o-mini")
	v.SetDefault("insight.base_url", "https://api.openai.com/v1")
	v.SetDefault("analysis.similarity_threshold", 0.85)
	v.SetDefault("analysis.top_clusters", 10)
	v.SetDefault("analysis.dedup_window_days", 7)
	v.SetDefault("analysis.recent_days", 30)
	v.SetDefault("analysis.job_timeout", 300*time.Second)
	v.SetDefault("analysis.workers", 2)
	v.SetDefault("analysis.queue_size", 64)
	v.SetDefault("analysis.replies_per_cluster", 2)
	v.SetDefault("analysis.max_reply_candidates", 15)
	v.SetDefault("analysis.rank_weights.member_count", 1.0)
	v.SetDefault("analysis.rank_weights.total_likes", 0.3)
	v.SetDefault("analysis.rank_weights.recent_count", 0.5)
	v.SetDefault("profile.ttl", 24*time.Hour)
	v.SetDefault("profile.sample_size", 500)
	v.SetDefault("vector.enabled", false)
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "comment_embeddings")
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "replyt-reports")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("youtube.api_key", "YOUTUBE_API_KEY")
	v.BindEnv("embedding.api_key", "OPENAI_API_KEY")
	v.BindEnv("embedding.base_url", "OPENAI_BASE_URL")
	v.BindEnv("insight.api_key", "OPENAI_API_KEY")
	v.BindEnv("insight.base_url", "OPENAI_BASE_URL")
	v.BindEnv("vector.host", "QDRANT_HOST")
	v.BindEnv("vector.port", "QDRANT_PORT")
	v.BindEnv("vector.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Analysis.DedupWindowDays < 0 {
		return nil, fmt.Errorf("analysis.dedup_window_days must not be negative")
	}

	return &cfg, nil
}

// DedupWindow returns the duplicate-analysis window as a duration.
func (c *AnalysisConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowDays) * 24 * time.Hour
}
