package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int               `json:"port"`
	CORSOrigins []string          `json:"cors_origins"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	Database    DatabaseConfig    `json:"database"`
	FileStore   FileStoreConfig   `json:"file_store"`
	AI          AIConfig          `json:"ai"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	Ingest      IngestConfig      `json:"ingest"`
	Chat        ChatConfig        `json:"chat"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// AIConfig selects the provider used for embeddings and generation.
// Provider args under data are provider-specific and decoded by the factory.
// CacheSize is a pointer so an explicit 0 (cache disabled) survives
// defaulting.
type AIConfig struct {
	Provider           string      `json:"provider"`
	Data               interface{} `json:"data"`
	EmbedModel         string      `json:"embed_model"`
	EmbedDimension     int         `json:"embed_dimension"`
	GenerateModel      string      `json:"generate_model"`
	EmbedTimeoutSecs   int         `json:"embed_timeout_secs"`
	GenTimeoutSecs     int         `json:"gen_timeout_secs"`
	CacheSize          *int        `json:"cache_size"`
	CacheTTLHours      int         `json:"cache_ttl_hours"`
	CacheRetentionDays int         `json:"cache_retention_days"`
}

type VectorStoreConfig struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	APIKey      string `json:"api_key"`
	Collection  string `json:"collection"`
	TimeoutSecs int    `json:"timeout_secs"`
}

// IngestConfig tunes the ingest pipeline. ChunkOverlap is a pointer so an
// explicit 0 (no overlap) survives defaulting.
type IngestConfig struct {
	ChunkSize              int  `json:"chunk_size"`
	ChunkOverlap           *int `json:"chunk_overlap"`
	BatchSize              int  `json:"batch_size"`
	WorkerCount            int  `json:"worker_count"`
	PollIntervalMillis     int  `json:"poll_interval_millis"`
	VisibilityTimeoutSecs  int  `json:"visibility_timeout_secs"`
	MaxAttempts            int  `json:"max_attempts"`
	RetryBackoffSecs       int  `json:"retry_backoff_secs"`
	MaxUploadSizeMegabytes int  `json:"max_upload_size_megabytes"`
}

type ChatConfig struct {
	TopK            int `json:"top_k"`
	MaxContextChars int `json:"max_context_chars"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) error {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "ollama"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "nomic-embed-text"
	}
	if cfg.AI.EmbedDimension == 0 {
		cfg.AI.EmbedDimension = 768
	}
	if cfg.AI.GenerateModel == "" {
		return fmt.Errorf("ai.generate_model is required")
	}
	if cfg.AI.EmbedTimeoutSecs == 0 {
		cfg.AI.EmbedTimeoutSecs = 30
	}
	if cfg.AI.GenTimeoutSecs == 0 {
		cfg.AI.GenTimeoutSecs = 120
	}
	if cfg.AI.CacheSize == nil {
		size := 10000
		cfg.AI.CacheSize = &size
	}
	if *cfg.AI.CacheSize < 0 {
		return fmt.Errorf("ai.cache_size must be >= 0")
	}
	if cfg.AI.CacheTTLHours == 0 {
		cfg.AI.CacheTTLHours = 2
	}
	if cfg.AI.CacheRetentionDays == 0 {
		cfg.AI.CacheRetentionDays = 30
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "qdrant"
	}
	if cfg.VectorStore.URL == "" {
		cfg.VectorStore.URL = "http://localhost:6333"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "askdoc-chunks"
	}
	if cfg.VectorStore.TimeoutSecs == 0 {
		cfg.VectorStore.TimeoutSecs = 30
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == nil {
		overlap := 200
		cfg.Ingest.ChunkOverlap = &overlap
	}
	if *cfg.Ingest.ChunkOverlap < 0 || *cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, ingest.chunk_size)")
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 50
	}
	if cfg.Ingest.WorkerCount == 0 {
		cfg.Ingest.WorkerCount = 4
	}
	if cfg.Ingest.PollIntervalMillis == 0 {
		cfg.Ingest.PollIntervalMillis = 500
	}
	if cfg.Ingest.VisibilityTimeoutSecs == 0 {
		cfg.Ingest.VisibilityTimeoutSecs = 300
	}
	if cfg.Ingest.MaxAttempts == 0 {
		cfg.Ingest.MaxAttempts = 3
	}
	if cfg.Ingest.RetryBackoffSecs == 0 {
		cfg.Ingest.RetryBackoffSecs = 30
	}
	if cfg.Ingest.MaxUploadSizeMegabytes == 0 {
		cfg.Ingest.MaxUploadSizeMegabytes = 64
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = 5
	}
	if cfg.Chat.MaxContextChars == 0 {
		cfg.Chat.MaxContextChars = 6000
	}
	return nil
}
