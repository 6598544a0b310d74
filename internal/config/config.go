// Package config defines the pipeline's TOML configuration tree, one
// struct per component per spec.md's expanded §0 (Configuration), in the
// teacher's own struct-tree-per-concern shape (internal/common/config.go).
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration tree.
type Config struct {
	Environment string            `toml:"environment"`
	ObjectStore ObjectStoreConfig `toml:"object_store"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Exporter    ExporterConfig    `toml:"exporter"`
	Broker      BrokerConfig      `toml:"broker"`
	Producer    ProducerConfig    `toml:"producer"`
	Tokenizer   TokenizerConfig   `toml:"tokenizer"`
	Logging     LoggingConfig     `toml:"logging"`
}

// ObjectStoreConfig configures internal/objectstore.S3Store.
type ObjectStoreConfig struct {
	Bucket     string `toml:"bucket"` // default: data.kl3m.ai
	Region     string `toml:"region"`
	Endpoint   string `toml:"endpoint"` // non-empty for S3-compatible stores
	MaxRetries int    `toml:"max_retries"`
	PageSize   int32  `toml:"page_size"`
}

// PipelineConfig configures internal/pipeline.DatasetPipeline.
type PipelineConfig struct {
	Workers   int    `toml:"workers"`
	MaxSize   int    `toml:"max_size"` // per-document size cap in bytes, 0 = unbounded
	Clobber   bool   `toml:"clobber"`
	SubPrefix string `toml:"sub_prefix"`
	Schedule  string `toml:"schedule"` // cron schedule for -schedule; empty disables
}

// ExporterConfig configures internal/exporter.Exporter.
type ExporterConfig struct {
	Dataset             string  `toml:"dataset"`
	OutputPath          string  `toml:"output_path"`
	Format              string  `toml:"format"` // "tokens" | "text"
	Fetchers            int     `toml:"fetchers"`
	QueueDepth          int     `toml:"queue_depth"`
	FlushBytes          int     `toml:"flush_bytes"`
	FlushIntervalMillis int     `toml:"flush_interval_millis"`
	Dedup               bool    `toml:"dedup"`
	DedupKeyTokens      int     `toml:"dedup_key_tokens"`
	DedupKeyChars       int     `toml:"dedup_key_chars"`
	QualityGate         bool    `toml:"quality_gate"`
	QualityThreshold    float64 `toml:"quality_threshold"`
	IncludeAllDocuments bool    `toml:"include_all_documents"`
	AutoTune            bool    `toml:"auto_tune"`
	MaxWorkersCap       int     `toml:"max_workers_cap"`
}

// BrokerConfig configures internal/broker.Server.
type BrokerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	RedisAddr  string `toml:"redis_addr"`
	RedisDB    int    `toml:"redis_db"`
}

// ProducerConfig configures internal/producer.Producer.
type ProducerConfig struct {
	RedisAddr       string `toml:"redis_addr"`
	RedisDB         int    `toml:"redis_db"`
	SequenceLength  int    `toml:"sequence_length"`
	MaxQueueLength  int    `toml:"max_queue_length"`
	Tasks           string `toml:"tasks"` // comma-separated subset of mlm,pmlm,lmlm,clm
	SourceDatasets  string `toml:"source_datasets"` // comma-separated dataset ids, interleaved round-robin
	SourceTokenizer string `toml:"source_tokenizer"`
	TargetTokenizer string `toml:"target_tokenizer"`
	BatchSize       int    `toml:"batch_size"`      // per-(task,dataset) buffer flush threshold
	HighWaterMark   int    `toml:"high_water_mark"` // queue length that triggers backpressure sleep
	BackpressureMS  int    `toml:"backpressure_ms"`
}

// TokenizerConfig lists the tokenizers to register at startup and which
// one is canonical.
type TokenizerConfig struct {
	Encodings []string `toml:"encodings"`
	Canonical string   `toml:"canonical"`
}

// LoggingConfig mirrors the teacher's LoggingConfig shape.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
}

// Default returns a Config with the pipeline's documented defaults.
func Default() *Config {
	return &Config{
		Environment: "development",
		ObjectStore: ObjectStoreConfig{
			Bucket:     "data.kl3m.ai",
			MaxRetries: 5,
			PageSize:   1000,
		},
		Pipeline: PipelineConfig{
			Workers: 8,
		},
		Exporter: ExporterConfig{
			Format:              "tokens",
			Fetchers:            8,
			QueueDepth:          5000,
			FlushBytes:          4 * 1024 * 1024,
			FlushIntervalMillis: 2000,
			Dedup:               true,
			DedupKeyTokens:      1024,
			DedupKeyChars:       1000,
		},
		Broker: BrokerConfig{
			ListenAddr: ":8080",
			RedisAddr:  "127.0.0.1:6379",
		},
		Producer: ProducerConfig{
			RedisAddr:      "127.0.0.1:6379",
			SequenceLength: 512,
			MaxQueueLength: 10000,
			Tasks:          "clm",
			BatchSize:      64,
			HighWaterMark:  10000,
			BackpressureMS: 500,
		},
		Tokenizer: TokenizerConfig{
			Encodings: []string{"cl100k_base"},
			Canonical: "cl100k_base",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// Load reads and parses a TOML config file at path, starting from
// Default() so unset fields keep their documented defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
