package model

import "time"

// Config is the complete varlens configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Cache        CacheConfig        `yaml:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	HTTP         HTTPConfig         `yaml:"http"`
	Resolve      ResolveConfig      `yaml:"resolve"`
	Output       OutputConfig       `yaml:"output"`
	Log          LogConfig          `yaml:"log"`
}

// LLMConfig selects and tunes the inference provider
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"` // Never written to disk, read from env
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`
}

// CacheConfig controls the inference response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir,omitempty"` // Empty keeps the cache in memory only
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// ConcurrencyConfig bounds fan-out
type ConcurrencyConfig struct {
	Papers    int `yaml:"papers"`    // Papers resolved in parallel by batch
	Inference int `yaml:"inference"` // In-flight inference calls per stage
}

// RateLimitingConfig throttles inference calls per provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// HTTPConfig is used when fetching papers by URL
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty"`
	NoProxy       string        `yaml:"no_proxy,omitempty"`
	RespectRobots bool          `yaml:"respect_robots"`
}

// ResolveConfig tunes the resolution engine
type ResolveConfig struct {
	RefSeqHints map[string]string `yaml:"refseq_hints,omitempty"` // gene -> transcript accession
	Evidence    bool              `yaml:"evidence"`               // Attach supporting sentences
	Fields      bool              `yaml:"fields"`                 // Run field extraction after resolution
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose"`
	Format  string `yaml:"format"` // json, md
}

// LogConfig controls the rotating log file
type LogConfig struct {
	Filename   string `yaml:"filename"`
	Level      string `yaml:"level"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Papers:    4,
			Inference: 8,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         10,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "varlens/0.1 (+https://github.com/ppiankov/varlens)",
			MaxBodyBytes:  10_000_000,
			RespectRobots: true,
		},
		Resolve: ResolveConfig{
			Evidence: true,
		},
		Output: OutputConfig{
			Format: "json",
		},
		Log: LogConfig{
			Filename:   ".varlens.log",
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
	}
}
