package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Upload      UploadConfig    `mapstructure:"upload"`
	Detection   DetectionConfig `mapstructure:"detection"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Recipe      RecipeConfig    `mapstructure:"recipe"`
	Queue       QueueConfig     `mapstructure:"queue"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Sentry      SentryConfig    `mapstructure:"sentry"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

// UploadConfig 上傳檔案設定
type UploadConfig struct {
	Dir          string `mapstructure:"dir"`
	MaxSizeBytes int64  `mapstructure:"max_size_bytes"`
}

// DetectionConfig 食材辨識各層設定
type DetectionConfig struct {
	Vision VisionConfig `mapstructure:"vision"`
	Food   FoodConfig   `mapstructure:"food"`
	Local  LocalConfig  `mapstructure:"local"`
}

// VisionConfig 視覺語言模型（Gemini）設定
type VisionConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FoodConfig 遠端食材偵測（Roboflow）設定
type FoodConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	ModelID string        `mapstructure:"model_id"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LocalConfig 本地 YOLO 模型設定
type LocalConfig struct {
	ModelPath           string  `mapstructure:"model_path"`
	LabelsPath          string  `mapstructure:"labels_path"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	IoUThreshold        float64 `mapstructure:"iou_threshold"`
	Threads             int     `mapstructure:"threads"`
	NormalizedBoxes     bool    `mapstructure:"normalized_boxes"`
}

// LLMConfig 語言模型設定
type LLMConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RecipeConfig 食譜生成設定
type RecipeConfig struct {
	Count        int  `mapstructure:"count"`
	StrictSchema bool `mapstructure:"strict_schema"`
	// Cache 相同食材重用上次的食譜，預設每次都呼叫模型
	Cache        bool `mapstructure:"cache"`
}

// QueueConfig 語言模型請求隊列配置
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// SentryConfig 錯誤回報設定
type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// MetricsConfig Prometheus 設定
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// 環境變數綁定（沿用原有的變數名稱）
var envBindings = map[string]string{
	"detection.vision.api_key":   "GEMINI_API_KEY",
	"detection.vision.model":     "GEMINI_MODEL",
	"detection.food.api_key":     "ROBOFLOW_API_KEY",
	"detection.food.model_id":    "ROBOFLOW_MODEL_ID",
	"detection.local.model_path": "YOLO_MODEL_PATH",
	"llm.provider":               "LLM_PROVIDER",
	"llm.model":                  "LLM_MODEL",
	"llm.base_url":               "OLLAMA_HOST",
	"llm.api_key":                "OPENROUTER_API_KEY",
	"upload.dir":                 "UPLOAD_FOLDER",
	"cache.enabled":              "CACHE_ENABLED",
	"cache.backend":              "CACHE_BACKEND",
	"cache.redis.addr":           "REDIS_ADDR",
	"rate_limit.enabled":         "RATE_LIMIT_ENABLED",
	"rate_limit.requests":        "RATE_LIMIT_REQUESTS",
	"rate_limit.window":          "RATE_LIMIT_WINDOW",
	"sentry.dsn":                 "SENTRY_DSN",
	"dedup_window":               "DEDUP_WINDOW",
	"log_level":                  "LOG_LEVEL",
	"server.port":                "PORT",
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	return Load(viper.New())
}

// Load 使用指定的 viper 實例載入設定，方便命令列旗標覆寫
func Load(v *viper.Viper) (*Config, error) {
	// .env 不存在時直接使用環境變數
	_ = godotenv.Load()

	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultLLMModels[cfg.LLM.Provider]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// 未指定 LLM_MODEL 時各提供者的預設模型
var defaultLLMModels = map[string]string{
	"ollama":     "gemma3:4b",
	"openrouter": "qwen/qwen2.5-vl-72b-instruct:free",
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-vision")

	// 伺服器設定
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.allow_origins", []string{"*"})

	// 上傳設定
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.max_size_bytes", 16*1024*1024) // 16MB

	// 辨識設定
	v.SetDefault("detection.vision.model", "gemini-flash-lite-latest")
	v.SetDefault("detection.vision.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("detection.vision.timeout", "60s")
	v.SetDefault("detection.food.model_id", "food-ingredients-detection-nxe34/3")
	v.SetDefault("detection.food.base_url", "https://serverless.roboflow.com")
	v.SetDefault("detection.food.timeout", "60s")
	v.SetDefault("detection.local.model_path", "models/yolov8m_float32.tflite")
	v.SetDefault("detection.local.labels_path", "")
	v.SetDefault("detection.local.confidence_threshold", 0.3)
	v.SetDefault("detection.local.iou_threshold", 0.45)
	v.SetDefault("detection.local.threads", 0)
	v.SetDefault("detection.local.normalized_boxes", true)

	// 語言模型設定
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", "120s")

	// 食譜設定
	v.SetDefault("recipe.count", 3)
	v.SetDefault("recipe.strict_schema", false)
	v.SetDefault("recipe.cache", false)

	// 隊列設定
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.max_size", 50)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		return errors.New("server port is required")
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		return errors.New("at least one allowed origin is required")
	}
	if cfg.Upload.Dir == "" {
		return errors.New("upload dir is required")
	}
	if cfg.Upload.MaxSizeBytes <= 0 {
		return errors.New("invalid upload max size")
	}

	local := cfg.Detection.Local
	if local.ModelPath == "" {
		return errors.New("local model path is required")
	}
	if local.ConfidenceThreshold < 0 || local.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid confidence threshold %v", local.ConfidenceThreshold)
	}
	if local.IoUThreshold <= 0 || local.IoUThreshold > 1 {
		return fmt.Errorf("invalid iou threshold %v", local.IoUThreshold)
	}

	switch cfg.LLM.Provider {
	case "ollama":
	case "openrouter":
		if cfg.LLM.APIKey == "" {
			return errors.New("openrouter provider requires OPENROUTER_API_KEY")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm model is required")
	}
	if cfg.Recipe.Count <= 0 {
		return errors.New("recipe count must be positive")
	}

	if cfg.Queue.Workers <= 0 || cfg.Queue.MaxSize <= 0 {
		return errors.New("invalid queue settings")
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return errors.New("invalid cache ttl")
		}
		switch cfg.Cache.Backend {
		case "memory":
			if cfg.Cache.CleanupInterval <= 0 {
				return errors.New("invalid cache cleanup interval")
			}
		case "redis":
			if cfg.Cache.Redis.Addr == "" {
				return errors.New("redis cache requires an address")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
		}
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.Requests <= 0 || cfg.RateLimit.Window <= 0) {
		return errors.New("invalid rate limit settings")
	}

	return nil
}
