package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Loader    LoaderConfig    `mapstructure:"loader"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	LogLevel  string          `mapstructure:"log_level"`
	LogMode   string          `mapstructure:"log_mode"`
	LogFile   string          `mapstructure:"log_file"`
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
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// ResolverConfig 營養成分解析設定
type ResolverConfig struct {
	MaxDepth int  `mapstructure:"max_depth"`
	Trace    bool `mapstructure:"trace"`
}

// LoaderConfig 食譜文件載入設定
type LoaderConfig struct {
	// BaseDir 非空時，只允許載入此目錄下的文件
	BaseDir          string        `mapstructure:"base_dir"`
	RelativeToParent bool          `mapstructure:"relative_to_parent"`
	AllowRemote      bool          `mapstructure:"allow_remote"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	MaxDocumentBytes int64         `mapstructure:"max_document_bytes"`
}

// CacheConfig 文件快取配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// 快取後端
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	return Load(viper.New())
}

// Load 使用指定的 viper 實例載入設定，方便 CLI 綁定旗標
func Load(v *viper.Viper) (*Config, error) {
	// 加載 .env 文件（不存在時忽略）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindEnv(v, "log_level", "LOG_LEVEL")
	bindEnv(v, "log_mode", "LOG_MODE")
	bindEnv(v, "log_file", "LOG_FILE")
	bindEnv(v, "server.port", "PORT")
	bindEnv(v, "loader.base_dir", "RECIPE_BASE_DIR")
	bindEnv(v, "loader.allow_remote", "RECIPE_ALLOW_REMOTE")
	bindEnv(v, "resolver.max_depth", "RECIPE_MAX_DEPTH")
	bindEnv(v, "cache.enabled", "CACHE_ENABLED")
	bindEnv(v, "cache.backend", "CACHE_BACKEND")
	bindEnv(v, "cache.redis_addr", "REDIS_ADDR")
	bindEnv(v, "cache.redis_password", "REDIS_PASSWORD")
	bindEnv(v, "rate_limit.enabled", "RATE_LIMIT_ENABLED")
	bindEnv(v, "rate_limit.requests", "RATE_LIMIT_REQUESTS")
	bindEnv(v, "rate_limit.window", "RATE_LIMIT_WINDOW")

	// 設定設定檔名稱和路徑
	v.SetConfigName("nutricalc")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func bindEnv(v *viper.Viper, key, env string) {
	// BindEnv 只在參數為空時回傳錯誤
	_ = v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "nutrition-calculator")

	// 日誌設定
	v.SetDefault("log_level", "info")
	v.SetDefault("log_mode", "")
	v.SetDefault("log_file", "")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// 解析設定
	v.SetDefault("resolver.max_depth", 32)
	v.SetDefault("resolver.trace", false)

	// 文件載入設定
	v.SetDefault("loader.base_dir", "recipes")
	v.SetDefault("loader.relative_to_parent", true)
	v.SetDefault("loader.allow_remote", false)
	v.SetDefault("loader.http_timeout", "10s")
	v.SetDefault("loader.max_document_bytes", 1<<20)

	// 快取設定
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "nutricalc:doc:")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "1m")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
}

// ValidateServer 驗證 API 伺服器額外需要的設定；伺服器只能讀取基準目錄下的文件
func ValidateServer(config *Config) error {
	if strings.TrimSpace(config.Loader.BaseDir) == "" {
		return fmt.Errorf("loader base dir is required for the API server")
	}
	return nil
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}
	if config.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server max body bytes")
	}

	if config.Resolver.MaxDepth <= 0 {
		return fmt.Errorf("invalid resolver max depth")
	}

	if config.Loader.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid loader http timeout")
	}
	if config.Loader.MaxDocumentBytes <= 0 {
		return fmt.Errorf("invalid loader max document bytes")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case CacheBackendMemory:
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case CacheBackendRedis:
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address is required")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.Requests <= 0 {
			return fmt.Errorf("invalid rate limit requests")
		}
		if config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit window")
		}
	}

	return nil
}
