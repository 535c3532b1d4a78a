package config

import (
	"os"
	"strconv"
	"time"

	"github.com/nijaru/yt-search/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yaml"

type Config struct {
	Search SearchConfig `yaml:"search"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Spaces SpacesConfig `yaml:"spaces"`
	Cache  CacheConfig  `yaml:"cache"`
}

type SearchConfig struct {
	MobileBaseURL  string        `yaml:"mobile_base_url"`
	DesktopBaseURL string        `yaml:"desktop_base_url"`
	Mobile         bool          `yaml:"mobile"`
	SortByRecent   bool          `yaml:"sort_by_recent"`
	MaxPages       int           `yaml:"max_pages"`
	PageInterval   time.Duration `yaml:"page_interval"`
}

type FetchConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type OutputConfig struct {
	Format       string `yaml:"format"`
	MarkdownPath string `yaml:"markdown_path"`
	DumpJSONDir  string `yaml:"dump_json_dir"`
	ArchivePath  string `yaml:"archive_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Port              string        `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RateLimit         int           `yaml:"rate_limit"`
	RateLimitInterval time.Duration `yaml:"rate_limit_interval"`
}

// CacheConfig enables the Redis search cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// SpacesConfig enables uploading reports to S3-compatible storage when
// Bucket is set.
type SpacesConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

func (c SpacesConfig) Enabled() bool {
	return c.Bucket != ""
}

func Default() *Config {
	return &Config{
		Search: SearchConfig{
			MobileBaseURL:  "https://m.youtube.com/results",
			DesktopBaseURL: "https://www.youtube.com/results",
			Mobile:         true,
			SortByRecent:   true,
			MaxPages:       2,
			PageInterval:   2 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:        15 * time.Second,
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     10 * time.Second,
			MaxBodyBytes:   8 << 20,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Port:              "8080",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       60 * time.Second,
			RequestTimeout:    90 * time.Second,
			RateLimit:         5,
			RateLimitInterval: time.Second,
		},
		Spaces: SpacesConfig{
			Region: "us-east-1",
			Prefix: "searches",
		},
		Cache: CacheConfig{
			TTL: 15 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_PATH (or ./config.yaml when present), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	path := GetEnv("CONFIG_PATH", "")
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "error reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "error parsing config file %s", path)
	}
	logrus.WithField("path", path).Debug("Loaded config file")
	return nil
}

func (c *Config) applyEnv() {
	c.Search.MobileBaseURL = GetEnv("SEARCH_MOBILE_BASE_URL", c.Search.MobileBaseURL)
	c.Search.DesktopBaseURL = GetEnv("SEARCH_DESKTOP_BASE_URL", c.Search.DesktopBaseURL)
	c.Search.Mobile = getEnvAsBool("SEARCH_MOBILE", c.Search.Mobile)
	c.Search.SortByRecent = getEnvAsBool("SEARCH_SORT_BY_RECENT", c.Search.SortByRecent)
	c.Search.MaxPages = getEnvAsInt("SEARCH_MAX_PAGES", c.Search.MaxPages)
	c.Search.PageInterval = getEnvAsDuration("SEARCH_PAGE_INTERVAL", c.Search.PageInterval)

	c.Fetch.Timeout = getEnvAsDuration("FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.MaxRetries = getEnvAsInt("FETCH_MAX_RETRIES", c.Fetch.MaxRetries)
	c.Fetch.InitialBackoff = getEnvAsDuration("FETCH_INITIAL_BACKOFF", c.Fetch.InitialBackoff)
	c.Fetch.MaxBackoff = getEnvAsDuration("FETCH_MAX_BACKOFF", c.Fetch.MaxBackoff)

	c.Output.Format = GetEnv("OUTPUT_FORMAT", c.Output.Format)
	c.Output.MarkdownPath = GetEnv("OUTPUT_MARKDOWN_PATH", c.Output.MarkdownPath)
	c.Output.DumpJSONDir = GetEnv("OUTPUT_DUMP_JSON_DIR", c.Output.DumpJSONDir)
	c.Output.ArchivePath = GetEnv("ARCHIVE_DB_PATH", c.Output.ArchivePath)

	c.Log.Level = GetEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Dir = GetEnv("LOG_DIR", c.Log.Dir)
	c.Log.JSON = getEnvAsBool("LOG_JSON", c.Log.JSON)

	c.Server.Port = GetEnv("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.RateLimit = getEnvAsInt("RATE_LIMIT", c.Server.RateLimit)
	c.Server.RateLimitInterval = getEnvAsDuration("RATE_LIMIT_INTERVAL", c.Server.RateLimitInterval)

	c.Spaces.AccessKey = GetEnv("SPACES_ACCESS_KEY", c.Spaces.AccessKey)
	c.Spaces.SecretKey = GetEnv("SPACES_SECRET_KEY", c.Spaces.SecretKey)
	c.Spaces.Region = GetEnv("SPACES_REGION", c.Spaces.Region)
	c.Spaces.Endpoint = GetEnv("SPACES_ENDPOINT", c.Spaces.Endpoint)
	c.Spaces.Bucket = GetEnv("SPACES_BUCKET", c.Spaces.Bucket)
	c.Spaces.Prefix = GetEnv("SPACES_PREFIX", c.Spaces.Prefix)
	c.Spaces.PathStyle = getEnvAsBool("SPACES_PATH_STYLE", c.Spaces.PathStyle)

	c.Cache.RedisAddr = GetEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = GetEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvAsInt("REDIS_DB", c.Cache.RedisDB)
	c.Cache.TTL = getEnvAsDuration("CACHE_TTL", c.Cache.TTL)
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid boolean, using default")
	}
	return defaultValue
}

func ValidateConfig(cfg *Config) error {
	if err := validation.ValidateURL(cfg.Search.MobileBaseURL); err != nil {
		return errors.Wrap(err, "mobile base URL")
	}
	if err := validation.ValidateURL(cfg.Search.DesktopBaseURL); err != nil {
		return errors.Wrap(err, "desktop base URL")
	}
	if cfg.Search.MaxPages < 1 {
		return errors.New("max pages must be at least 1")
	}
	if cfg.Search.PageInterval < 0 {
		return errors.New("page interval must not be negative")
	}
	if cfg.Fetch.Timeout <= 0 {
		return errors.New("fetch timeout must be greater than 0")
	}
	if cfg.Fetch.MaxRetries < 0 {
		return errors.New("fetch retries must not be negative")
	}
	if cfg.Fetch.MaxBodyBytes <= 0 {
		return errors.New("max body size must be greater than 0")
	}
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	if cfg.Server.Port == "" {
		return errors.New("server port is required")
	}
	if cfg.Server.RequestTimeout <= 0 {
		return errors.New("request timeout must be greater than 0")
	}
	if cfg.Server.RateLimit <= 0 || cfg.Server.RateLimitInterval <= 0 {
		return errors.New("rate limit and interval must be greater than 0")
	}
	if cfg.Cache.Enabled() && cfg.Cache.TTL <= 0 {
		return errors.New("cache TTL must be greater than 0")
	}
	if cfg.Spaces.Enabled() {
		if cfg.Spaces.AccessKey == "" || cfg.Spaces.SecretKey == "" {
			return errors.New("spaces access key and secret key are required when a bucket is set")
		}
		if cfg.Spaces.Region == "" {
			return errors.New("spaces region is required when a bucket is set")
		}
		if cfg.Spaces.Endpoint != "" {
			if err := validation.ValidateURL(cfg.Spaces.Endpoint); err != nil {
				return errors.Wrap(err, "spaces endpoint")
			}
		}
	}
	return nil
}
