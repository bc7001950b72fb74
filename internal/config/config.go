package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// APIServerConfig 保存 API 服务器特有的配置。
type APIServerConfig struct {
	Host string     `mapstructure:"HOST"`
	Port string     `mapstructure:"PORT"`
	CORS CORSConfig `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	AppEnv     string          `mapstructure:"APP_ENV"`
	LogLevel   string          `mapstructure:"LOG_LEVEL"`
	Server     ServerConfig    `mapstructure:"SERVER"`
	APIServer  APIServerConfig `mapstructure:"API_SERVER"`
	Kafka      KafkaConfig     `mapstructure:"KAFKA"`
	Database   DatabaseConfig  `mapstructure:"DATABASE"`
	Storage    StorageConfig   `mapstructure:"STORAGE"`
	Auth       AuthConfig      `mapstructure:"AUTH"`
	Google     GoogleConfig    `mapstructure:"GOOGLE"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	Sentry     SentryConfig    `mapstructure:"SENTRY"`
	RateLimit  RateLimitConfig `mapstructure:"RATE_LIMIT"`
	Feed       FeedConfig      `mapstructure:"FEED"`
	Story      StoryConfig     `mapstructure:"STORY"`
}

// IsDevelopment reports whether the app runs with development defaults
// (console logging, verbose SQL).
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "" || c.AppEnv == "development"
}

// ServerConfig holds HTTP server timeouts shared by the API server.
type ServerConfig struct {
	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `mapstructure:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes  int           `mapstructure:"MAX_HEADER_BYTES"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"ENABLED"`
	Brokers       []string `mapstructure:"BROKERS"`
	ClientID      string   `mapstructure:"CLIENT_ID"`
	EventsTopic   string   `mapstructure:"EVENTS_TOPIC"`   // 社交事件：好友请求、点赞、评论
	ConsumerGroup string   `mapstructure:"CONSUMER_GROUP"` // 通知消费者组
	Protocol      string   `mapstructure:"PROTOCOL"`

	// MessageTimeout bounds how long the producer retries one message.
	MessageTimeout time.Duration `mapstructure:"MESSAGE_TIMEOUT"`
}

// Active reports whether the producer and consumer should be started.
func (k KafkaConfig) Active() bool {
	return k.Enabled && len(k.Brokers) > 0
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type        string `mapstructure:"TYPE"` // "postgres" or "sqlite"
	Host        string `mapstructure:"HOST"`
	Port        int    `mapstructure:"PORT"`
	User        string `mapstructure:"USER"`
	Password    string `mapstructure:"PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	SSLMode     string `mapstructure:"SSL_MODE"`
	Path        string `mapstructure:"PATH"` // sqlite file
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`
}

// StorageConfig holds configuration for file storage.
type StorageConfig struct {
	Type          string   `mapstructure:"TYPE"` // "local", "s3"
	LocalPath     string   `mapstructure:"LOCAL_PATH"`
	BaseURL       string   `mapstructure:"BASE_URL"` // URL prefix local files are served under
	MaxFileSizeMB int64    `mapstructure:"MAX_FILE_SIZE_MB"`
	S3            S3Config `mapstructure:"S3"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (s StorageConfig) MaxFileSizeBytes() int64 {
	return s.MaxFileSizeMB << 20
}

// S3Config holds configuration for AWS S3.
type S3Config struct {
	BucketName      string `mapstructure:"BUCKET_NAME"`
	Region          string `mapstructure:"REGION"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY"`
	Endpoint        string `mapstructure:"ENDPOINT"` // For S3 compatible storage like MinIO
}

// AuthConfig holds configuration for authentication (e.g., JWT).
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
	Issuer       string        `mapstructure:"ISSUER"`
	TokenHeader  string        `mapstructure:"TOKEN_HEADER"`
}

// GoogleConfig holds the OAuth client used for "Sign in with Google".
type GoogleConfig struct {
	ClientID     string `mapstructure:"CLIENT_ID"`
	ClientSecret string `mapstructure:"CLIENT_SECRET"`
	RedirectURL  string `mapstructure:"REDIRECT_URL"`
	UserInfoURL  string `mapstructure:"USERINFO_URL"`
	// FrontendURL receives the issued token after the browser flow; empty
	// means the callback answers with JSON.
	FrontendURL  string `mapstructure:"FRONTEND_URL"`
}

type SentryConfig struct {
	DSN              string  `mapstructure:"DSN"`
	Environment      string  `mapstructure:"ENVIRONMENT"`
	TracesSampleRate float64 `mapstructure:"TRACES_SAMPLE_RATE"`
}

// RateLimitConfig applies to the credential endpoints (register, login).
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"ENABLED"`
	Requests int           `mapstructure:"REQUESTS"`
	Window   time.Duration `mapstructure:"WINDOW"`
}

type FeedConfig struct {
	DefaultLimit int `mapstructure:"DEFAULT_LIMIT"`
	MaxLimit     int `mapstructure:"MAX_LIMIT"`
}

type StoryConfig struct {
	TTL time.Duration `mapstructure:"TTL"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("APP_NAME", "social-go")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER.SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB

	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "5000")
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5173"}) // Adjust for your frontend URL
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "auth-token"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300) // 5 minutes

	v.SetDefault("KAFKA.ENABLED", false)
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "social-go-api")
	v.SetDefault("KAFKA.EVENTS_TOPIC", "social-events")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "social-go-notifications")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")
	v.SetDefault("KAFKA.MESSAGE_TIMEOUT", "10s")

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "social_go_db")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.PATH", "social-go.db")
	v.SetDefault("DATABASE.LOG_LEVEL", "warn")
	v.SetDefault("DATABASE.AUTO_MIGRATE", true)

	v.SetDefault("STORAGE.TYPE", "local")
	v.SetDefault("STORAGE.LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE.BASE_URL", "/uploads")
	v.SetDefault("STORAGE.MAX_FILE_SIZE_MB", 10)
	v.SetDefault("STORAGE.S3.BUCKET_NAME", "")
	v.SetDefault("STORAGE.S3.REGION", "us-east-1")
	v.SetDefault("STORAGE.S3.ACCESS_KEY_ID", "")
	v.SetDefault("STORAGE.S3.SECRET_ACCESS_KEY", "")
	v.SetDefault("STORAGE.S3.ENDPOINT", "")

	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", 24*time.Hour)
	v.SetDefault("AUTH.ISSUER", "social-go")
	v.SetDefault("AUTH.TOKEN_HEADER", "auth-token")

	v.SetDefault("GOOGLE.CLIENT_ID", "")
	v.SetDefault("GOOGLE.CLIENT_SECRET", "")
	v.SetDefault("GOOGLE.REDIRECT_URL", "http://localhost:5000/api/user/google/callback")
	v.SetDefault("GOOGLE.USERINFO_URL", "https://www.googleapis.com/oauth2/v2/userinfo")
	v.SetDefault("GOOGLE.FRONTEND_URL", "")

	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	v.SetDefault("SENTRY.DSN", "")
	v.SetDefault("SENTRY.ENVIRONMENT", "")
	v.SetDefault("SENTRY.TRACES_SAMPLE_RATE", 0.0)

	v.SetDefault("RATE_LIMIT.ENABLED", true)
	v.SetDefault("RATE_LIMIT.REQUESTS", 20)
	v.SetDefault("RATE_LIMIT.WINDOW", time.Minute)

	v.SetDefault("FEED.DEFAULT_LIMIT", 20)
	v.SetDefault("FEED.MAX_LIMIT", 100)

	v.SetDefault("STORY.TTL", 24*time.Hour)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Nested keys map to underscores: AUTH.JWT_SECRET_KEY <- AUTH_JWT_SECRET_KEY
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		// 没有配置文件时使用默认值
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
