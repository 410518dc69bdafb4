// Package config loads the service settings from an env file and the process environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Runtime environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds runtime settings for the musicon API.
//
// Fields:
//   - AppHost / AppPort / AppEnv / LogLevel: HTTP bind address, runtime mode and zap level.
//   - CORSOrigins: origins allowed to call the API with credentials.
//   - Postgres*: connection and pool settings for the catalog database.
//   - Redis*: connection settings for the session revocation store.
//   - KafkaBrokers / KafkaCleanupTopic / KafkaGroupID: storage cleanup queue. Empty brokers disable the queue.
//   - S3*: object storage for uploaded covers and audio.
//   - SMTP* / EmailFrom: outgoing mail for welcome and password reset messages.
//   - JWTSecretKey / JWTExp / CookieExpires: session token signing and lifetime.
//   - MaxImageBytes / MaxAudioBytes: upload size ceilings.
type Config struct {
	AppHost     string
	AppPort     string
	AppEnv      string
	LogLevel    string
	CORSOrigins []string

	PostgresHost         string
	PostgresPort         int
	PostgresUser         string
	PostgresPassword     string
	PostgresDB           string
	PostgresMaxOpenConns int
	PostgresMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	KafkaBrokers      []string
	KafkaCleanupTopic string
	KafkaGroupID      string

	S3Region       string
	S3Bucket       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string
	S3UsePathStyle bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	JWTSecretKey  string
	JWTExp        time.Duration
	CookieExpires time.Duration

	MaxImageBytes int64
	MaxAudioBytes int64
}

// Load reads variables from the env file at path (a missing file is ignored),
// then builds a Config from the environment with defaults for unset keys.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(path)

	c := &Config{
		AppHost:     getEnv("APP_HOST", "localhost"),
		AppPort:     getEnv("APP_PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", EnvProduction),
		LogLevel:    getEnv("APP_LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("APP_CORS_ORIGINS", "http://localhost:3000")),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "musicon"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaCleanupTopic: getEnv("KAFKA_CLEANUP_TOPIC", "storage-cleanup"),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "musicon-storage-cleanup"),

		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "musicon"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PublicURL: strings.TrimRight(getEnv("S3_PUBLIC_URL", ""), "/"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "MusicOn <no-reply@musicon.local>"),

		JWTSecretKey: getEnv("JWT_SECRET_KEY", "my_super_secret_key"),
	}

	var err error
	ints := []struct {
		key string
		def string
		dst *int
	}{
		{"POSTGRES_PORT", "5432", &c.PostgresPort},
		{"POSTGRES_MAX_OPEN_CONNS", "16", &c.PostgresMaxOpenConns},
		{"POSTGRES_MAX_IDLE_CONNS", "8", &c.PostgresMaxIdleConns},
		{"REDIS_PORT", "6379", &c.RedisPort},
		{"REDIS_DB", "0", &c.RedisDB},
		{"REDIS_POOL_SIZE", "10", &c.RedisPoolSize},
		{"REDIS_MIN_IDLE_CONNS", "2", &c.RedisMinIdleConns},
		{"SMTP_PORT", "2525", &c.SMTPPort},
	}
	for _, v := range ints {
		if *v.dst, err = strconv.Atoi(getEnv(v.key, v.def)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", v.key, err)
		}
	}

	jwtExpSecond, err := strconv.Atoi(getEnv("JWT_EXP_SECOND", "777600"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXP_SECOND: %w", err)
	}
	c.JWTExp = time.Duration(jwtExpSecond) * time.Second

	cookieDays, err := strconv.Atoi(getEnv("JWT_COOKIE_EXPIRES_DAYS", "9"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_COOKIE_EXPIRES_DAYS: %w", err)
	}
	c.CookieExpires = time.Duration(cookieDays) * 24 * time.Hour

	if c.MaxImageBytes, err = strconv.ParseInt(getEnv("UPLOAD_MAX_IMAGE_BYTES", "5242880"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_IMAGE_BYTES: %w", err)
	}
	if c.MaxAudioBytes, err = strconv.ParseInt(getEnv("UPLOAD_MAX_AUDIO_BYTES", "20971520"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_AUDIO_BYTES: %w", err)
	}
	if c.S3UsePathStyle, err = strconv.ParseBool(getEnv("S3_USE_PATH_STYLE", "false")); err != nil {
		return nil, fmt.Errorf("invalid S3_USE_PATH_STYLE: %w", err)
	}

	if c.S3PublicURL == "" {
		c.S3PublicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.S3Bucket, c.S3Region)
	}

	return c, nil
}

// IsDevelopment reports whether detailed errors may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}

// PostgresDSN is the connection URL shared by pgx and the migrator.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// RedisAddr is the host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func getEnv(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
