// Package config centralizes how TalentFlow reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration shared by the server, worker and
// CLI binaries.
type Config struct {
	Address string
	LogMode string

	// Store selects the record store backend: "memory" or "postgres".
	Store       string
	DatabaseURL string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RealtimeChannel string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Region    string
	CVBucket    string

	MaxFileSize    int64
	AllowedTypes   []string
	SigningSecret  []byte
	SignedURLTTL   time.Duration
	ProcessingPool int
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

const (
	defaultAddress         = ":8080"
	defaultLogMode         = "development"
	defaultMaxFileSize     = 10 << 20 // 10 MiB
	defaultAllowedTypes    = ".pdf,.docx,.doc,.odt,.rtf,.txt"
	defaultSignedTTL       = 15 * time.Minute
	defaultWorkerCount     = 2
	defaultCVBucket        = "talentflow-cvs"
	defaultRealtimeChannel = "talentflow:changes"
	defaultS3Region        = "us-east-1"
)

// Load reads an optional .env file and then the process environment, falling
// back to defaults for anything unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Address:         readEnv("TALENTFLOW_ADDRESS", defaultAddress),
		LogMode:         readEnv("TALENTFLOW_LOG_MODE", defaultLogMode),
		Store:           strings.ToLower(readEnv("TALENTFLOW_STORE", StoreMemory)),
		DatabaseURL:     readEnv("TALENTFLOW_DATABASE_URL", ""),
		RedisAddr:       readEnv("TALENTFLOW_REDIS_ADDR", ""),
		RedisPassword:   readEnv("TALENTFLOW_REDIS_PASSWORD", ""),
		RedisDB:         parseInt("TALENTFLOW_REDIS_DB", 0),
		RealtimeChannel: readEnv("TALENTFLOW_REALTIME_CHANNEL", defaultRealtimeChannel),
		S3Endpoint:      readEnv("TALENTFLOW_S3_ENDPOINT", ""),
		S3AccessKey:     readEnv("TALENTFLOW_S3_ACCESS_KEY", ""),
		S3SecretKey:     readEnv("TALENTFLOW_S3_SECRET_KEY", ""),
		S3UseSSL:        parseBool("TALENTFLOW_S3_USE_SSL", false),
		S3Region:        readEnv("TALENTFLOW_S3_REGION", defaultS3Region),
		CVBucket:        readEnv("TALENTFLOW_CV_BUCKET", defaultCVBucket),
		MaxFileSize:     parseInt64("TALENTFLOW_MAX_FILE_BYTES", defaultMaxFileSize),
		AllowedTypes:    parseList("TALENTFLOW_ALLOWED_TYPES", defaultAllowedTypes),
		SigningSecret:   parseSecret("TALENTFLOW_SIGNING_SECRET"),
		SignedURLTTL:    parseDuration("TALENTFLOW_SIGNED_TTL", defaultSignedTTL),
		ProcessingPool:  parseInt("TALENTFLOW_WORKERS", defaultWorkerCount),
	}
	if cfg.SigningSecret == nil {
		cfg.SigningSecret = randomSecret()
	}
	if cfg.ProcessingPool <= 0 {
		cfg.ProcessingPool = defaultWorkerCount
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedTTL
	}
	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("TALENTFLOW_DATABASE_URL is required when TALENTFLOW_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown TALENTFLOW_STORE %q", cfg.Store)
	}
	return cfg, nil
}

func (c *Config) UsesPostgres() bool { return c.Store == StorePostgres }

func (c *Config) UsesRedis() bool { return c.RedisAddr != "" }

func (c *Config) UsesObjectStore() bool { return c.S3Endpoint != "" }

// AllowsFile reports whether filename's extension is in AllowedTypes.
func (c *Config) AllowsFile(filename string) bool {
	dot := strings.LastIndex(filename, ".")
	if dot < 0 {
		return false
	}
	ext := strings.ToLower(filename[dot:])
	for _, allowed := range c.AllowedTypes {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	out := strings.Split(val, ",")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
