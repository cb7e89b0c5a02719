package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the triage server.
type Profile struct {
	Mode    string
	Addr    string
	Data    string
	Driver  string // "sqlite", "postgres" or empty to disable the decision log
	DSN     string
	Version string
	Port    int

	// Response cache store
	CacheBackend        string // "redis" or "memory"
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	MemoryCacheCapacity int

	// Routing table file; empty uses the built-in table.
	RoutingConfig string

	// Decision log writer queue
	DecisionQueueSize int

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// DecisionLogEnabled reports whether routing decisions are persisted.
func (p *Profile) DecisionLogEnabled() bool {
	return p.Driver != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("ignoring non-integer environment value", "key", key, "value", value)
	}
	return defaultValue
}

// FromEnv loads the settings that have no command-line flag.
func (p *Profile) FromEnv() {
	p.MemoryCacheCapacity = getEnvOrDefaultInt("TRIAGE_MEMORY_CACHE_CAPACITY", 10000)
	p.DecisionQueueSize = getEnvOrDefaultInt("TRIAGE_DECISION_QUEUE_SIZE", 1024)

	p.LogMaxSizeMB = getEnvOrDefaultInt("TRIAGE_LOG_MAX_SIZE_MB", 100)
	p.LogMaxBackups = getEnvOrDefaultInt("TRIAGE_LOG_MAX_BACKUPS", 5)
	p.LogMaxAgeDays = getEnvOrDefaultInt("TRIAGE_LOG_MAX_AGE_DAYS", 14)

	if p.RedisPassword == "" {
		p.RedisPassword = getEnvOrDefault("TRIAGE_REDIS_PASSWORD", "")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate fills defaults and rejects inconsistent settings.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	switch p.CacheBackend {
	case "":
		p.CacheBackend = CacheBackendRedis
	case CacheBackendRedis, CacheBackendMemory:
	default:
		return errors.Errorf("unknown cache backend %q (want %q or %q)", p.CacheBackend, CacheBackendRedis, CacheBackendMemory)
	}
	if p.CacheBackend == CacheBackendRedis && p.RedisAddr == "" {
		p.RedisAddr = "localhost:6379"
	}
	if p.RedisDB < 0 {
		return errors.Errorf("invalid redis db %d", p.RedisDB)
	}

	if err := p.validateLogging(); err != nil {
		return err
	}

	switch p.Driver {
	case "":
		return nil
	case DriverPostgres:
		if p.DSN == "" {
			return errors.New("postgres driver requires --dsn")
		}
		return nil
	case DriverSQLite:
	default:
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.DSN != "" {
		return nil
	}
	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "triage")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/triage"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir
	p.DSN = filepath.Join(dataDir, fmt.Sprintf("triage_%s.db", p.Mode))
	return nil
}

func (p *Profile) validateLogging() error {
	switch strings.ToLower(p.LogLevel) {
	case "":
		p.LogLevel = "info"
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Errorf("unknown log level %q", p.LogLevel)
	}
	switch p.LogFormat {
	case "":
		p.LogFormat = "text"
	case "text", "json":
	default:
		return errors.Errorf("unknown log format %q (want text or json)", p.LogFormat)
	}
	return nil
}
