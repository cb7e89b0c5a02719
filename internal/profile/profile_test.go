package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"TRIAGE_MEMORY_CACHE_CAPACITY", "TRIAGE_DECISION_QUEUE_SIZE",
		"TRIAGE_LOG_MAX_SIZE_MB", "TRIAGE_LOG_MAX_BACKUPS", "TRIAGE_LOG_MAX_AGE_DAYS",
		"TRIAGE_REDIS_PASSWORD",
	} {
		t.Setenv(key, "")
	}

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 10000, p.MemoryCacheCapacity)
	assert.Equal(t, 1024, p.DecisionQueueSize)
	assert.Equal(t, 100, p.LogMaxSizeMB)
	assert.Equal(t, 5, p.LogMaxBackups)
	assert.Equal(t, 14, p.LogMaxAgeDays)
	assert.Empty(t, p.RedisPassword)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TRIAGE_DECISION_QUEUE_SIZE", "64")
	t.Setenv("TRIAGE_MEMORY_CACHE_CAPACITY", "not-a-number")
	t.Setenv("TRIAGE_REDIS_PASSWORD", "s3cret")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 64, p.DecisionQueueSize)
	assert.Equal(t, 10000, p.MemoryCacheCapacity, "invalid integers fall back to the default")
	assert.Equal(t, "s3cret", p.RedisPassword)

	p = &Profile{RedisPassword: "from-flag"}
	p.FromEnv()
	assert.Equal(t, "from-flag", p.RedisPassword)
}

func TestValidate(t *testing.T) {
	dataDir := t.TempDir()

	tests := []struct {
		name    string
		profile Profile
		wantErr string
		check   func(t *testing.T, p *Profile)
	}{
		{
			name:    "defaults without decision log",
			profile: Profile{Mode: "dev", Port: 28090},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, CacheBackendRedis, p.CacheBackend)
				assert.Equal(t, "localhost:6379", p.RedisAddr)
				assert.Equal(t, "info", p.LogLevel)
				assert.Equal(t, "text", p.LogFormat)
				assert.False(t, p.DecisionLogEnabled())
			},
		},
		{
			name:    "unknown mode becomes demo",
			profile: Profile{Mode: "staging", Port: 28090, CacheBackend: CacheBackendMemory},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "demo", p.Mode)
				assert.Empty(t, p.RedisAddr, "memory backend needs no redis address")
			},
		},
		{
			name:    "sqlite dsn derived from data dir",
			profile: Profile{Mode: "dev", Port: 28090, Driver: DriverSQLite, Data: dataDir},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, filepath.Join(dataDir, "triage_dev.db"), p.DSN)
				assert.True(t, p.DecisionLogEnabled())
			},
		},
		{
			name:    "sqlite explicit dsn kept",
			profile: Profile{Mode: "dev", Port: 28090, Driver: DriverSQLite, DSN: "/tmp/x.db"},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "/tmp/x.db", p.DSN)
			},
		},
		{
			name:    "missing data dir",
			profile: Profile{Mode: "dev", Port: 28090, Driver: DriverSQLite, Data: filepath.Join(dataDir, "nope")},
			wantErr: "unable to access data folder",
		},
		{
			name:    "postgres requires dsn",
			profile: Profile{Mode: "prod", Port: 28090, Driver: DriverPostgres},
			wantErr: "requires --dsn",
		},
		{
			name:    "unsupported driver",
			profile: Profile{Mode: "dev", Port: 28090, Driver: "mysql"},
			wantErr: "unsupported database driver",
		},
		{
			name:    "unknown cache backend",
			profile: Profile{Mode: "dev", Port: 28090, CacheBackend: "memcached"},
			wantErr: "unknown cache backend",
		},
		{
			name:    "bad port",
			profile: Profile{Mode: "dev", Port: 0},
			wantErr: "invalid port",
		},
		{
			name:    "bad log format",
			profile: Profile{Mode: "dev", Port: 28090, LogFormat: "xml"},
			wantErr: "unknown log format",
		},
		{
			name:    "bad log level",
			profile: Profile{Mode: "dev", Port: 28090, LogLevel: "verbose"},
			wantErr: "unknown log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.profile
			err := p.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, &p)
			}
		})
	}
}
