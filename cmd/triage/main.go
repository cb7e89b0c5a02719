package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/triage/ai/cache"
	"github.com/hrygo/triage/ai/metrics"
	"github.com/hrygo/triage/ai/observability/logging"
	"github.com/hrygo/triage/ai/routing"
	"github.com/hrygo/triage/internal/profile"
	"github.com/hrygo/triage/internal/version"
	"github.com/hrygo/triage/server"
	apiv1 "github.com/hrygo/triage/server/router/api/v1"
	"github.com/hrygo/triage/store"
	"github.com/hrygo/triage/store/db"
)

const (
	defaultPort          = 28090
	recorderCloseTimeout = 5 * time.Second
	redisDialTimeout     = 2 * time.Second
)

var (
	rootCmd = &cobra.Command{
		Use:   "triage",
		Short: `Routes caller transcripts to the right workflow before any model is called.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Under systemd the environment comes from the unit file.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			return serve(instanceProfile)
		},
		SilenceUsage: true,
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", defaultPort)
	viper.SetDefault("cache-backend", profile.CacheBackendRedis)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", defaultPort, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "", "decision log driver (sqlite, postgres); empty disables the decision log")
	flags.String("dsn", "", "database source name(aka. DSN)")
	flags.String("cache-backend", profile.CacheBackendRedis, "response cache store (redis, memory)")
	flags.String("redis-addr", "", "redis address, defaults to localhost:6379")
	flags.String("redis-password", "", "redis password")
	flags.Int("redis-db", 0, "redis database number")
	flags.String("routing-config", "", "path to the routing table YAML; empty uses the built-in table")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("log-file", "", "write logs to this file with rotation instead of stderr")

	for _, name := range []string{
		"mode", "addr", "port", "data", "driver", "dsn",
		"cache-backend", "redis-addr", "redis-password", "redis-db",
		"routing-config", "log-level", "log-format", "log-file",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("triage")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(routeCmd, classifyCmd, versionCmd)
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:          viper.GetString("mode"),
		Addr:          viper.GetString("addr"),
		Port:          viper.GetInt("port"),
		Data:          viper.GetString("data"),
		Driver:        viper.GetString("driver"),
		DSN:           viper.GetString("dsn"),
		CacheBackend:  viper.GetString("cache-backend"),
		RedisAddr:     viper.GetString("redis-addr"),
		RedisPassword: viper.GetString("redis-password"),
		RedisDB:       viper.GetInt("redis-db"),
		RoutingConfig: viper.GetString("routing-config"),
		LogLevel:      viper.GetString("log-level"),
		LogFormat:     viper.GetString("log-format"),
		LogFile:       viper.GetString("log-file"),
		Version:       version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func loadTable(path string) (routing.IntentTable, error) {
	if path == "" {
		return routing.DefaultTable(), nil
	}
	return routing.LoadTable(path)
}

func serve(instanceProfile *profile.Profile) error {
	logger, logCloser, err := logging.New(logging.Config{
		Level:      instanceProfile.LogLevel,
		Format:     instanceProfile.LogFormat,
		File:       instanceProfile.LogFile,
		MaxSizeMB:  instanceProfile.LogMaxSizeMB,
		MaxBackups: instanceProfile.LogMaxBackups,
		MaxAgeDays: instanceProfile.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	table, err := loadTable(instanceProfile.RoutingConfig)
	if err != nil {
		return err
	}
	slog.Info("routing table loaded",
		slog.String("revision", table.Revision),
		slog.Int("intents", len(table.Intents)),
		slog.String("source", tableSource(instanceProfile.RoutingConfig)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cacheStore, cacheCloser := openCacheStore(instanceProfile)
	defer cacheCloser.Close()

	routingMetrics := metrics.NewRoutingMetrics(metrics.DefaultConfig())
	observers := []routing.Observer{routingMetrics}

	var storeInstance *store.Store
	var recorder *routing.DecisionRecorder
	if instanceProfile.DecisionLogEnabled() {
		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			printDatabaseError(err, instanceProfile)
			return err
		}
		storeInstance = store.New(dbDriver, instanceProfile)
		defer storeInstance.Close()
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return err
		}

		recorder = routing.NewDecisionRecorder(storeInstance, routing.RecorderConfig{
			QueueSize: instanceProfile.DecisionQueueSize,
			Logger:    logger,
			OnDrop:    routingMetrics.RecordDecisionLogDrop,
		})
		observers = append(observers, recorder)
	}

	responseCache := routing.NewResponseCache(cacheStore, table,
		routing.WithCacheObserver(routingMetrics),
		routing.WithCacheLogger(logger),
	)
	router := routing.NewRouter(table, responseCache,
		routing.WithObserver(routing.Observers(observers...)),
		routing.WithLogger(logger),
	)

	apiService := apiv1.NewAPIV1Service(instanceProfile, router, storeInstance, cacheStore, routingMetrics)
	s, err := server.NewServer(ctx, instanceProfile, apiService)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, terminationSignals...)

	if err := s.Start(ctx); err != nil {
		slog.Error("failed to start server", "error", err)
		return err
	}
	printGreetings(instanceProfile)

	go func() {
		<-c
		s.Shutdown(ctx)
		cancel()
	}()

	<-ctx.Done()

	if recorder != nil {
		if err := recorder.Close(recorderCloseTimeout); err != nil {
			slog.Warn("decision log not fully drained", "error", err, "pending", recorder.QueueSize())
		}
	}
	return nil
}

// openCacheStore never fails: an unreachable Redis at startup is reported
// and the client keeps reconnecting, so routing degrades to cache misses.
func openCacheStore(instanceProfile *profile.Profile) (cache.Store, io.Closer) {
	if instanceProfile.CacheBackend == profile.CacheBackendMemory {
		return cache.NewMemoryStore(instanceProfile.MemoryCacheCapacity), closerFunc(func() error { return nil })
	}

	cfg := cache.RedisConfig{
		Addr:        instanceProfile.RedisAddr,
		Password:    instanceProfile.RedisPassword,
		DB:          instanceProfile.RedisDB,
		DialTimeout: redisDialTimeout,
	}
	redisStore, err := cache.NewRedisStore(cfg)
	if err == nil {
		return redisStore, redisStore
	}

	slog.Warn("redis unreachable at startup, serving without cache until it recovers",
		slog.String("addr", cfg.Addr),
		slog.String("error", err.Error()),
	)
	redisStore = cache.NewRedisStoreFromClient(redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	}))
	return redisStore, redisStore
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func tableSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("Triage %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Mode: %s\n", profile.Mode)
	if profile.DecisionLogEnabled() {
		fmt.Printf("Decision log: %s\n", profile.Driver)
	} else {
		fmt.Println("Decision log: disabled")
	}
	fmt.Printf("Cache backend: %s\n", profile.CacheBackend)

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printDatabaseError provides user-friendly hints for decision log connection failures.
func printDatabaseError(err error, profile *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nDecision log connection failed")

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "  PostgreSQL is not reachable.")
		fmt.Fprintln(os.Stderr, "  Use SQLite instead: --driver=sqlite --data=./data")
		fmt.Fprintln(os.Stderr, "  Or disable the decision log: --driver=\"\"")
	case strings.Contains(errMsg, "SSL is not enabled") || strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "  Add ?sslmode=disable to your DSN.")
	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "  Check the credentials in TRIAGE_DSN.")
	case strings.Contains(errMsg, "permission denied"):
		fmt.Fprintf(os.Stderr, "  Check that %s is writable.\n", profile.Data)
	default:
		fmt.Fprintln(os.Stderr, "  Error:", errMsg)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
