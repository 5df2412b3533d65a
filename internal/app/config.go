package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/upwise-backend/internal/data/cache"
	"github.com/yungbote/upwise-backend/internal/data/db"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/envutil"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
	"github.com/yungbote/upwise-backend/internal/realtime/bus"
	"github.com/yungbote/upwise-backend/internal/services"
)

type Config struct {
	Env         string
	Addr        string
	CORSOrigins []string

	JWTSecretKey string

	DB     db.Config
	Otel   observability.OtelConfig
	Ledger services.LedgerConfig

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisSSEChannel string
	SummaryCacheTTL time.Duration

	HeartbeatsPerMinute int
	MetricsEnabled      bool
}

// LoadConfig reads the process environment, after merging an optional .env
// file that never overrides variables already set.
func LoadConfig(log *logger.Logger) Config {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded .env file")
	}

	env := envutil.String("APP_ENV", "development")
	streakLoc := time.UTC
	if name := envutil.String("STREAK_TIMEZONE", ""); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			streakLoc = loc
		} else {
			log.Warn("Ignoring invalid STREAK_TIMEZONE", "value", name, "error", err)
		}
	}

	jwtSecretKey := envutil.String("JWT_SECRET_KEY", "")
	if jwtSecretKey == "" {
		log.Warn("JWT_SECRET_KEY is not set; every authenticated request will be rejected")
	}

	return Config{
		Env:          env,
		Addr:         envutil.String("HTTP_ADDR", ":8080"),
		CORSOrigins:  splitList(envutil.String("CORS_ORIGINS", "")),
		JWTSecretKey: jwtSecretKey,
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "upwise"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", ""),
			SlowThreshold:    time.Duration(envutil.Int("DB_SLOW_MS", 1000)) * time.Millisecond,
		},
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "upwise-api"),
			Environment: env,
			Version:     envutil.String("APP_VERSION", "dev"),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		Ledger: services.LedgerConfig{
			MaxHoursPerCourse:   envutil.Float("MAX_HOURS_PER_COURSE", 0),
			HeartbeatMaxSeconds: envutil.Float("HEARTBEAT_MAX_SECONDS", 0),
			StreakLocation:      streakLoc,
			MaxWriteRetries:     envutil.Int("LEDGER_MAX_WRITE_RETRIES", 0),
		},
		RedisAddr:           envutil.String("REDIS_ADDR", ""),
		RedisPassword:       envutil.String("REDIS_PASSWORD", ""),
		RedisDB:             envutil.Int("REDIS_DB", 0),
		RedisSSEChannel:     envutil.String("REDIS_SSE_CHANNEL", bus.DefaultChannel),
		SummaryCacheTTL:     envutil.Seconds("SUMMARY_CACHE_TTL", cache.DefaultSummaryTTL),
		HeartbeatsPerMinute: envutil.Int("HEARTBEATS_PER_MINUTE", 12),
		MetricsEnabled:      envutil.Bool("METRICS_ENABLED", true),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
