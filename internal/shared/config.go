package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string // mongo|mysql|memory
	MongoURI    string
	MongoDB     string
	MySQLDSN    string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	IDStrategy   string // scan|counter
	IDMaxRetries int
	IDFallback   bool

	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string

	LegacyBase     string
	LegacyKey      string
	LegacyRPS      int
	MigrateWorkers int
}

// Load reads the environment. A .env file in the working directory is
// applied first when present; real environment variables win.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		StoreDriver: strings.ToLower(env("STORE_DRIVER", "mongo")),
		MongoURI:    env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     env("MONGO_DB", "realestate"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/realestate?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		IDStrategy:   strings.ToLower(env("ID_STRATEGY", "scan")),
		IDMaxRetries: atoi("ID_MAX_RETRIES", 5),
		IDFallback:   envBool("ID_FALLBACK", true),

		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		MaxBodyBytes:   int64(atoi("MAX_BODY_BYTES", 1<<20)),
		CORSOrigins:    splitList(env("CORS_ALLOWED_ORIGINS", "*")),

		LegacyBase:     env("LEGACY_BASE_URL", ""),
		LegacyKey:      env("LEGACY_API_KEY", ""),
		LegacyRPS:      atoi("LEGACY_RPS", 5),
		MigrateWorkers: atoi("MIGRATE_WORKERS", 4),
	}
	if c.IDStrategy != "scan" && c.IDStrategy != "counter" {
		log.Warn().Str("ID_STRATEGY", c.IDStrategy).Msg("unknown id strategy, using scan")
		c.IDStrategy = "scan"
	}
	if c.IDMaxRetries < 1 {
		c.IDMaxRetries = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
