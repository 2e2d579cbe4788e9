package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const envPrefix = "COLLEGE"

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Push modes.
const (
	PushModeFCM      = "fcm"
	PushModeLog      = "log"
	PushModeDisabled = "disabled"
)

const maxPushBatchSize = 500

// Config captures environment driven configuration values for the college API.
type Config struct {
	HTTPAddr    string
	LogLevel    string
	LogFormat   string
	StoreDriver string
	DatabaseURL string
	Location    *time.Location

	Schedule      ScheduleConfig
	SlotCacheTTL  time.Duration
	SlotCacheSize int

	Push PushConfig

	FanoutConcurrency     int
	NotificationRetention time.Duration
	NotificationPurgeCron string
}

// ScheduleConfig holds the schedule window settings.
type ScheduleConfig struct {
	LookBehind time.Duration
	LookAhead  time.Duration
	MaxSpan    time.Duration
	TaskLimit  int
	BoundTasks bool
}

// PushConfig holds the push channel settings.
type PushConfig struct {
	Mode            string
	FCMProjectID    string
	CredentialsFile string
	BatchSize       int
	Timeout         time.Duration
	Retries         int
	Async           bool
}

// LoadError lists every missing and invalid key found by Load.
type LoadError struct {
	Missing []string
	Invalid []string
}

func (e *LoadError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("必須の環境変数が設定されていません: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("環境変数の値が不正です: %s", strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}

func defaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", DriverSQLite)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("SCHEDULE_LOOKBEHIND", "720h")
	v.SetDefault("SCHEDULE_LOOKAHEAD", "1440h")
	v.SetDefault("SCHEDULE_MAX_SPAN", "2208h")
	v.SetDefault("SCHEDULE_TASK_LIMIT", "20")
	v.SetDefault("SCHEDULE_BOUND_TASKS", "false")
	v.SetDefault("SLOT_CACHE_TTL", "5m")
	v.SetDefault("SLOT_CACHE_SIZE", "512")
	v.SetDefault("PUSH_MODE", PushModeDisabled)
	v.SetDefault("PUSH_BATCH_SIZE", "500")
	v.SetDefault("PUSH_TIMEOUT", "10s")
	v.SetDefault("PUSH_RETRIES", "2")
	v.SetDefault("PUSH_ASYNC", "false")
	v.SetDefault("FANOUT_CONCURRENCY", "8")
	v.SetDefault("NOTIFICATION_RETENTION", "2160h")
	v.SetDefault("NOTIFICATION_PURGE_CRON", "@daily")
}

// Load parses configuration values from the current process environment.
//
// An optional .env file is loaded first (COLLEGE_ENV_FILE overrides its
// path); variables already present in the environment win. Every problem is
// collected before returning so operators can fix them in one pass.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	defaults(v)

	p := parser{v: v}
	cfg := Config{
		HTTPAddr:    p.str("HTTP_ADDR"),
		LogLevel:    p.oneOf("LOG_LEVEL", "debug", "info", "warn", "error"),
		LogFormat:   p.oneOf("LOG_FORMAT", "json", "text"),
		StoreDriver: p.oneOf("STORE_DRIVER", DriverSQLite, DriverPostgres, DriverMemory),
		DatabaseURL: p.str("DATABASE_URL"),
		Location:    p.location("TIMEZONE"),
		Schedule: ScheduleConfig{
			LookBehind: p.duration("SCHEDULE_LOOKBEHIND"),
			LookAhead:  p.duration("SCHEDULE_LOOKAHEAD"),
			MaxSpan:    p.duration("SCHEDULE_MAX_SPAN"),
			TaskLimit:  p.positiveInt("SCHEDULE_TASK_LIMIT"),
			BoundTasks: p.boolean("SCHEDULE_BOUND_TASKS"),
		},
		SlotCacheTTL:  p.duration("SLOT_CACHE_TTL"),
		SlotCacheSize: p.positiveInt("SLOT_CACHE_SIZE"),
		Push: PushConfig{
			Mode:            p.oneOf("PUSH_MODE", PushModeFCM, PushModeLog, PushModeDisabled),
			FCMProjectID:    p.str("FCM_PROJECT_ID"),
			CredentialsFile: p.str("FCM_CREDENTIALS_FILE"),
			BatchSize:       p.positiveInt("PUSH_BATCH_SIZE"),
			Timeout:         p.duration("PUSH_TIMEOUT"),
			Retries:         p.nonNegativeInt("PUSH_RETRIES"),
			Async:           p.boolean("PUSH_ASYNC"),
		},
		FanoutConcurrency:     p.positiveInt("FANOUT_CONCURRENCY"),
		NotificationRetention: p.duration("NOTIFICATION_RETENTION"),
		NotificationPurgeCron: p.cronSpec("NOTIFICATION_PURGE_CRON"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			p.missing("DATABASE_URL")
		}
	case DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "file:college.db?_pragma=foreign_keys(1)"
		}
	}
	if cfg.Push.Mode == PushModeFCM && cfg.Push.FCMProjectID == "" {
		p.missing("FCM_PROJECT_ID")
	}
	if cfg.Push.BatchSize > maxPushBatchSize {
		p.invalid("PUSH_BATCH_SIZE")
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv(envPrefix + "_ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

type parser struct {
	v        *viper.Viper
	missKeys []string
	badKeys  []string
}

func (p *parser) missing(key string) {
	p.missKeys = append(p.missKeys, envPrefix+"_"+key)
}

func (p *parser) invalid(key string) {
	p.badKeys = append(p.badKeys, envPrefix+"_"+key)
}

func (p *parser) err() error {
	if len(p.missKeys) == 0 && len(p.badKeys) == 0 {
		return nil
	}
	return &LoadError{Missing: p.missKeys, Invalid: p.badKeys}
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) oneOf(key string, allowed ...string) string {
	value := strings.ToLower(p.str(key))
	for _, candidate := range allowed {
		if value == candidate {
			return value
		}
	}
	p.invalid(key)
	return ""
}

func (p *parser) duration(key string) time.Duration {
	d, err := time.ParseDuration(p.str(key))
	if err != nil || d <= 0 {
		p.invalid(key)
		return 0
	}
	return d
}

func (p *parser) positiveInt(key string) int {
	n, err := strconv.Atoi(p.str(key))
	if err != nil || n <= 0 {
		p.invalid(key)
		return 0
	}
	return n
}

func (p *parser) nonNegativeInt(key string) int {
	n, err := strconv.Atoi(p.str(key))
	if err != nil || n < 0 {
		p.invalid(key)
		return 0
	}
	return n
}

func (p *parser) boolean(key string) bool {
	b, err := strconv.ParseBool(p.str(key))
	if err != nil {
		p.invalid(key)
		return false
	}
	return b
}

func (p *parser) location(key string) *time.Location {
	loc, err := time.LoadLocation(p.str(key))
	if err != nil {
		p.invalid(key)
		return nil
	}
	return loc
}

func (p *parser) cronSpec(key string) string {
	spec := p.str(key)
	if _, err := cron.ParseStandard(spec); err != nil {
		p.invalid(key)
		return ""
	}
	return spec
}
