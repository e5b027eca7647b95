package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bloxxvault/ticket-bot/internal/domain"
)

// Config aggregates runtime configuration for the bot. It is built once in
// main and shared read-only afterwards.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Tickets  TicketConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Ops      OpsConfig
}

// AppConfig controls the ops HTTP server.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// DiscordConfig holds gateway credentials.
type DiscordConfig struct {
	Token   string
	GuildID string
}

// TicketConfig holds routing and moderation settings.
type TicketConfig struct {
	StaffRoleID      string
	LogChannelID     string
	CategoryGroups   map[domain.Category]string
	BlacklistedUsers map[string]struct{}
	BlacklistedWords []string
	BannerURL        string
	TranscriptDir    string
	CloseGracePeriod time.Duration
}

// PostgresConfig holds DB connection values for the audit archive.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values for the audit stream.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	StreamKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// OpsConfig protects the ops API.
type OpsConfig struct {
	JWTSecret string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "ticket-bot"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Discord: DiscordConfig{
			Token:   os.Getenv("DISCORD_TOKEN"),
			GuildID: os.Getenv("DISCORD_GUILD_ID"),
		},
		Tickets: TicketConfig{
			StaffRoleID:  os.Getenv("STAFF_ROLE_ID"),
			LogChannelID: os.Getenv("LOG_CHANNEL_ID"),
			CategoryGroups: categoryGroups(map[domain.Category]string{
				domain.CategoryPayments: os.Getenv("TICKET_CATEGORY_PAYMENTS"),
				domain.CategoryGeneral:  os.Getenv("TICKET_CATEGORY_GENERAL"),
				domain.CategoryOrders:   os.Getenv("TICKET_CATEGORY_ORDERS"),
				domain.CategorySupport:  os.Getenv("TICKET_CATEGORY_SUPPORT"),
				domain.CategoryDefault:  os.Getenv("TICKET_CATEGORY_DEFAULT"),
			}),
			BlacklistedUsers: idSet(splitList(os.Getenv("BLACKLISTED_USER_IDS"))),
			BlacklistedWords: lowerAll(splitList(os.Getenv("BLACKLISTED_WORDS"))),
			BannerURL:        os.Getenv("PANEL_BANNER_URL"),
			TranscriptDir:    getEnv("TRANSCRIPT_DIR", os.TempDir()),
			CloseGracePeriod: time.Duration(getEnvAsInt("TICKET_CLOSE_GRACE_MS", 1500)) * time.Millisecond,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			StreamKey: getEnv("REDIS_AUDIT_STREAM", "ticketbot:audit"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Ops: OpsConfig{
			JWTSecret: os.Getenv("OPS_JWT_SECRET"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is required"))
	}
	if c.Tickets.StaffRoleID == "" {
		errs = append(errs, errors.New("STAFF_ROLE_ID is required"))
	}
	if len(c.Tickets.CategoryGroups) == 0 {
		errs = append(errs, errors.New("at least one TICKET_CATEGORY_* group id is required"))
	}
	if c.Tickets.CloseGracePeriod < 0 {
		errs = append(errs, errors.New("TICKET_CLOSE_GRACE_MS must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsBlacklisted reports whether userID is barred from opening tickets.
func (t TicketConfig) IsBlacklisted(userID string) bool {
	_, ok := t.BlacklistedUsers[userID]
	return ok
}

// GroupFor returns the channel-group id configured for a category.
func (t TicketConfig) GroupFor(category domain.Category) (string, bool) {
	id, ok := t.CategoryGroups[category]
	return id, ok && id != ""
}

// Categories lists configured categories in panel order.
func (t TicketConfig) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(t.CategoryGroups))
	for _, category := range domain.AllCategories() {
		if _, ok := t.GroupFor(category); ok {
			out = append(out, category)
		}
	}
	return out
}

func categoryGroups(raw map[domain.Category]string) map[domain.Category]string {
	out := make(map[domain.Category]string, len(raw))
	for category, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			out[category] = id
		}
	}
	return out
}

func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func lowerAll(words []string) []string {
	for i := range words {
		words[i] = strings.ToLower(words[i])
	}
	return words
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
