package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingEnv = errors.New("missing environment variable")

type Config struct {
	Port           string
	AllowedOrigins []string
	PublicURL      string
	JWTKey         string
	PostgresURL    string

	Valkey ValkeyConfig
	Game   GameConfig

	LogLevel  string
	LogPretty bool
	Debug     bool
}

type ValkeyConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	RoomTTL  time.Duration
	CoopTTL  time.Duration
	Timeout  time.Duration
}

type GameConfig struct {
	EmptyRoomGrace  time.Duration
	ReapInterval    time.Duration
	CountdownFrom   int
	EventsPerSecond float64
	EventBurst      int
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	l := loader{}
	cfg := &Config{
		Port:        l.str("PORT", "5000"),
		PublicURL:   l.str("PUBLIC_URL", "http://localhost:3000"),
		JWTKey:      l.required("JWT_KEY"),
		PostgresURL: l.required("POSTGRES_URL"),
		Valkey: ValkeyConfig{
			Addr:     l.str("VALKEY_ADDR", "localhost:6379"),
			Username: l.str("VALKEY_USERNAME", ""),
			Password: l.str("VALKEY_PASSWORD", ""),
			DB:       l.integer("VALKEY_DB", 0),
			RoomTTL:  l.duration("ROOM_TTL", 24*time.Hour),
			CoopTTL:  l.duration("COOP_TTL", 2*time.Hour),
			Timeout:  l.duration("STORE_TIMEOUT", 2*time.Second),
		},
		Game: GameConfig{
			EmptyRoomGrace:  l.duration("EMPTY_ROOM_GRACE", 5*time.Minute),
			ReapInterval:    l.duration("REAP_INTERVAL", time.Hour),
			CountdownFrom:   l.integer("COUNTDOWN_FROM", 3),
			EventsPerSecond: l.float("EVENTS_PER_SECOND", 10),
			EventBurst:      l.integer("EVENT_BURST", 20),
		},
		LogLevel:  l.str("LOG_LEVEL", "info"),
		LogPretty: l.boolean("LOG_PRETTY", false),
		Debug:     l.boolean("DEBUG", false),
	}

	origins := l.required("ALLOWED_ORIGINS")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if len(l.errs) > 0 {
		return nil, errors.Join(l.errs...)
	}
	return cfg, nil
}

func (c *Config) Address() string {
	return ":" + c.Port
}

type loader struct {
	errs []error
}

func (l *loader) str(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func (l *loader) required(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("%w: %s", ErrMissingEnv, key))
	}
	return v
}

func (l *loader) integer(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (l *loader) float(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (l *loader) boolean(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
