package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/utils"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	APIURL    string `validate:"required,url"`
	WSURL     string `validate:"required_if=Transport ws"`
	Token     string `validate:"required"`
	Transport string `validate:"oneof=ws redis"`
	RedisURL  string `validate:"required_if=Transport redis"`

	Cache       string `validate:"oneof=none sqlite postgres"`
	SQLITEDsn   string `validate:"required_if=Cache sqlite"`
	PostgresDsn string `validate:"required_if=Cache postgres"`
	CacheTTL    time.Duration

	TypingQuiet     time.Duration `validate:"min=1ms"`
	ScrollThreshold int           `validate:"min=0"`
	HTTPTimeout     time.Duration `validate:"min=1s"`
	LogLevel        slog.Level
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return def
}

func getint(key string, def int) (int, error) {
	raw := getenv(key, strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func Load() (Config, error) {
	ttl, err := getint("CACHE_TTL_SEC", 300)
	if err != nil {
		return Config{}, err
	}
	quiet, err := getint("TYPING_QUIET_MS", 2000)
	if err != nil {
		return Config{}, err
	}
	threshold, err := getint("SCROLL_THRESHOLD_PX", 0)
	if err != nil {
		return Config{}, err
	}
	timeout, err := getint("HTTP_TIMEOUT_SEC", 15)
	if err != nil {
		return Config{}, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := Config{
		APIURL:          strings.TrimRight(getenv("MMCHAT_API_URL", "http://localhost:3000"), "/"),
		WSURL:           getenv("MMCHAT_WS_URL", "ws://localhost:3000/ws"),
		Token:           getenv("MMCHAT_TOKEN", ""),
		Transport:       getenv("MMCHAT_TRANSPORT", "ws"),
		RedisURL:        getenv("REDIS_URL", ""),
		Cache:           getenv("MMCHAT_CACHE", "none"),
		SQLITEDsn:       getenv("SQLITE_DSN", "file:mmchat-cache.db"),
		PostgresDsn:     getenv("POSTGRES_DSN", ""),
		CacheTTL:        time.Duration(ttl) * time.Second,
		TypingQuiet:     time.Duration(quiet) * time.Millisecond,
		ScrollThreshold: threshold,
		HTTPTimeout:     time.Duration(timeout) * time.Second,
		LogLevel:        level,
	}
	if err := utils.Validate(validator.New(), cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
