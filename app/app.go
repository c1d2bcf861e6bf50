package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"equipment_lending/cache"
	"equipment_lending/db"
	"equipment_lending/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Config Config
	Log    zerolog.Logger

	appSess    *session.AppSessionStore
	categories *cache.CategoryCache
}

// Config 从环境变量读取
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPwd      string
	WebOrigin     string
	Port          string
	LogLevel      string
	LogJSON       bool
	SessionTTL    time.Duration
	CategoryTTL   time.Duration
	SeenThrottle  time.Duration
	BootstrapUser string
	BootstrapMail string
	BootstrapPwd  string
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Categories() *cache.CategoryCache      { return a.categories }

func MustNew() *App {
	cfg := loadConfig()
	logger := NewLogger(cfg)

	// --- DB: Postgres ---
	dbConn, err := db.ConnectDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis")
	}

	return New(cfg, dbConn, rdb, logger)
}

// New wires an App around already-open connections.
func New(cfg Config, dbConn *gorm.DB, rdb *redis.Client, logger zerolog.Logger) *App {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))
	useCORS(r, cfg.WebOrigin)
	return &App{
		Router: r, DB: dbConn, RDB: rdb, Config: cfg, Log: logger,
		appSess:    session.NewAppSessionStore(rdb, cfg.SessionTTL),
		categories: cache.NewCategoryCache(rdb, cfg.CategoryTTL),
	}
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// NewLogger builds the process logger: console output for development, JSON
// when LOG_FORMAT=json.
func NewLogger(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if cfg.LogJSON {
		l = zerolog.New(os.Stdout)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	l = l.Level(level).With().Timestamp().Logger()
	log.Logger = l
	return l
}

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}
	seconds := func(k string, def time.Duration) time.Duration {
		n, err := strconv.Atoi(os.Getenv(k))
		if err != nil || n <= 0 {
			return def
		}
		return time.Duration(n) * time.Second
	}
	return Config{
		DatabaseURL:   databaseURL(get),
		RedisAddr:     get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:      os.Getenv("REDIS_PASSWORD"),
		WebOrigin:     get("WEB_ORIGIN", "http://localhost:5173"),
		Port:          get("PORT", "3001"),
		LogLevel:      strings.ToLower(get("LOG_LEVEL", "info")),
		LogJSON:       strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		SessionTTL:    seconds("SESSION_TTL_SECONDS", 24*time.Hour),
		CategoryTTL:   seconds("CATEGORY_CACHE_TTL_SECONDS", 10*time.Minute),
		SeenThrottle:  seconds("LAST_SEEN_THROTTLE_SECONDS", 5*time.Minute),
		BootstrapUser: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapMail: os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapPwd:  os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}
}

// databaseURL prefers DATABASE_URL and otherwise assembles a DSN from DB_*.
func databaseURL(get func(k, def string) string) string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		get("DB_HOST", "127.0.0.1"),
		get("DB_USER", "postgres"),
		get("DB_PASSWORD", "postgres"),
		get("DB_NAME", "equipment_lending"),
		get("DB_PORT", "5432"),
		get("DB_SSLMODE", "disable"),
	)
}
