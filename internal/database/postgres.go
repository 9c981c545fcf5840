// Package database owns the Postgres connection pool and schema setup.
//
// Same connection-tuning idiom as a sqlite-backed GORM setup (explicit pool
// sizing, a custom GORM logger gated by an env var, idempotent bootstrap DDL
// run via db.Exec) but targeting Postgres because the full-text search index
// (GIN over to_tsvector) is a Postgres-only feature sqlite cannot provide.
package database

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// Init opens the pool and applies connection tuning. Schema migration is a
// separate step (see store.Gateway.Migrate) so tests can swap in a fresh schema.
func Init(databaseURL string) *gorm.DB {
	conn, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatal("Failed to get database handle:", err)
	}
	applyPoolTuning(sqlDB)

	db = conn
	return conn
}

func GetDB() *gorm.DB { return db }

func applyPoolTuning(sqlDB interface {
	SetMaxOpenConns(int)
	SetMaxIdleConns(int)
	SetConnMaxLifetime(time.Duration)
	SetConnMaxIdleTime(time.Duration)
}) {
	// A single shared pool of DB connections (spec §4.A concurrency note);
	// export jobs stream long reads via a cursor rather than holding a
	// connection for the whole job, so the pool can stay modest.
	maxOpen := getEnvInt("DB_MAX_OPEN_CONNS", 20)
	maxIdle := getEnvInt("DB_MAX_IDLE_CONNS", 10)

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
}

func newGormLogger() logger.Interface {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("DB_LOG_SQL")))
	lvl := logger.Warn
	if mode == "1" || mode == "true" || mode == "yes" || mode == "on" {
		lvl = logger.Info
	}

	slowMs := 200
	if v := strings.TrimSpace(os.Getenv("DB_SLOW_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			slowMs = n
		}
	}

	return logger.New(
		log.New(os.Stdout, "\r\n[gorm] ", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Duration(slowMs) * time.Millisecond,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
