package db

import (
	"fmt"

	"github.com/kasuganosora/tabletrade/config"
	dbmysql "github.com/kasuganosora/tabletrade/db/mysql"
	dbsqlite "github.com/kasuganosora/tabletrade/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"

	// MemoryPath opens a private in-memory SQLite database.
	MemoryPath = ":memory:"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite, "":
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
