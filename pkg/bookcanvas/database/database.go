package database

import (
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// Registers the pure-Go "sqlite" database/sql driver used by sqlite-pure.
	_ "modernc.org/sqlite"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/config"
)

var DB *gorm.DB

// Connect initializes the database connection for the configured driver.
//   - sqlite: cgo SQLite through gorm's sqlite driver
//   - sqlite-pure: modernc.org/sqlite, for CGO_ENABLED=0 builds
//   - postgres: PostgreSQL through gorm's postgres driver
func Connect(cfg config.DatabaseConfig) error {
	var err error
	DB, err = Open(cfg)
	return err
}

// Open returns a new connection without touching the package-level DB.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch cfg.Driver {
	case "", "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, err
		}
		return db, singleWriter(db)
	case "sqlite-pure":
		conn, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, err
		}
		db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", Conn: conn}, gormCfg)
		if err != nil {
			return nil, err
		}
		return db, singleWriter(db)
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// singleWriter pins SQLite to one connection. Every pooled connection to
// ":memory:" would otherwise be a separate empty database, and file databases
// report "database is locked" under concurrent writers.
func singleWriter(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}
