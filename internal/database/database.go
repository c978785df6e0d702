package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"steam-market-harvester/internal/config"
	"steam-market-harvester/internal/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// DetectDriver infers the SQL dialect from the DSN shape when none is configured.
func DetectDriver(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case DriverMySQL, DriverPostgres:
		return cfg.Driver, nil
	case "":
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dsn := strings.TrimSpace(cfg.URL)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return DriverPostgres, nil
	}
	return DriverMySQL, nil
}

// Initialize opens the database, tunes the pool and migrates the schema.
func Initialize(ctx context.Context, cfg config.DatabaseConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	driver, err := DetectDriver(cfg)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		if err := EnsurePostgresDatabase(ctx, cfg.URL); err != nil {
			return nil, fmt.Errorf("ensure postgres database: %w", err)
		}
		dialector = postgres.Open(cfg.URL)
	default:
		dialector = mysql.Open(cfg.URL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"driver": driver, "dsn": MaskDSN(cfg.URL)}).Info("Database initialized successfully")
	return db, nil
}

// Migrate creates or updates the items and price_points tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Item{}, &models.PricePoint{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// EnsurePostgresDatabase connects to the maintenance database and creates
// the target database when it is missing. dsn must be in URL form.
func EnsurePostgresDatabase(ctx context.Context, dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		// key=value DSNs are used as-is
		return nil
	}
	dbname := strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
	if dbname == "" || dbname == "postgres" {
		return nil
	}

	admin := *u
	admin.Path = "/postgres"
	conn, err := pgx.Connect(ctx, admin.String())
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	var one int
	err = conn.QueryRow(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", dbname).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbname}.Sanitize())
	}
	return err
}

// MaskDSN hides the password in a DSN for logging.
func MaskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
		return u.String()
	}
	if c, err := mysqldriver.ParseDSN(dsn); err == nil {
		if c.Passwd != "" {
			c.Passwd = "****"
		}
		return c.FormatDSN()
	}
	if len(dsn) <= 20 {
		return "****"
	}
	return dsn[:10] + "****" + dsn[len(dsn)-10:]
}
