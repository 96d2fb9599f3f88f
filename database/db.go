package database

import (
	"errors"
	"fmt"
	"log/slog" // use slog for structured logging
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"appgambit/internal/config"
	"appgambit/internal/middleware/auth"
	"appgambit/internal/microservices/http-api/models"
)

const sqlitePrefix = "sqlite:"

// Models lists every table managed by Migrate, parents first.
func Models() []any {
	return []any{
		&models.User{},
		&models.ExternalLogin{},
		&models.RefreshToken{},
		&models.Tag{},
		&models.Application{},
		&models.ImageData{},
		&models.Comment{},
		&models.Rating{},
	}
}

// Connect opens the database named by cfg.DatabaseURL and applies migrations.
// A "sqlite:<path>" URL selects the embedded driver; anything else is a
// Postgres DSN.
func Connect(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Verify the connection
	if err := sqlDB.Ping(); err != nil {
		// close the handle if ping fails to avoid resource leak
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Connected to the database successfully", "driver", db.Dialector.Name())
	return db, nil
}

// Open returns a gorm handle without migrating. Errors from both drivers are
// translated so callers can match gorm.ErrDuplicatedKey.
func Open(url string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		dialector = sqlite.Open(sqliteDSN(path))
	} else {
		dialector = postgres.Open(url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	if strings.Contains(path, "_pragma=foreign_keys") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

func Migrate(db *gorm.DB, logger *slog.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")
	return nil
}

// EnsureAdmin creates an admin account, or promotes the existing account with
// that username. It backs the cli "create-admin" command.
func EnsureAdmin(db *gorm.DB, username, email, password string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	switch {
	case err == nil:
		if err := db.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
			return nil, fmt.Errorf("promote user: %w", err)
		}
		user.Role = models.RoleAdmin
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user = models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return &user, nil
}

func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
