package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gluk-w/aiterm/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init() error {
	dbPath := config.Cfg.DatabasePath
	dbDir := filepath.Dir(dbPath)
	if dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	if err := DB.AutoMigrate(&SavedHost{}, &Setting{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	return nil
}

func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func GetSetting(key string) (string, error) {
	var s Setting
	if err := DB.Where("key = ?", key).First(&s).Error; err != nil {
		return "", err
	}
	return s.Value, nil
}

func SetSetting(key, value string) error {
	return DB.Where("key = ?", key).Assign(Setting{Value: value}).FirstOrCreate(&Setting{Key: key}).Error
}

func DeleteSetting(key string) error {
	return DB.Where("key = ?", key).Delete(&Setting{}).Error
}

// Saved host helpers

func ListHosts() ([]SavedHost, error) {
	var hosts []SavedHost
	if err := DB.Order("name").Find(&hosts).Error; err != nil {
		return nil, err
	}
	return hosts, nil
}

func GetHost(name string) (*SavedHost, error) {
	var h SavedHost
	if err := DB.Where("name = ?", name).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// UpsertHost creates or replaces a saved host profile, keyed by name.
func UpsertHost(host *SavedHost) error {
	var existing SavedHost
	err := DB.Where("name = ?", host.Name).First(&existing).Error
	if err == nil {
		host.ID = existing.ID
		host.CreatedAt = existing.CreatedAt
		return DB.Save(host).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return DB.Create(host).Error
}

func DeleteHost(name string) error {
	return DB.Where("name = ?", name).Delete(&SavedHost{}).Error
}
