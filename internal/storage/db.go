package storage

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clipforge/internal/appdirs"
	"clipforge/internal/types"
	"clipforge/log"
)

var appDirsResolver = appdirs.Resolve

// Open connects to the sqlite database and migrates the schema. An empty
// path resolves to the data dir.
func Open(path string) (*gorm.DB, error) {
	dbPath, err := resolveDBPath(path)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err = Migrate(db); err != nil {
		return nil, err
	}

	log.GetLogger().Info("Database initialized successfully", zap.String("path", dbPath))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&types.Video{}, &types.Clip{}, &types.Job{})
}

func resolveDBPath(configured string) (string, error) {
	if p := strings.TrimSpace(configured); p != "" {
		return p, nil
	}
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.DBPathFor(dirs), nil
}
