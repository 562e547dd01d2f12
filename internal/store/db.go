package store

import (
	"fmt"
	log "log/slog"

	"toychat/internal/api/config"
	"toychat/internal/model"
	"toychat/internal/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewGormDB 打开本地 SQLite 设备存储并迁移表结构
func NewGormDB(cfg *config.StoreConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	err = db.AutoMigrate(
		&model.PendingSignup{},
		&model.LocalSession{},
		&model.PinnedMessage{},
		&model.DMPeer{},
		&model.UnreadCount{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	log.Info("Local store opened.", "path", cfg.Path)
	return db, nil
}
