package job

import (
	"context"
	log "log/slog"

	"toychat/internal/pkg/logger"
	"toychat/internal/store"

	"github.com/google/uuid"
)

// StoreCompactJob 清理本地库里归零的未读计数行
type StoreCompactJob struct {
	localStore store.LocalStore
}

func NewStoreCompactJob(localStore store.LocalStore) *StoreCompactJob {
	return &StoreCompactJob{
		localStore: localStore,
	}
}

func (s *StoreCompactJob) Run() {
	traceID := "job-compact-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	if err := s.localStore.CompactUnread(ctx); err != nil {
		log.ErrorContext(ctx, "compact unread rows error", "err", err)
		return
	}
	log.InfoContext(ctx, "StoreCompactJob finished")
}
