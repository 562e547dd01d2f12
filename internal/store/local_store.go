package store

import (
	"context"
	"errors"

	"toychat/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocalStore 本地设备存储接口定义
type LocalStore interface {
	SavePendingUsername(ctx context.Context, email, username string) error
	PendingUsername(ctx context.Context, email string) (string, error)
	ClearPendingUsername(ctx context.Context, email string) error

	SaveSession(ctx context.Context, accountID, refreshToken string) error
	LastSession(ctx context.Context) (accountID, refreshToken string, err error)
	ClearSession(ctx context.Context, accountID string) error

	Pin(ctx context.Context, accountID, convKey, messageID string) error
	Unpin(ctx context.Context, accountID, messageID string) error
	PinnedIDs(ctx context.Context, accountID, convKey string) ([]string, error)

	AddPeer(ctx context.Context, accountID, peer string) error
	Peers(ctx context.Context, accountID string) ([]string, error)

	SetUnread(ctx context.Context, accountID, convKey string, count uint64) error
	Unread(ctx context.Context, accountID string) (map[string]uint64, error)
	CompactUnread(ctx context.Context) error
}

type localStoreImpl struct {
	db *gorm.DB
}

func NewLocalStore(db *gorm.DB) LocalStore {
	return &localStoreImpl{db: db}
}

func (s *localStoreImpl) SavePendingUsername(ctx context.Context, email, username string) error {
	row := &model.PendingSignup{Email: email, Username: username}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"username"}),
		}).
		Create(row).Error
}

func (s *localStoreImpl) PendingUsername(ctx context.Context, email string) (string, error) {
	var row model.PendingSignup
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Username, nil
}

func (s *localStoreImpl) ClearPendingUsername(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Where("email = ?", email).Delete(&model.PendingSignup{}).Error
}

func (s *localStoreImpl) SaveSession(ctx context.Context, accountID, refreshToken string) error {
	row := &model.LocalSession{AccountID: accountID, RefreshToken: refreshToken}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"refresh_token", "updated_at"}),
		}).
		Create(row).Error
}

func (s *localStoreImpl) LastSession(ctx context.Context) (string, string, error) {
	var row model.LocalSession
	err := s.db.WithContext(ctx).Order("updated_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return row.AccountID, row.RefreshToken, nil
}

func (s *localStoreImpl) ClearSession(ctx context.Context, accountID string) error {
	return s.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.LocalSession{}).Error
}

func (s *localStoreImpl) Pin(ctx context.Context, accountID, convKey, messageID string) error {
	row := &model.PinnedMessage{AccountID: accountID, ConvKey: convKey, MessageID: messageID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

func (s *localStoreImpl) Unpin(ctx context.Context, accountID, messageID string) error {
	return s.db.WithContext(ctx).
		Where("account_id = ? AND message_id = ?", accountID, messageID).
		Delete(&model.PinnedMessage{}).Error
}

func (s *localStoreImpl) PinnedIDs(ctx context.Context, accountID, convKey string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.PinnedMessage{}).
		Where("account_id = ? AND conv_key = ?", accountID, convKey).
		Order("created_at ASC").
		Pluck("message_id", &ids).Error
	return ids, err
}

func (s *localStoreImpl) AddPeer(ctx context.Context, accountID, peer string) error {
	row := &model.DMPeer{AccountID: accountID, Peer: peer}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

func (s *localStoreImpl) Peers(ctx context.Context, accountID string) ([]string, error) {
	var peers []string
	err := s.db.WithContext(ctx).Model(&model.DMPeer{}).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Pluck("peer", &peers).Error
	return peers, err
}

func (s *localStoreImpl) SetUnread(ctx context.Context, accountID, convKey string, count uint64) error {
	row := &model.UnreadCount{AccountID: accountID, ConvKey: convKey, Count: count}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "conv_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
		}).
		Create(row).Error
}

func (s *localStoreImpl) Unread(ctx context.Context, accountID string) (map[string]uint64, error) {
	var rows []model.UnreadCount
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make(map[string]uint64, len(rows))
	for _, r := range rows {
		res[r.ConvKey] = r.Count
	}
	return res, nil
}

func (s *localStoreImpl) CompactUnread(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("count = 0").Delete(&model.UnreadCount{}).Error
}
