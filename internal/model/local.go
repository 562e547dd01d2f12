package model

import "time"

// 本地设备存储的 gorm 模型。只存视图状态，消息本体由托管数据库持久化。

// PendingSignup 注册后等待邮件确认期间暂存的用户名
type PendingSignup struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Email     string    `gorm:"uniqueIndex;type:varchar(255);not null"`
	Username  string    `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time
}

func (PendingSignup) TableName() string { return "pending_signups" }

// LocalSession 持久化的会话凭据，用于重启后恢复登录
type LocalSession struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	AccountID    string `gorm:"uniqueIndex;type:varchar(64);not null"`
	RefreshToken string `gorm:"type:varchar(512);not null"`
	UpdatedAt    time.Time
}

func (LocalSession) TableName() string { return "local_sessions" }

// PinnedMessage 置顶消息标识，按账号隔离，仅本机可见
type PinnedMessage struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AccountID string `gorm:"uniqueIndex:idx_pin_account_msg;type:varchar(64);not null"`
	MessageID string `gorm:"uniqueIndex:idx_pin_account_msg;type:varchar(64);not null"`
	ConvKey   string `gorm:"index;type:varchar(128);not null"`
	CreatedAt time.Time
}

func (PinnedMessage) TableName() string { return "pinned_messages" }

// DMPeer 已知的私聊对象，按账号隔离
type DMPeer struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AccountID string `gorm:"uniqueIndex:idx_peer_account_name;type:varchar(64);not null"`
	Peer      string `gorm:"uniqueIndex:idx_peer_account_name;type:varchar(32);not null"`
	CreatedAt time.Time
}

func (DMPeer) TableName() string { return "dm_peers" }

// UnreadCount 各会话未读计数
type UnreadCount struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AccountID string `gorm:"uniqueIndex:idx_unread_account_key;type:varchar(64);not null"`
	ConvKey   string `gorm:"uniqueIndex:idx_unread_account_key;type:varchar(128);not null"`
	Count     uint64 `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (UnreadCount) TableName() string { return "unread_counts" }
