package repository

import (
	"context"
	"time"

	"toychat/internal/model"
	"toychat/internal/pkg/consts"
	"toychat/internal/pkg/supabase"
)

// MessageRepo 托管数据库中的消息行访问
type MessageRepo interface {
	Insert(ctx context.Context, m *model.Message) (*model.Message, error)
	Backlog(ctx context.Context, convKey string, limit int) ([]*model.Message, error)
	// UpdateContent 仅更新属主自己的行；命中 0 行时返回 (nil, nil)
	UpdateContent(ctx context.Context, id, username, content string) (*model.Message, error)
	Delete(ctx context.Context, id, username string) error
}

type messageRepoImpl struct {
	sb *supabase.Client
}

func NewMessageRepo(sb *supabase.Client) MessageRepo {
	return &messageRepoImpl{sb: sb}
}

func (r *messageRepoImpl) Insert(ctx context.Context, m *model.Message) (*model.Message, error) {
	var rows []model.Message
	err := r.sb.From(consts.MessagesTable).Insert(ctx, m, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// 服务端未回读时以本地构造值为准
		return m, nil
	}
	return &rows[0], nil
}

func (r *messageRepoImpl) Backlog(ctx context.Context, convKey string, limit int) ([]*model.Message, error) {
	var rows []model.Message
	err := r.sb.From(consts.MessagesTable).
		Eq("room", convKey).
		Order("created_at", true).
		Limit(limit).
		Select(ctx, &rows)
	if err != nil {
		return nil, err
	}

	res := make([]*model.Message, 0, len(rows))
	for i := range rows {
		res = append(res, &rows[i])
	}
	return res, nil
}

func (r *messageRepoImpl) UpdateContent(ctx context.Context, id, username, content string) (*model.Message, error) {
	now := time.Now().UTC()
	patch := map[string]any{
		"content":   content,
		"edited_at": now,
	}

	var rows []model.Message
	err := r.sb.From(consts.MessagesTable).
		Eq("id", id).
		Eq("username", username).
		Update(ctx, patch, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *messageRepoImpl) Delete(ctx context.Context, id, username string) error {
	return r.sb.From(consts.MessagesTable).
		Eq("id", id).
		Eq("username", username).
		Delete(ctx)
}
