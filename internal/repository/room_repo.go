package repository

import (
	"context"
	"time"

	"toychat/internal/model"
	"toychat/internal/pkg/consts"
	"toychat/internal/pkg/supabase"

	"github.com/google/uuid"
)

// RoomRepo 共享房间注册表访问
type RoomRepo interface {
	List(ctx context.Context) ([]*model.Room, error)
	Create(ctx context.Context, name, createdBy string) (*model.Room, error)
}

type roomRepoImpl struct {
	sb *supabase.Client
}

func NewRoomRepo(sb *supabase.Client) RoomRepo {
	return &roomRepoImpl{sb: sb}
}

func (r *roomRepoImpl) List(ctx context.Context) ([]*model.Room, error) {
	var rows []model.Room
	err := r.sb.From(consts.RoomsTable).
		Order("created_at", true).
		Select(ctx, &rows)
	if err != nil {
		return nil, err
	}

	res := make([]*model.Room, 0, len(rows))
	for i := range rows {
		res = append(res, &rows[i])
	}
	return res, nil
}

func (r *roomRepoImpl) Create(ctx context.Context, name, createdBy string) (*model.Room, error) {
	room := &model.Room{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}

	var rows []model.Room
	if err := r.sb.From(consts.RoomsTable).Insert(ctx, room, &rows); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		room = &rows[0]
	}
	return room, nil
}
