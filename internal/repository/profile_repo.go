package repository

import (
	"context"

	"toychat/internal/pkg/consts"
	"toychat/internal/pkg/supabase"
)

type profileRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ProfileRepo 账号与用户名的映射表访问
type ProfileRepo interface {
	UsernameByAccount(ctx context.Context, accountID string) (string, error)
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, accountID, username string) error
}

type profileRepoImpl struct {
	sb *supabase.Client
}

func NewProfileRepo(sb *supabase.Client) ProfileRepo {
	return &profileRepoImpl{sb: sb}
}

func (r *profileRepoImpl) UsernameByAccount(ctx context.Context, accountID string) (string, error) {
	var rows []profileRow
	err := r.sb.From(consts.ProfilesTable).
		Eq("id", accountID).
		Limit(1).
		Select(ctx, &rows)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Username, nil
}

func (r *profileRepoImpl) Exists(ctx context.Context, username string) (bool, error) {
	var rows []profileRow
	err := r.sb.From(consts.ProfilesTable).
		Eq("username", username).
		Limit(1).
		Select(ctx, &rows)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (r *profileRepoImpl) Create(ctx context.Context, accountID, username string) error {
	row := profileRow{ID: accountID, Username: username}
	return r.sb.From(consts.ProfilesTable).Insert(ctx, row, nil)
}
