package service

import (
	"context"
	log "log/slog"
	"regexp"

	"toychat/internal/api/dto"
	"toychat/internal/pkg/security"
	"toychat/internal/pkg/supabase"
	"toychat/internal/repository"
	"toychat/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const minPasswordLen = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// TokenListener 会话令牌变化通知（实时连接等持有令牌的组件订阅）
type TokenListener func(accessToken string)

// SessionService 会话网关：注册、登录、邮件确认回调与会话恢复。
// 所有入口最终收敛到 finalize，保证令牌分发与用户名解析只有一条路径。
type SessionService interface {
	SignUp(ctx context.Context, req *dto.SignUpReq) (*dto.SignUpResult, error)
	SignIn(ctx context.Context, req *dto.SignInReq) (*dto.AccountDTO, error)
	// CompleteEmailConfirmation 处理带外认证回调链接。
	// 链接无效时返回 (nil, nil)，界面停留在登录页。
	CompleteEmailConfirmation(ctx context.Context, rawURL string) (*dto.AccountDTO, error)
	// RestoreSession 冷启动时用本地 refresh token 恢复会话
	RestoreSession(ctx context.Context) (*dto.AccountDTO, error)
	SignOut(ctx context.Context)
	SetTokenListener(fn TokenListener)
}

type sessionServiceImpl struct {
	sb          *supabase.Client
	profileRepo repository.ProfileRepo
	localStore  store.LocalStore
	validate    *validator.Validate

	tokenListener TokenListener
}

func NewSessionService(
	sb *supabase.Client,
	profileRepo repository.ProfileRepo,
	localStore store.LocalStore,
) SessionService {
	return &sessionServiceImpl{
		sb:          sb,
		profileRepo: profileRepo,
		localStore:  localStore,
		validate:    validator.New(),
	}
}

func (s *sessionServiceImpl) SetTokenListener(fn TokenListener) {
	s.tokenListener = fn
}

func (s *sessionServiceImpl) SignUp(ctx context.Context, req *dto.SignUpReq) (*dto.SignUpResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(ErrParamInvalid, err.Error())
	}
	if !usernamePattern.MatchString(req.Username) {
		return nil, errors.WithStack(ErrUsernameFormat)
	}
	if len(req.Password) < minPasswordLen {
		return nil, errors.WithStack(ErrPasswordTooShort)
	}
	if req.Password != req.ConfirmPassword {
		return nil, errors.WithStack(ErrPasswordMismatch)
	}

	taken, err := s.profileRepo.Exists(ctx, req.Username)
	if err != nil && !errors.Is(err, supabase.ErrSchemaMissing) {
		log.Warn("用户名占用检查失败", "username", req.Username, "err", err)
	}
	if taken {
		return nil, errors.WithStack(ErrUsernameTaken)
	}

	sess, user, err := s.sb.SignUp(ctx, req.Email, req.Password, map[string]any{
		"username": req.Username,
	})
	if err != nil {
		if errors.Is(err, supabase.ErrConflict) {
			return nil, errors.WithStack(ErrUsernameTaken)
		}
		log.Error("注册失败", "email", req.Email, "err", err)
		return nil, errors.Wrap(UnExpectedError, err.Error())
	}

	if sess == nil {
		// 等待邮件确认。用户名先落本地，确认回调后补建 profile。
		if err := s.localStore.SavePendingUsername(ctx, req.Email, req.Username); err != nil {
			log.Warn("暂存用户名失败", "email", req.Email, "err", err)
		}
		return &dto.SignUpResult{ConfirmationRequired: true}, nil
	}

	account, err := s.finalize(ctx, sess, user)
	if err != nil {
		return nil, err
	}
	return &dto.SignUpResult{Account: account}, nil
}

func (s *sessionServiceImpl) SignIn(ctx context.Context, req *dto.SignInReq) (*dto.AccountDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(ErrParamInvalid, err.Error())
	}

	sess, err := s.sb.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, supabase.ErrBadCredentials) {
			return nil, errors.WithStack(ErrAuth)
		}
		log.Error("登录失败", "email", req.Email, "err", err)
		return nil, errors.Wrap(UnExpectedError, err.Error())
	}
	return s.finalize(ctx, sess, sess.User)
}

func (s *sessionServiceImpl) CompleteEmailConfirmation(ctx context.Context, rawURL string) (*dto.AccountDTO, error) {
	tokens, ok := security.ParseCallbackURL(rawURL)
	if !ok {
		log.Warn("认证回调链接无效，忽略")
		return nil, nil
	}

	sess, err := s.sb.RefreshSession(ctx, tokens.RefreshToken)
	if err != nil {
		log.Error("认证回调换取会话失败", "err", err)
		return nil, errors.WithStack(ErrAuth)
	}
	return s.finalize(ctx, sess, sess.User)
}

func (s *sessionServiceImpl) RestoreSession(ctx context.Context) (*dto.AccountDTO, error) {
	_, refreshToken, err := s.localStore.LastSession(ctx)
	if err != nil {
		log.Warn("读取本地会话失败", "err", err)
		return nil, nil
	}
	if refreshToken == "" {
		return nil, nil
	}

	sess, err := s.sb.RefreshSession(ctx, refreshToken)
	if err != nil {
		// 过期或被吊销的会话不算错误，回到登录页即可
		log.Info("本地会话已失效", "err", err)
		return nil, nil
	}
	return s.finalize(ctx, sess, sess.User)
}

func (s *sessionServiceImpl) SignOut(ctx context.Context) {
	if err := s.sb.SignOut(ctx); err != nil {
		log.Warn("注销远端会话失败", "err", err)
	}
	accountID, _, err := s.localStore.LastSession(ctx)
	if err == nil && accountID != "" {
		if err := s.localStore.ClearSession(ctx, accountID); err != nil {
			log.Warn("清理本地会话失败", "err", err)
		}
	}
	s.sb.SetAccessToken("")
	if s.tokenListener != nil {
		s.tokenListener(s.sb.AnonKey())
	}
}

// finalize 令牌上车、解析用户名、补建缺失的 profile 行、本地会话落盘
func (s *sessionServiceImpl) finalize(ctx context.Context, sess *supabase.Session, user *supabase.User) (*dto.AccountDTO, error) {
	if sess == nil {
		return nil, errors.WithStack(ErrAuth)
	}

	s.sb.SetAccessToken(sess.AccessToken)
	if s.tokenListener != nil {
		s.tokenListener(sess.AccessToken)
	}

	if user == nil {
		// 个别授权路径的响应不带 user，令牌上车后补查一次
		fetched, err := s.sb.GetUser(ctx)
		if err != nil || fetched == nil {
			log.Error("查询当前账号失败", "err", err)
			return nil, errors.WithStack(ErrAuth)
		}
		user = fetched
	}

	username, err := s.profileRepo.UsernameByAccount(ctx, user.ID)
	if err != nil && !errors.Is(err, supabase.ErrSchemaMissing) {
		log.Warn("查询 profile 失败", "account", user.ID, "err", err)
	}

	if username == "" {
		username = s.resolveUsername(ctx, user)
		if username == "" {
			log.Error("无法确定用户名", "account", user.ID)
			return nil, errors.WithStack(ErrAuth)
		}
		if err := s.profileRepo.Create(ctx, user.ID, username); err != nil {
			switch {
			case errors.Is(err, supabase.ErrConflict):
				return nil, errors.WithStack(ErrUsernameTaken)
			case errors.Is(err, supabase.ErrSchemaMissing):
				log.Warn("profile 表缺失，跳过补建")
			default:
				log.Warn("补建 profile 失败", "account", user.ID, "err", err)
			}
		}
	}
	if err := s.localStore.ClearPendingUsername(ctx, user.Email); err != nil {
		log.Warn("清理暂存用户名失败", "email", user.Email, "err", err)
	}

	if err := s.localStore.SaveSession(ctx, user.ID, sess.RefreshToken); err != nil {
		log.Warn("本地会话落盘失败", "account", user.ID, "err", err)
	}

	return &dto.AccountDTO{
		ID:       user.ID,
		Email:    user.Email,
		Username: username,
	}, nil
}

// resolveUsername 依次尝试账号元数据与本地暂存的注册用户名
func (s *sessionServiceImpl) resolveUsername(ctx context.Context, user *supabase.User) string {
	if v, ok := user.UserMetadata["username"].(string); ok && v != "" {
		return v
	}
	pending, err := s.localStore.PendingUsername(ctx, user.Email)
	if err != nil {
		log.Warn("读取暂存用户名失败", "email", user.Email, "err", err)
		return ""
	}
	if pending != "" {
		// 回写账号元数据，换端登录也能解析出用户名
		if err := s.sb.UpdateUserMetadata(ctx, map[string]any{"username": pending}); err != nil {
			log.Warn("回写用户名元数据失败", "err", err)
		}
	}
	return pending
}
