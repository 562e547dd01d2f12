package supabase

import (
	"context"
	"time"
)

// User 认证服务中的账号
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

// Session 认证会话
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// signUpResponse 注册响应：开启邮件确认时响应体就是 user 本身，否则是完整会话
type signUpResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`

	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

// SignUp 注册账号。返回的 Session 为 nil 表示邮件确认尚未完成。
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, *User, error) {
	var out signUpResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"email":    email,
			"password": password,
			"data":     metadata,
		}).
		SetResult(&out).
		Post("/auth/v1/signup")
	if err != nil {
		return nil, nil, err
	}
	if err = wrapRestError(resp, false); err != nil {
		return nil, nil, err
	}

	if out.AccessToken == "" {
		user := &User{
			ID:               out.ID,
			Email:            out.Email,
			EmailConfirmedAt: out.EmailConfirmedAt,
			UserMetadata:     out.UserMetadata,
		}
		if out.User != nil {
			user = out.User
		}
		return nil, user, nil
	}
	sess := &Session{
		AccessToken:  out.AccessToken,
		TokenType:    out.TokenType,
		ExpiresIn:    out.ExpiresIn,
		RefreshToken: out.RefreshToken,
		User:         out.User,
	}
	return sess, sess.User, nil
}

// SignInWithPassword 密码登录
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&sess).
		Post("/auth/v1/token")
	if err != nil {
		return nil, err
	}
	if err = wrapRestError(resp, false); err != nil {
		return nil, err
	}
	return &sess, nil
}

// RefreshSession 用 refresh token 换取新会话
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var sess Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&sess).
		Post("/auth/v1/token")
	if err != nil {
		return nil, err
	}
	if err = wrapRestError(resp, false); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut 注销当前会话
func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post("/auth/v1/logout")
	if err != nil {
		return err
	}
	return wrapRestError(resp, false)
}

// GetUser 查询当前 access token 对应的账号
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&user).
		Get("/auth/v1/user")
	if err != nil {
		return nil, err
	}
	if err = wrapRestError(resp, false); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserMetadata 更新账号自定义元数据
func (c *Client) UpdateUserMetadata(ctx context.Context, metadata map[string]any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"data": metadata}).
		Put("/auth/v1/user")
	if err != nil {
		return err
	}
	return wrapRestError(resp, false)
}
