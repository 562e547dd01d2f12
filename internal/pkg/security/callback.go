package security

import (
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CallbackTokens 认证回调链接中携带的令牌对
type CallbackTokens struct {
	AccessToken  string
	RefreshToken string
}

// ParseCallbackURL 解析带外认证回调链接的 fragment 段。
// 链接畸形或令牌缺失/过期时返回 ok=false，调用方静默落入"无会话"。
func ParseCallbackURL(raw string) (CallbackTokens, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Fragment == "" {
		return CallbackTokens{}, false
	}

	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return CallbackTokens{}, false
	}

	tokens := CallbackTokens{
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return CallbackTokens{}, false
	}

	// access token 必须是未过期的 JWT；签名由认证服务校验，这里只看结构与时效
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokens.AccessToken, claims); err != nil {
		return CallbackTokens{}, false
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return CallbackTokens{}, false
	}

	return tokens, true
}
