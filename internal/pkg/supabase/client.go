package supabase

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// Client 托管数据库/认证服务的 REST 客户端。
// 未登录时以 anon key 访问，登录后携带用户 access token（行级权限由服务端裁决）。
type Client struct {
	http    *resty.Client
	baseURL string
	anonKey string
}

func New(baseURL, anonKey string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("apikey", anonKey).
		SetHeader("Authorization", "Bearer "+anonKey)

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		anonKey: anonKey,
	}
}

// SetAccessToken 切换为用户身份访问；传空串回退到 anon 身份
func (c *Client) SetAccessToken(token string) {
	if token == "" {
		token = c.anonKey
	}
	c.http.SetHeader("Authorization", "Bearer "+token)
}

// BaseURL 服务根地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AnonKey 匿名访问密钥，realtime 握手也需要它
func (c *Client) AnonKey() string {
	return c.anonKey
}
