package supabase

import (
	"context"
)

// InvokeFunction 调用 Edge Function 并反序列化响应
func (c *Client) InvokeFunction(ctx context.Context, name string, body any, dest any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(dest).
		Post("/functions/v1/" + name)
	if err != nil {
		return err
	}
	return wrapRestError(resp, false)
}
