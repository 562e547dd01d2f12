package supabase

import (
	"context"
	"fmt"
)

// UploadObject 上传对象到托管存储，返回公共访问地址
func (c *Client) UploadObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Post(fmt.Sprintf("/storage/v1/object/%s/%s", bucket, objectName))
	if err != nil {
		return "", err
	}
	if err = wrapRestError(resp, true); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, objectName), nil
}
