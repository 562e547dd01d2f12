package supabase

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var (
	// ErrBadCredentials 凭据错误或会话失效
	ErrBadCredentials = errors.New("invalid credentials")
	// ErrConflict 唯一约束冲突（如用户名已占用）
	ErrConflict = errors.New("row conflict")
	// ErrSchemaMissing 后端表不存在（Postgres 42P01）
	ErrSchemaMissing = errors.New("backing table missing")
	// ErrRemoteWrite 远端写入失败
	ErrRemoteWrite = errors.New("remote write failed")
)

const pgUndefinedTable = "42P01"

// apiError PostgREST / GoTrue 的错误响应体
type apiError struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *apiError) text() string {
	for _, s := range []string{e.Message, e.Msg, e.ErrorDescription, e.ErrorField} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

// wrapRestError 将 HTTP 响应翻译为领域错误
func wrapRestError(resp *resty.Response, write bool) error {
	if resp == nil {
		return errors.New("empty response")
	}
	if !resp.IsError() {
		return nil
	}

	var body apiError
	_ = json.Unmarshal(resp.Body(), &body)

	switch {
	case body.Code == pgUndefinedTable:
		return errors.Wrap(ErrSchemaMissing, body.text())
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		return errors.Wrap(ErrBadCredentials, body.text())
	case resp.StatusCode() == http.StatusConflict:
		return errors.Wrap(ErrConflict, body.text())
	case resp.StatusCode() == http.StatusBadRequest && body.ErrorDescription != "":
		// GoTrue 把坏凭据报成 400 invalid_grant
		return errors.Wrap(ErrBadCredentials, body.text())
	}

	if write {
		return errors.Wrap(ErrRemoteWrite, fmt.Sprintf("status %d: %s", resp.StatusCode(), body.text()))
	}
	return errors.Errorf("status %d: %s", resp.StatusCode(), body.text())
}
