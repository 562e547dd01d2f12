package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid     = errors.New("参数错误")
	ErrUsernameFormat   = errors.New("用户名只能包含字母、数字和下划线")
	ErrPasswordMismatch = errors.New("两次输入的密码不一致")
	ErrPasswordTooShort = errors.New("密码长度不足")
	ErrUsernameTaken    = errors.New("用户名已被注册")
	ErrAuth             = errors.New("凭据无效或会话已过期")
	ErrRemoteWrite      = errors.New("消息写入失败")
	ErrNotMessageOwner  = errors.New("只能编辑或删除自己的消息")
	ErrRoomExists       = errors.New("房间已存在")
	ErrToken            = errors.New("获取入会令牌失败")
	ErrMediaConnect     = errors.New("媒体服务连接失败")
	ErrSchemaMissing    = errors.New("后端数据表未初始化")
	ErrNotSignedIn      = errors.New("尚未登录")
	UnExpectedError     = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:     BadRequest,
	ErrUsernameFormat:   BadRequest,
	ErrPasswordMismatch: BadRequest,
	ErrPasswordTooShort: BadRequest,
	ErrUsernameTaken:    Conflict,
	ErrAuth:             Unauthorized,
	ErrRemoteWrite:      InternalServerError,
	ErrNotMessageOwner:  Unauthorized,
	ErrRoomExists:       Conflict,
	ErrToken:            InternalServerError,
	ErrMediaConnect:     InternalServerError,
	ErrSchemaMissing:    InternalServerError,
	ErrNotSignedIn:      Unauthorized,
	UnExpectedError:     InternalServerError,
}
