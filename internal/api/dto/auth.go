package dto

// SignUpReq 注册请求
type SignUpReq struct {
	Username        string `json:"username" validate:"required,min=2,max=32"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// SignInReq 登录请求
type SignInReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpResult 注册结果。ConfirmationRequired 不是失败，而是等待邮件确认的中间态。
type SignUpResult struct {
	ConfirmationRequired bool        `json:"confirmation_required"`
	Account              *AccountDTO `json:"account,omitempty"`
}

// AccountDTO 已登录账号
type AccountDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// CallbackReq 带外认证回调
type CallbackReq struct {
	URL string `json:"url" binding:"required"`
}
