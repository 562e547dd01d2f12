package dto

// TokenReq 入会令牌请求，字段名与 Edge Function 约定保持一致
type TokenReq struct {
	RoomName        string `json:"roomName" binding:"required"`
	ParticipantName string `json:"participantName" binding:"required"`
}

// TokenResp 入会令牌响应
type TokenResp struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}
