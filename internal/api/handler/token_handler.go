package handler

import (
	log "log/slog"
	"net/http"

	"toychat/internal/api/config"
	"toychat/internal/api/dto"
	"toychat/internal/pkg/security"

	"github.com/gin-gonic/gin"
)

// TokenHandler 入会令牌签发入口。响应体是裸的 {token} / {error}，
// 与托管函数调用方的约定一致，不走统一响应封装。
type TokenHandler struct {
	cfg *config.LiveKitConfig
}

func NewTokenHandler(cfg *config.LiveKitConfig) *TokenHandler {
	return &TokenHandler{cfg: cfg}
}

func (s *TokenHandler) Issue(c *gin.Context) {
	var req dto.TokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.TokenResp{Error: "roomName and participantName are required"})
		return
	}

	token, err := security.GenerateCallToken(s.cfg.APIKey, s.cfg.APISecret, req.RoomName, req.ParticipantName)
	if err != nil {
		log.Error("入会令牌签发失败", "room", req.RoomName, "err", err)
		c.JSON(http.StatusInternalServerError, dto.TokenResp{Error: "token generation failed"})
		return
	}

	log.Info("入会令牌已签发", "room", req.RoomName, "participant", req.ParticipantName)
	c.JSON(http.StatusOK, dto.TokenResp{Token: token})
}
