package security

import (
	"fmt"

	"github.com/livekit/protocol/auth"
)

// GenerateCallToken 为 (房间, 参与者) 签发短期入会令牌，
// 授予 join/publish/subscribe/publishData 四项权限。
func GenerateCallToken(apiKey, apiSecret, roomName, participantName string) (string, error) {
	canPublish := true
	canSubscribe := true
	canPublishData := true

	grant := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           roomName,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublishData,
	}

	at := auth.NewAccessToken(apiKey, apiSecret).
		SetVideoGrant(grant).
		SetIdentity(participantName).
		SetName(participantName).
		SetValidFor(CallTokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("签名入会令牌失败: %w", err)
	}
	return token, nil
}
