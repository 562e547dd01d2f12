package dto

import "github.com/goccy/go-json"

// BridgeAction 渲染壳发往宿主的用户操作
type BridgeAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// BridgeEvent 宿主推送给渲染壳的渲染指令
type BridgeEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// 操作载荷
type (
	SignUpAction struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}

	SignInAction struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	SendMessageAction struct {
		Content string `json:"content"`
		Image   bool   `json:"image"`
	}

	EditMessageAction struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}

	DeleteMessageAction struct {
		ID string `json:"id"`
	}

	SwitchRoomAction struct {
		Room string `json:"room"`
	}

	SwitchDMAction struct {
		Peer string `json:"peer"`
	}

	CreateRoomAction struct {
		Name string `json:"name"`
	}

	TypingAction struct {
		Active bool `json:"active"`
	}

	PinAction struct {
		MessageID string `json:"message_id"`
		Pinned    bool   `json:"pinned"`
	}

	ToggleAction struct {
		Enabled bool `json:"enabled"`
	}

	ShareScreenAction struct {
		SourceID string `json:"source_id"`
	}

	SwitchDeviceAction struct {
		Kind     string `json:"kind"` // audioinput / videoinput
		DeviceID string `json:"device_id"`
	}
)
