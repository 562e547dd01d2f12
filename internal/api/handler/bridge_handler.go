package handler

import (
	log "log/slog"
	"net/http"

	"toychat/internal/api/dto"
	"toychat/internal/app"
	"toychat/internal/pkg/consts"
	"toychat/internal/pkg/response"
	"toychat/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// 渲染壳操作名
const (
	actionSignUp        = "sign_up"
	actionSignIn        = "sign_in"
	actionAuthCallback  = "auth_callback"
	actionSignOut       = "sign_out"
	actionSendMessage   = "send_message"
	actionEditMessage   = "edit_message"
	actionDeleteMessage = "delete_message"
	actionSwitchRoom    = "switch_room"
	actionSwitchDM      = "switch_dm"
	actionCreateRoom    = "create_room"
	actionTyping        = "typing"
	actionPin           = "pin"
	actionJoinCall      = "join_call"
	actionLeaveCall     = "leave_call"
	actionMic           = "mic"
	actionCamera        = "camera"
	actionShareScreen   = "share_screen"
	actionStopShare     = "stop_share"
	actionSwitchDevice  = "switch_device"
	actionScreenSources = "screen_sources"
)

// BridgeHandler 渲染壳的 Websocket 入口。收到的每个操作都被投递到
// 应用事件循环执行，读循环本身不碰任何组件状态。
type BridgeHandler struct {
	loop *app.Loop
	app  *app.App
	hub  *Hub
}

func NewBridgeHandler(loop *app.Loop, application *app.App, hub *Hub) *BridgeHandler {
	return &BridgeHandler{
		loop: loop,
		app:  application,
		hub:  hub,
	}
}

func (s *BridgeHandler) Connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("桥接协议升级失败", "err", err)
		return
	}

	if old := s.hub.Attach(conn); old != nil {
		log.Info("新渲染壳连接顶替旧连接")
		_ = old.Close()
	}
	log.Info("渲染壳已连接")

	s.loop.Post(s.app.ShellAttached)

	defer func() {
		s.hub.Detach(conn)
		_ = conn.Close()
		log.Info("渲染壳连接已断开")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var action dto.BridgeAction
		if err := json.Unmarshal(data, &action); err != nil {
			log.Warn("操作解析失败", "err", err)
			continue
		}
		s.dispatch(&action)
	}
}

// dispatch 解码载荷并投递到事件循环
func (s *BridgeHandler) dispatch(action *dto.BridgeAction) {
	switch action.Type {
	case actionSignUp:
		var p dto.SignUpAction
		if !decode(action, &p) {
			return
		}
		req := &dto.SignUpReq{
			Username:        p.Username,
			Email:           p.Email,
			Password:        p.Password,
			ConfirmPassword: p.ConfirmPassword,
		}
		s.loop.Post(func() { s.app.SignUp(req) })

	case actionSignIn:
		var p dto.SignInAction
		if !decode(action, &p) {
			return
		}
		req := &dto.SignInReq{Email: p.Email, Password: p.Password}
		s.loop.Post(func() { s.app.SignIn(req) })

	case actionAuthCallback:
		var p dto.CallbackReq
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.HandleCallback(p.URL) })

	case actionSignOut:
		s.loop.Post(s.app.Logout)

	case actionSendMessage:
		var p dto.SendMessageAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.SendMessage(p.Content, p.Image) })

	case actionEditMessage:
		var p dto.EditMessageAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.EditMessage(p.ID, p.Content) })

	case actionDeleteMessage:
		var p dto.DeleteMessageAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.DeleteMessage(p.ID) })

	case actionSwitchRoom:
		var p dto.SwitchRoomAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.SwitchRoom(p.Room) })

	case actionSwitchDM:
		var p dto.SwitchDMAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.SwitchDM(p.Peer) })

	case actionCreateRoom:
		var p dto.CreateRoomAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.CreateRoom(p.Name) })

	case actionTyping:
		var p dto.TypingAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.SetTyping(p.Active) })

	case actionPin:
		var p dto.PinAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.PinMessage(p.MessageID, p.Pinned) })

	case actionJoinCall:
		s.loop.Post(s.app.JoinCall)

	case actionLeaveCall:
		s.loop.Post(s.app.LeaveCall)

	case actionMic:
		var p dto.ToggleAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.SetMicEnabled(p.Enabled) })

	case actionCamera:
		var p dto.ToggleAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.SetCameraEnabled(p.Enabled) })

	case actionShareScreen:
		var p dto.ShareScreenAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.ShareScreen(p.SourceID) })

	case actionStopShare:
		s.loop.Post(s.app.StopShare)

	case actionSwitchDevice:
		var p dto.SwitchDeviceAction
		if !decode(action, &p) {
			return
		}
		s.loop.Post(func() { s.app.SwitchDevice(p.Kind, p.DeviceID) })

	case actionScreenSources:
		s.loop.Post(func() {
			sources, err := s.app.ScreenSources()
			if err != nil {
				return
			}
			s.hub.Emit(view.EvScreenSources, sources)
		})

	default:
		log.Warn("未知操作", "type", action.Type)
	}
}

func decode(action *dto.BridgeAction, dest any) bool {
	if err := json.Unmarshal(action.Payload, dest); err != nil {
		log.Warn("操作载荷解析失败", "type", action.Type, "err", err)
		return false
	}
	return true
}

// Version 供渲染壳确认宿主协议版本
func (s *BridgeHandler) Version(c *gin.Context) {
	response.Success(c, gin.H{"version": consts.Version})
}

// Callback 带外认证回调入口：系统浏览器打开确认链接后由壳转交
func (s *BridgeHandler) Callback(c *gin.Context) {
	var req dto.CallbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	s.loop.Post(func() { s.app.HandleCallback(req.URL) })
	response.Success(c, nil)
}

// Sources 屏幕源枚举的 HTTP 入口，供壳在弹选择器前同步拉取
func (s *BridgeHandler) Sources(c *gin.Context) {
	sources, err := s.app.ScreenSources()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sources)
}
