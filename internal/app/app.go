package app

import (
	"context"
	log "log/slog"

	"toychat/internal/api/dto"
	"toychat/internal/pkg/capture"
	"toychat/internal/service"
	"toychat/internal/view"

	"github.com/pkg/errors"
)

// App 应用编排器：把会话、在线状态、消息、路由与通话五个子系统
// 串成登录/聊天两个生命周期。所有方法都必须在事件循环上调用。
type App struct {
	ctx      context.Context
	renderer view.Renderer

	session    service.SessionService
	presence   service.PresenceService
	reconciler service.ReconcileService
	router     service.RouterService
	call       service.CallService

	account *dto.AccountDTO
	// onLogout 登出时的额外清理（装配层登记）
	onLogout []func()
}

func New(
	renderer view.Renderer,
	session service.SessionService,
	presence service.PresenceService,
	reconciler service.ReconcileService,
	router service.RouterService,
	call service.CallService,
) *App {
	return &App{
		ctx:        context.Background(),
		renderer:   renderer,
		session:    session,
		presence:   presence,
		reconciler: reconciler,
		router:     router,
		call:       call,
	}
}

// Start 冷启动：能恢复会话就直进聊天视图，否则停在登录页
func (a *App) Start(ctx context.Context) {
	a.ctx = ctx

	account, err := a.session.RestoreSession(ctx)
	if err != nil || account == nil {
		a.renderer.ShowLogin()
		return
	}
	a.enterChat(account)
}

// ShellAttached 渲染壳（重）连接后回放当前视图
func (a *App) ShellAttached() {
	if a.account == nil {
		a.renderer.ShowLogin()
		return
	}
	a.renderer.ShowChat(a.account.Username)
}

func (a *App) SignUp(req *dto.SignUpReq) {
	result, err := a.session.SignUp(a.ctx, req)
	if err != nil {
		a.warn(err)
		return
	}
	if result.ConfirmationRequired {
		a.renderer.SystemNotice("Check your email to confirm your account, then open the link.")
		return
	}
	a.enterChat(result.Account)
}

func (a *App) SignIn(req *dto.SignInReq) {
	account, err := a.session.SignIn(a.ctx, req)
	if err != nil {
		a.warn(err)
		return
	}
	a.enterChat(account)
}

// HandleCallback 处理带外认证回调链接（邮件确认）
func (a *App) HandleCallback(rawURL string) {
	account, err := a.session.CompleteEmailConfirmation(a.ctx, rawURL)
	if err != nil {
		a.warn(err)
		return
	}
	if account == nil {
		return
	}
	a.enterChat(account)
}

func (a *App) enterChat(account *dto.AccountDTO) {
	a.account = account
	a.router.SetAccount(account.ID)

	a.renderer.ShowChat(account.Username)
	if err := a.reconciler.Bind(a.ctx, account.ID, account.Username); err != nil {
		log.Warn("绑定消息状态失败", "err", err)
	}
	if err := a.presence.Join(account.Username); err != nil {
		log.Error("加入 presence 失败", "err", err)
	}
	if err := a.router.Enter(a.ctx, account.Username); err != nil {
		a.warn(err)
	}
}

// OnLogout 登记登出时的额外清理
func (a *App) OnLogout(fn func()) {
	a.onLogout = append(a.onLogout, fn)
}

// Logout 登出：按依赖逆序拆除，再回登录页
func (a *App) Logout() {
	a.call.Leave()
	a.presence.Leave()
	a.router.Reset()
	a.reconciler.Reset()
	for _, fn := range a.onLogout {
		fn()
	}
	a.session.SignOut(a.ctx)
	a.account = nil
	a.renderer.ShowLogin()
}

func (a *App) SendMessage(content string, image bool) {
	var err error
	if image {
		err = a.reconciler.SendImage(a.ctx, content)
	} else {
		err = a.reconciler.Send(a.ctx, content)
	}
	if err != nil {
		log.Warn("发送失败", "err", err)
	}
}

func (a *App) EditMessage(id, content string) {
	if err := a.reconciler.Edit(a.ctx, id, content); err != nil {
		a.warn(err)
	}
}

func (a *App) DeleteMessage(id string) {
	if err := a.reconciler.Delete(a.ctx, id); err != nil {
		a.warn(err)
	}
}

func (a *App) SwitchRoom(name string) {
	if err := a.router.SwitchRoom(a.ctx, name); err != nil {
		a.warn(err)
	}
}

func (a *App) SwitchDM(peer string) {
	if err := a.router.SwitchDM(a.ctx, peer); err != nil {
		a.warn(err)
		return
	}
	// 对端不在线时私聊仍可发送，消息会在其下次上线回拉历史时出现
	if !a.presence.Online(peer) {
		a.renderer.SystemNotice(peer + " is offline. Messages will be delivered when they return.")
	}
}

func (a *App) CreateRoom(name string) {
	if err := a.router.CreateRoom(a.ctx, name); err != nil {
		a.warn(err)
	}
}

func (a *App) SetTyping(active bool) {
	a.presence.SetTyping(active, a.reconciler.ActiveKey())
}

func (a *App) PinMessage(id string, pinned bool) {
	var err error
	if pinned {
		err = a.reconciler.Pin(a.ctx, id)
	} else {
		err = a.reconciler.Unpin(a.ctx, id)
	}
	if err != nil {
		a.warn(err)
	}
}

// JoinCall 以当前会话键为通话房间名入会
func (a *App) JoinCall() {
	if a.account == nil {
		return
	}
	if err := a.call.Join(a.ctx, a.reconciler.ActiveKey(), a.account.Username); err != nil {
		log.Warn("入会失败", "err", err)
	}
}

func (a *App) LeaveCall() { a.call.Leave() }

func (a *App) SetMicEnabled(enabled bool)    { a.call.SetMicMuted(!enabled) }
func (a *App) SetCameraEnabled(enabled bool) { a.call.SetCameraMuted(!enabled) }

func (a *App) ShareScreen(sourceID string) { a.call.ShareScreen(sourceID) }
func (a *App) StopShare()                  { a.call.StopShare() }

func (a *App) SwitchDevice(kind, deviceID string) { a.call.SwitchDevice(kind, deviceID) }

func (a *App) ScreenSources() ([]capture.Source, error) {
	return a.call.ScreenSources()
}

// RefreshPresence 由定时任务驱动
func (a *App) RefreshPresence() {
	if a.account == nil {
		return
	}
	a.presence.Refresh()
}

// warn 把领域错误翻译成界面提示
func (a *App) warn(err error) {
	if err == nil {
		return
	}
	log.Warn("操作失败", "err", err)
	a.renderer.Warning(userMessage(err))
}

func userMessage(err error) string {
	for sentinel, text := range userMessages {
		if errors.Is(err, sentinel) {
			return text
		}
	}
	return "Something went wrong. Please try again."
}

var userMessages = map[error]string{
	service.ErrParamInvalid:     "Please check your input.",
	service.ErrUsernameFormat:   "Usernames may only contain letters, digits and underscores.",
	service.ErrPasswordMismatch: "Passwords do not match.",
	service.ErrPasswordTooShort: "Password must be at least 8 characters.",
	service.ErrUsernameTaken:    "That username is already taken.",
	service.ErrAuth:             "Invalid email or password.",
	service.ErrRemoteWrite:      "Could not save your change.",
	service.ErrNotMessageOwner:  "You can only edit or delete your own messages.",
	service.ErrRoomExists:       "A room with that name already exists.",
	service.ErrToken:            "Could not join the call.",
	service.ErrMediaConnect:     "Could not connect to the call.",
	service.ErrNotSignedIn:      "Please sign in first.",
}
