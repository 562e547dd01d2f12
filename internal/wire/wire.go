package wire

import (
	"context"

	"toychat/internal/api"
	"toychat/internal/api/config"
	"toychat/internal/api/handler"
	"toychat/internal/app"
	"toychat/internal/job"
	"toychat/internal/pkg/capture"
	"toychat/internal/pkg/cron"
	"toychat/internal/pkg/media"
	"toychat/internal/pkg/realtime"
	"toychat/internal/pkg/supabase"
	"toychat/internal/repository"
	"toychat/internal/service"
	"toychat/internal/store"
	"toychat/internal/view"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router   *gin.Engine
	Loop     *app.Loop
	App      *app.App
	DB       *gorm.DB
	Realtime *realtime.Client
	CronMgr  *cron.Manager
}

func BuildApplication(ctx context.Context, db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	loop := app.NewLoop()

	sb := supabase.New(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	rt, err := realtime.Dial(ctx, cfg.Supabase.URL, cfg.Supabase.AnonKey, loop.Post)
	if err != nil {
		return nil, err
	}
	rt.SetAuth(cfg.Supabase.AnonKey)

	localStore := store.NewLocalStore(db)
	messageRepo := repository.NewMessageRepo(sb)
	roomRepo := repository.NewRoomRepo(sb)
	profileRepo := repository.NewProfileRepo(sb)

	hub := handler.NewHub()
	renderer := view.NewBridgeRenderer(hub)

	sessionService := service.NewSessionService(sb, profileRepo, localStore)
	sessionService.SetTokenListener(rt.SetAuth)

	reconcileService := service.NewReconcileService(messageRepo, localStore, sb, renderer)
	presenceService := service.NewPresenceService(
		newPresenceFactory(rt), renderer, loop.Post, reconcileService.ActiveKey)
	routerService := service.NewRouterService(
		roomRepo, localStore, reconcileService, renderer,
		newMessageFeedFactory(rt), newInboxFactory(rt), newLobbyFactory(rt))

	dmSender := newDirectSender(rt)
	reconcileService.SetDirectSender(dmSender.Send)
	reconcileService.SetPeerHook(routerService.RegisterPeer)

	connector := media.NewLiveKitConnector(loop.Post, media.NewNullProvider())
	callService := service.NewCallService(
		newTokenFetcher(sb, cfg.LiveKit.TokenFunction),
		connector, capture.NewPicker(), presenceService, renderer, cfg.LiveKit.URL)

	application := app.New(renderer, sessionService, presenceService, reconcileService, routerService, callService)
	application.OnLogout(dmSender.Reset)

	handlers := &api.HandlersGroup{
		BridgeHandler: handler.NewBridgeHandler(loop, application, hub),
	}
	router := api.SetupRouter(handlers)

	cronMgr := cron.NewCronManager(
		job.NewPresenceRefreshJob(loop, application),
		job.NewStoreCompactJob(localStore),
	)

	return &ApplicationContainer{
		Router:   router,
		Loop:     loop,
		App:      application,
		DB:       db,
		Realtime: rt,
		CronMgr:  cronMgr,
	}, nil
}
