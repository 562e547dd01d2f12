package api

import (
	"net/http"

	"toychat/internal/api/handler"
	"toychat/internal/api/middleware"
	"toychat/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

type HandlersGroup struct {
	BridgeHandler *handler.BridgeHandler
}

// SetupRouter 组装宿主进程的桥接路由
func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})
		apiGroup.GET("/version", group.BridgeHandler.Version)

		// 渲染壳双向桥接
		apiGroup.GET("/bridge", group.BridgeHandler.Connect)
		// 带外认证回调（邮件确认链接由系统浏览器转交）
		apiGroup.POST("/callback", group.BridgeHandler.Callback)

		apiGroup.GET("/sources", group.BridgeHandler.Sources)
	}

	return r
}

// SetupTokenRouter 组装令牌服务路由
func SetupTokenRouter(tokenHandler *handler.TokenHandler) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	r.POST("/api/token", tokenHandler.Issue)

	return r
}
