package server

import (
	"net/http"
	"time"

	"github.com/S1D007/Chat-App-Backend/internal/auth"
	"github.com/S1D007/Chat-App-Backend/internal/config"
	"github.com/S1D007/Chat-App-Backend/internal/metrics"
	"github.com/S1D007/Chat-App-Backend/internal/mw"
	"github.com/S1D007/Chat-App-Backend/internal/service"
	"github.com/S1D007/Chat-App-Backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, gdb *gorm.DB, hub *ws.Hub, persister *ws.Persister) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	userSvc := service.NewUserService(gdb, cfg)
	chatSvc := service.NewChatService(gdb, hub)
	h := NewHandler(userSvc, chatSvc)

	r.POST("/user/signup", h.Signup)
	r.POST("/user/signin", h.Signin)

	// 需要 Bearer Token 的业务接口。
	authed := r.Group("")
	authed.Use(auth.Middleware(cfg, gdb))

	authed.GET("/available-users", h.AvailableUsers)
	authed.GET("/users", h.DiscoverableUsers)
	authed.GET("/profile", h.Profile)
	authed.POST("/create-chat-individual", h.CreateIndividualChat)
	authed.POST("/create-chat-group", h.CreateGroupChat)
	authed.GET("/chats", h.ListChats)

	r.GET("/ws", ws.Serve(hub, persister, gdb, cfg))

	return r
}
