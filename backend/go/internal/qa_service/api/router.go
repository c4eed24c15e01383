package api

import (
	"AskBot/backend/go/internal/config"
	"AskBot/backend/go/internal/qa_service/service"
	"AskBot/backend/go/pkg/httpmiddleware"
	"AskBot/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// NewRouter 创建 gin 引擎并注册所有路由。limiter 为 nil 时不限流。
func NewRouter(api *API, auth config.AuthConfig, limiter *ratelimiter.Keyed) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), httpmiddleware.RequestLogger("qa_service"))
	router.MaxMultipartMemory = service.MaxImportBytes
	RegisterRoutes(router, api, auth, limiter)
	return router
}

// RegisterRoutes registers all the routes for the QA service.
func RegisterRoutes(router *gin.Engine, api *API, auth config.AuthConfig, limiter *ratelimiter.Keyed) {
	public := []gin.HandlerFunc{}
	if limiter != nil {
		public = append(public, httpmiddleware.RateLimit(limiter))
	}
	session := RequireSession(auth.JwtSecret)
	admin := RequireRole(auth.JwtSecret, auth.AdminRole)

	router.GET("/healthz", api.HealthHandler)

	withPublic := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, public...), h)
	}
	router.POST("/ask", withPublic(api.AskHandler)...)
	router.GET("/webhook", withPublic(api.VerifyWebhookHandler)...)
	router.POST("/webhook", withPublic(api.ReceiveWebhookHandler)...)

	router.POST("/add_qa", session, api.AddQAHandler)
	router.PUT("/update_qa", admin, api.UpdateQAHandler)
	router.POST("/import_qa", admin, api.ImportQAHandler)
	router.GET("/config", admin, api.GetConfigHandler)
	router.PUT("/config", admin, api.UpdateConfigHandler)
}
