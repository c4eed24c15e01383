package api

import (
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/internal/qa_service/service"
	"AskBot/backend/go/internal/qa_service/store"
	"AskBot/backend/go/pkg/httpmiddleware"
	"AskBot/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// HealthFunc 检查后端依赖是否可用。
type HealthFunc func(ctx context.Context) error

// API provides handlers for the QA service.
type API struct {
	facts    store.FactStore
	configs  store.ConfigStore
	resolver *service.Resolver
	relay    *service.Relay
	importer *service.Importer
	health   HealthFunc
	logger   *logger.Logger

	// webhooks 跟踪已确认但尚未处理完的 webhook 批次。
	webhooks sync.WaitGroup
}

// NewAPI creates a new API handler. health 可以为 nil。
func NewAPI(facts store.FactStore, configs store.ConfigStore, resolver *service.Resolver, relay *service.Relay,
	importer *service.Importer, health HealthFunc, logger *logger.Logger) *API {
	return &API{
		facts:    facts,
		configs:  configs,
		resolver: resolver,
		relay:    relay,
		importer: importer,
		health:   health,
		logger:   logger,
	}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type addQARequest struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
}

type updateQARequest struct {
	ID          string  `json:"id" binding:"required"`
	NewQuestion *string `json:"new_question"`
	NewAnswer   *string `json:"new_answer"`
}

// AskHandler 直接提问。生成失败时返回明确的错误，而不是兜底回复。
func (a *API) AskHandler(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu câu hỏi"})
		return
	}

	answer, err := a.resolver.Resolve(c.Request.Context(), req.Question)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// AddQAHandler 添加一条问答，问题已存在时不覆盖。
func (a *API) AddQAHandler(c *gin.Context) {
	var req addQARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu dữ liệu"})
		return
	}

	// 客户端断开时，已经发出的写入仍然要完成。
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := a.facts.UpsertIfAbsent(ctx, req.Question, req.Answer)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !res.Inserted {
		c.JSON(http.StatusOK, gin.H{"message": "Câu hỏi đã tồn tại", "inserted": false})
		return
	}
	a.logger.WithTraceID(traceID(c)).WithUser(c.GetString("userID")).
		WithPayload(map[string]interface{}{"id": res.ID}).Info("新增问答")
	c.JSON(http.StatusOK, gin.H{"message": "Đã thêm câu hỏi thành công", "inserted": true, "id": res.ID})
}

// UpdateQAHandler 按 ID 修改问题和/或答案。
func (a *API) UpdateQAHandler(c *gin.Context) {
	var req updateQARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	if err := a.facts.Update(ctx, req.ID, req.NewQuestion, req.NewAnswer); err != nil {
		a.writeError(c, err)
		return
	}
	resp := gin.H{"message": "Cập nhật thành công"}
	if fact, err := a.facts.Get(ctx, req.ID); err == nil {
		resp["qa"] = fact
	}
	c.JSON(http.StatusOK, resp)
}

// ImportQAHandler 从上传的 xlsx 文件批量导入问答。
func (a *API) ImportQAHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không tìm thấy file"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		a.writeError(c, &service.ParseError{Reason: "cannot open upload", Unreadable: true, Err: err})
		return
	}
	defer file.Close()

	res, err := a.importer.ImportXLSX(context.WithoutCancel(c.Request.Context()), file)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.logger.WithTraceID(traceID(c)).WithUser(c.GetString("userID")).WithPayload(map[string]interface{}{
		"file":     fileHeader.Filename,
		"inserted": res.Inserted,
		"skipped":  res.Skipped,
		"blank":    res.Blank,
		"failed":   res.Failed,
	}).Info("批量导入完成")
	c.JSON(http.StatusOK, gin.H{
		"message":  "Import thành công",
		"inserted": res.Inserted,
		"skipped":  res.Skipped,
		"blank":    res.Blank,
		"failed":   res.Failed,
	})
}

// GetConfigHandler 返回当前配置记录，记录尚未初始化时返回 404。
func (a *API) GetConfigHandler(c *gin.Context) {
	cfg, err := a.configs.Peek(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy cấu hình"})
		return
	}
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdateConfigHandler 部分更新配置记录，只修改请求中出现的字段。
func (a *API) UpdateConfigHandler(c *gin.Context) {
	var patch models.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có gì để cập nhật"})
		return
	}

	if err := a.configs.Update(context.WithoutCancel(c.Request.Context()), patch); err != nil {
		a.writeError(c, err)
		return
	}
	fields := make([]string, 0, 3)
	for k := range patch.Fields() {
		fields = append(fields, k)
	}
	a.logger.WithTraceID(traceID(c)).WithUser(c.GetString("userID")).
		WithPayload(map[string]interface{}{"fields": fields}).Info("配置已更新")
	c.JSON(http.StatusOK, gin.H{"message": "Đã cập nhật cấu hình"})
}

// VerifyWebhookHandler 处理 Messenger 的订阅校验。
func (a *API) VerifyWebhookHandler(c *gin.Context) {
	challenge, err := a.relay.VerifyHandshake(c.Request.Context(),
		c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if errors.Is(err, service.ErrHandshakeRejected) {
		c.String(http.StatusForbidden, "Verification failed")
		return
	}
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.String(http.StatusOK, challenge)
}

// ReceiveWebhookHandler 校验负载后立即回复 "ok"，批次在后台按到达顺序处理。
// 单条消息的失败只记录日志，不影响响应。
func (a *API) ReceiveWebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		a.writeError(c, err)
		return
	}
	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		a.logger.WithTraceID(traceID(c)).WithErr(err).Warn("webhook 负载格式错误")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "malformed webhook payload"})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	log := a.logger.WithTraceID(traceID(c))
	a.webhooks.Add(1)
	go func() {
		defer a.webhooks.Done()
		res := a.relay.HandleEvent(ctx, event)
		log.WithPayload(map[string]interface{}{
			"delivered": res.Delivered,
			"failed":    res.Failed,
			"skipped":   res.Skipped,
			"duplicate": res.Duplicate,
			"limited":   res.Limited,
		}).Info("webhook 批次处理完成")
	}()
	c.String(http.StatusOK, "ok")
}

// Wait 等待已确认的 webhook 批次处理完毕，ctx 到期时返回 ctx.Err()。
func (a *API) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.webhooks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HealthHandler 报告服务及其依赖的健康状况。
func (a *API) HealthHandler(c *gin.Context) {
	if a.health != nil {
		if err := a.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func traceID(c *gin.Context) string {
	return httpmiddleware.TraceID(c)
}
