package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/api/dto"
	"github.com/huangchenwei1/Puzle-Read/internal/api/response"
	"github.com/huangchenwei1/Puzle-Read/internal/service"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// eventKeepAlive 事件流心跳间隔
const eventKeepAlive = 25 * time.Second

type ArticleHandler struct {
	articleService *service.ArticleService
	store          *service.DocumentStore
}

func NewArticleHandler(articleService *service.ArticleService, store *service.DocumentStore) *ArticleHandler {
	return &ArticleHandler{articleService: articleService, store: store}
}

// List 文章列表
// @Summary 文章列表
// @Description 按今天、昨天、本周、本月、更久分组，内置文章与用户文章合并
// @Tags 文章
// @Produce json
// @Success 200 {object} response.Response{data=dto.ArticleListData} "获取成功"
// @Router /articles [get]
func (h *ArticleHandler) List(c *gin.Context) {
	data, err := h.articleService.List(c.Request.Context())
	if err != nil {
		handleArticleError(c, err)
		return
	}
	response.OK(c, "获取文章列表成功", data)
}

// Get 文章详情
// @Summary 文章详情
// @Tags 文章
// @Produce json
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=dto.ArticleInfo} "获取成功"
// @Failure 404 {object} response.ErrorResponse "文章不存在"
// @Router /articles/{id} [get]
func (h *ArticleHandler) Get(c *gin.Context) {
	info, err := h.articleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleArticleError(c, err)
		return
	}
	response.OK(c, "获取文章成功", info)
}

// Create 新建文章
// @Summary 新建文章
// @Description type 为 article 时手动创建，为 link 时按链接导入
// @Tags 文章
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ArticleCreateRequest true "文章信息"
// @Success 201 {object} response.Response{data=dto.ArticleInfo} "创建成功"
// @Failure 400 {object} response.ErrorResponse "请求参数无效"
// @Router /articles [post]
func (h *ArticleHandler) Create(c *gin.Context) {
	var req dto.ArticleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	info, err := h.articleService.Create(c.Request.Context(), &req)
	if err != nil {
		handleArticleError(c, err)
		return
	}
	response.Created(c, "创建文章成功", info)
}

// Update 更新文章
// @Summary 更新文章
// @Tags 文章
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Param request body dto.ArticleUpdateRequest true "更新内容"
// @Success 200 {object} response.Response{data=dto.ArticleInfo} "更新成功"
// @Failure 404 {object} response.ErrorResponse "文章不存在"
// @Router /articles/{id} [put]
func (h *ArticleHandler) Update(c *gin.Context) {
	var req dto.ArticleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	info, err := h.articleService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleArticleError(c, err)
		return
	}
	response.OK(c, "更新文章成功", info)
}

// Delete 删除文章
// @Summary 删除文章
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response "删除成功"
// @Failure 404 {object} response.ErrorResponse "文章不存在"
// @Router /articles/{id} [delete]
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.articleService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleArticleError(c, err)
		return
	}
	response.OK(c, "删除文章成功", nil)
}

// Export 导出文章快照
// @Summary 导出文章快照
// @Description 将文章与完整评论树导出为 JSON 并返回限时下载链接
// @Tags 文章
// @Produce json
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=dto.ExportData} "导出成功"
// @Failure 503 {object} response.ErrorResponse "导出服务未启用"
// @Router /articles/{id}/export [post]
func (h *ArticleHandler) Export(c *gin.Context) {
	data, err := h.articleService.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleArticleError(c, err)
		return
	}
	response.OK(c, "导出成功", data)
}

// Events 文章变更事件流
// @Summary 文章变更事件流
// @Description Server-Sent Events，评论或文章变更时推送 change 事件
// @Tags 文章
// @Produce text/event-stream
// @Param id path string true "文章ID"
// @Success 200 {string} string "事件流"
// @Failure 404 {object} response.ErrorResponse "文章不存在"
// @Router /articles/{id}/events [get]
func (h *ArticleHandler) Events(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.Load(c.Request.Context(), id); err != nil {
		handleArticleError(c, err)
		return
	}
	changes, cancel, err := h.store.Watch(id)
	if err != nil {
		handleArticleError(c, err)
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	c.SSEvent("ready", gin.H{"article_id": id})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			payload, err := json.Marshal(change)
			if err != nil {
				logger.Warn("Encode article change failed", zap.Error(err))
				continue
			}
			c.SSEvent("change", string(payload))
		case <-ticker.C:
			_, _ = fmt.Fprint(c.Writer, ": ping\n\n")
		}
		c.Writer.Flush()
	}
}

func handleArticleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrArticleNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrArticleInvalid),
		errors.Is(err, service.ErrLinkInvalid):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrExportUnavailable),
		errors.Is(err, service.ErrServiceUnavailable):
		response.ServiceUnavailable(c, err.Error())
	case errors.Is(err, service.ErrDocumentCorrupted):
		logger.Error("Article document corrupted", zap.String("article_id", c.Param("id")), zap.Error(err))
		response.InternalError(c, service.ErrDocumentCorrupted.Error())
	default:
		logger.Error("Article operation failed", zap.Error(err))
		response.InternalError(c, "操作失败，请稍后重试")
	}
}
