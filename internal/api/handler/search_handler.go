package handler

import (
	"errors"

	"github.com/huangchenwei1/Puzle-Read/internal/api/dto"
	"github.com/huangchenwei1/Puzle-Read/internal/api/response"
	"github.com/huangchenwei1/Puzle-Read/internal/service"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SearchHandler struct {
	searchService *service.SearchService
}

func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchArticles 搜索文章
// @Summary 搜索文章
// @Description 在标题、正文与评论中检索，Elasticsearch 不可用时降级到数据库
// @Tags 搜索
// @Produce json
// @Param q query string true "搜索关键词"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=dto.SearchArticleData} "搜索成功"
// @Failure 400 {object} response.ErrorResponse "请求参数无效"
// @Router /search/articles [get]
func (h *SearchHandler) SearchArticles(c *gin.Context) {
	var req dto.SearchArticleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	data, err := h.searchService.Search(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrSearchKeywordEmpty) {
			response.BadRequest(c, err.Error())
			return
		}
		logger.Error("Search articles failed", zap.Error(err))
		response.InternalError(c, "搜索失败")
		return
	}

	response.OK(c, "搜索成功", data)
}

// SyncArticles 重建文章索引
// @Summary 重建文章索引
// @Description 将全部文章（含内置文章）批量写入 Elasticsearch
// @Tags 搜索
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=dto.SyncResultData} "同步完成"
// @Failure 503 {object} response.ErrorResponse "搜索服务未启用"
// @Router /search/sync [post]
func (h *SearchHandler) SyncArticles(c *gin.Context) {
	data, err := h.searchService.Reindex(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrServiceUnavailable) {
			response.ServiceUnavailable(c, err.Error())
			return
		}
		logger.Error("Sync articles to ES failed", zap.Error(err))
		response.InternalError(c, "同步失败")
		return
	}

	response.OK(c, "同步完成", data)
}
