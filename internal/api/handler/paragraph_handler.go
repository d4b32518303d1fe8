package handler

import (
	"errors"

	"github.com/huangchenwei1/Puzle-Read/internal/api/dto"
	"github.com/huangchenwei1/Puzle-Read/internal/api/middleware"
	"github.com/huangchenwei1/Puzle-Read/internal/api/response"
	"github.com/huangchenwei1/Puzle-Read/internal/service"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ParagraphHandler 原文视图
type ParagraphHandler struct {
	annotationService *service.AnnotationService
}

func NewParagraphHandler(annotationService *service.AnnotationService) *ParagraphHandler {
	return &ParagraphHandler{annotationService: annotationService}
}

// List 原文段落
// @Summary 原文段落及段落评论
// @Tags 原文
// @Produce json
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=dto.ParagraphListData} "获取成功"
// @Failure 404 {object} response.ErrorResponse "文章不存在"
// @Router /articles/{id}/paragraphs [get]
func (h *ParagraphHandler) List(c *gin.Context) {
	data, err := h.annotationService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleParagraphError(c, err)
		return
	}
	response.OK(c, "获取原文成功", data)
}

// AddComment 段落评论
// @Summary 添加段落评论
// @Tags 原文
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Param pid path string true "段落ID"
// @Param request body dto.ParagraphCommentRequest true "评论内容"
// @Success 201 {object} response.Response{data=dto.ParagraphCommentInfo} "发表成功"
// @Failure 404 {object} response.ErrorResponse "文章或段落不存在"
// @Router /articles/{id}/paragraphs/{pid}/comments [post]
func (h *ParagraphHandler) AddComment(c *gin.Context) {
	var req dto.ParagraphCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	author, ok := middleware.GetCurrentUsername(c)
	if !ok {
		response.Unauthorized(c, "无法获取用户信息")
		return
	}

	info, err := h.annotationService.AddComment(c.Request.Context(), c.Param("id"), c.Param("pid"), author, &req)
	if err != nil {
		handleParagraphError(c, err)
		return
	}
	response.Created(c, "发表段落评论成功", info)
}

func handleParagraphError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrArticleNotFound),
		errors.Is(err, service.ErrParagraphNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrCommentEmpty),
		errors.Is(err, service.ErrCommentTooLong):
		response.BadRequest(c, err.Error())
	default:
		logger.Error("Paragraph operation failed", zap.Error(err))
		response.InternalError(c, "操作失败，请稍后重试")
	}
}
