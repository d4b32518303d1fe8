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

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// List 讨论区评论
// @Summary 讨论区评论
// @Description 不含引用原文的顶层评论，回复嵌套返回
// @Tags 评论
// @Produce json
// @Param id path string true "文章ID"
// @Param sort query string false "排序: created, activity, none" default(created)
// @Success 200 {object} response.Response{data=dto.CommentListData} "获取成功"
// @Failure 400 {object} response.ErrorResponse "排序参数无效"
// @Failure 404 {object} response.ErrorResponse "文章不存在"
// @Router /articles/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	data, err := h.commentService.List(c.Request.Context(), c.Param("id"), c.Query("sort"))
	if err != nil {
		handleCommentError(c, err)
		return
	}
	response.OK(c, "获取评论列表成功", data)
}

// Quoted 引用原文的评论
// @Summary 引用原文的评论
// @Tags 评论
// @Produce json
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=dto.QuotedListData} "获取成功"
// @Failure 404 {object} response.ErrorResponse "文章不存在"
// @Router /articles/{id}/comments/quoted [get]
func (h *CommentHandler) Quoted(c *gin.Context) {
	data, err := h.commentService.Quoted(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleCommentError(c, err)
		return
	}
	response.OK(c, "获取引用评论成功", data)
}

// Create 发表评论或回复
// @Summary 发表评论
// @Description parent_id 为空时发表顶层评论，否则回复该评论
// @Tags 评论
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Param request body dto.CommentCreateRequest true "评论内容"
// @Success 201 {object} response.Response{data=dto.CommentInfo} "发表成功"
// @Failure 400 {object} response.ErrorResponse "请求参数无效"
// @Failure 404 {object} response.ErrorResponse "文章或父评论不存在"
// @Router /articles/{id}/comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	var req dto.CommentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	author, ok := middleware.GetCurrentUsername(c)
	if !ok {
		response.Unauthorized(c, "无法获取用户信息")
		return
	}

	info, err := h.commentService.Create(c.Request.Context(), c.Param("id"), author, &req)
	if err != nil {
		handleCommentError(c, err)
		return
	}
	response.Created(c, "发表评论成功", info)
}

// Vote 投票
// @Summary 评论投票
// @Description 同方向重复投票即取消
// @Tags 评论
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Param cid path string true "评论ID"
// @Param request body dto.VoteRequest true "投票方向"
// @Success 200 {object} response.Response{data=dto.CommentInfo} "投票成功"
// @Failure 404 {object} response.ErrorResponse "评论不存在"
// @Router /articles/{id}/comments/{cid}/vote [post]
func (h *CommentHandler) Vote(c *gin.Context) {
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	info, err := h.commentService.Vote(c.Request.Context(), c.Param("id"), c.Param("cid"), req.Direction)
	if err != nil {
		handleCommentError(c, err)
		return
	}
	response.OK(c, "投票成功", info)
}

// Delete 删除评论及其回复
// @Summary 删除评论
// @Tags 评论
// @Produce json
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Param cid path string true "评论ID"
// @Success 200 {object} response.Response{data=dto.CommentDeleteData} "删除成功"
// @Failure 404 {object} response.ErrorResponse "评论不存在"
// @Router /articles/{id}/comments/{cid} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	data, err := h.commentService.Delete(c.Request.Context(), c.Param("id"), c.Param("cid"))
	if err != nil {
		handleCommentError(c, err)
		return
	}
	response.OK(c, "删除评论成功", data)
}

func handleCommentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrArticleNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrParentNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrCommentEmpty),
		errors.Is(err, service.ErrCommentTooLong),
		errors.Is(err, service.ErrInvalidVote),
		errors.Is(err, service.ErrInvalidSort):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrDocumentCorrupted):
		logger.Error("Comment forest corrupted", zap.String("article_id", c.Param("id")), zap.Error(err))
		response.InternalError(c, service.ErrDocumentCorrupted.Error())
	default:
		logger.Error("Comment operation failed", zap.Error(err))
		response.InternalError(c, "操作失败，请稍后重试")
	}
}
