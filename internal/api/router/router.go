package router

import (
	"github.com/huangchenwei1/Puzle-Read/internal/api/handler"
	"github.com/huangchenwei1/Puzle-Read/internal/api/middleware"
	"github.com/huangchenwei1/Puzle-Read/internal/config"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Handlers 路由依赖的全部 Handler
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Article   *handler.ArticleHandler
	Comment   *handler.CommentHandler
	Paragraph *handler.ParagraphHandler
	Search    *handler.SearchHandler
}

// New 创建 Gin 引擎并挂载通用中间件
func New(app *config.AppConfig, cors *config.CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(otelgin.Middleware(app.Name))
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors.AllowOrigins))
	return r
}

// Setup 注册所有业务路由
func Setup(r *gin.Engine, h Handlers, adminMiddleware gin.HandlerFunc) {
	r.GET("/health", h.Health.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// --- 认证模块 ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", middleware.AuthRequired(), h.Auth.Me)
	}

	// --- 文章模块 ---
	articles := v1.Group("/articles")
	{
		articles.GET("", h.Article.List)
		articles.GET("/:id", h.Article.Get)
		articles.GET("/:id/events", h.Article.Events)
		articles.GET("/:id/comments", h.Comment.List)
		articles.GET("/:id/comments/quoted", h.Comment.Quoted)
		articles.GET("/:id/paragraphs", h.Paragraph.List)

		articlesAuth := articles.Group("", middleware.AuthRequired())
		{
			articlesAuth.POST("", h.Article.Create)
			articlesAuth.PUT("/:id", h.Article.Update)
			articlesAuth.DELETE("/:id", h.Article.Delete)
			articlesAuth.POST("/:id/export", h.Article.Export)

			articlesAuth.POST("/:id/comments", h.Comment.Create)
			articlesAuth.POST("/:id/comments/:cid/vote", h.Comment.Vote)
			articlesAuth.DELETE("/:id/comments/:cid", h.Comment.Delete)

			articlesAuth.POST("/:id/paragraphs/:pid/comments", h.Paragraph.AddComment)
		}
	}

	// --- 搜索模块 ---
	search := v1.Group("/search")
	{
		search.GET("/articles", h.Search.SearchArticles)
		search.POST("/sync", middleware.AuthRequired(), adminMiddleware, h.Search.SyncArticles)
	}
}
