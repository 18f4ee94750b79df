package router

import (
	"inkwell/internal/db"
	"inkwell/internal/handlers"
	"inkwell/internal/middleware"
	"inkwell/internal/realtime"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, hub *realtime.Hub) {
	// Handlers
	authHandler := handlers.NewAuthHandler()
	postHandler := handlers.NewPostHandler()
	userHandler := handlers.NewUserHandler()
	categoryHandler := handlers.NewCategoryHandler()
	imageHandler := handlers.NewImageHandler()
	newsletterHandler := handlers.NewNewsletterHandler()

	commentStore := services.NewCommentStore(db.DB, services.NewIdentityResolver(db.DB))
	commentHandler := handlers.NewCommentHandler(commentStore, hub)

	// 公共路由 (Public Routes)
	r.POST("/api/signup", authHandler.Register)
	r.POST("/api/login", authHandler.Login)
	r.POST("/api/logout", authHandler.Logout)
	r.GET("/api/me", authHandler.Me)

	r.GET("/api/posts", postHandler.List)                              // 文章列表
	r.GET("/api/posts/:pid", postHandler.Detail)                       // 文章详情
	r.GET("/api/categories", categoryHandler.List)                     // 分类列表
	r.GET("/api/categories/:name/posts", postHandler.ListByCategory)   // 分类下的文章
	r.GET("/api/tags/:name/posts", postHandler.ListByTag)              // 标签下的文章
	r.GET("/api/users/:id", userHandler.Profile)                       // 用户主页
	r.POST("/api/newsletter", newsletterHandler.Subscribe)             // 订阅通讯

	r.GET("/api/posts/:pid/comments", commentHandler.List) // 评论树
	r.GET("/ws/posts/:pid", commentHandler.Stream)         // 实时评论流（订阅无需登录）

	r.GET("/img/:id", imageHandler.Proxy) // 图片反代

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/api/posts", postHandler.Create)                  // 发布文章
		authorized.PUT("/api/posts/:pid", postHandler.Update)              // 更新文章
		authorized.DELETE("/api/posts/:pid", postHandler.Delete)           // 删除文章
		authorized.POST("/api/posts/:pid/like", postHandler.Like)          // 点赞/取消点赞
		authorized.POST("/api/posts/:pid/comments", commentHandler.Create) // 发表评论

		authorized.PUT("/api/profile", userHandler.UpdateProfile)        // 更新个人资料
		authorized.POST("/api/profile/avatar", userHandler.UploadAvatar) // 上传头像
		authorized.POST("/api/upload", imageHandler.Upload)              // 上传文章配图
	}
}
