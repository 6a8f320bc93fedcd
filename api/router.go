package api

import (
	"github.com/gin-gonic/gin"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/handler"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/middleware"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/model"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	docHandler *handler.DocumentHandler,
	relevanceHandler *handler.RelevanceHandler,
	taskHandler *handler.TaskHandler,
) *gin.Engine {
	router := gin.New()

	// 注册自定义请求校验规则
	model.RegisterValidations()

	// 应用全局中间件
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetTraceID())
	router.Use(middleware.ErrorMiddleware())

	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	api := router.Group("/api")
	{
		// 文档管理API
		docGroup := api.Group("/documents")
		{
			// 上传文档 - POST /api/documents
			docGroup.POST("", docHandler.UploadDocument)

			// 获取文档列表 - GET /api/documents
			docGroup.GET("", docHandler.ListDocuments)

			// 删除文档 - DELETE /api/documents/:id
			docGroup.DELETE("/:id", docHandler.DeleteDocument)

			// 分析文档大纲 - GET /api/documents/:id/outline
			docGroup.GET("/:id/outline", docHandler.GetOutline)
		}

		// 相关性分析API
		api.POST("/relevance", relevanceHandler.Analyze)
		api.POST("/relevance/async", relevanceHandler.AnalyzeAsync)

		// 章节检索API
		api.POST("/search", relevanceHandler.Search)

		// 运行记录API
		runGroup := api.Group("/runs")
		{
			runGroup.GET("", relevanceHandler.ListRuns)
			runGroup.GET("/:id", relevanceHandler.GetRun)

			if taskHandler != nil {
				runGroup.GET("/:id/tasks", taskHandler.ListRunTasks)
			}
		}

		// 任务API
		if taskHandler != nil {
			taskGroup := api.Group("/tasks")
			{
				taskGroup.GET("/:id", taskHandler.GetTask)
				taskGroup.GET("/:id/wait", taskHandler.WaitTask)
				taskGroup.DELETE("/:id", taskHandler.DeleteTask)
			}
		}

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
// 需要支持浏览器跨域请求时启用
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
