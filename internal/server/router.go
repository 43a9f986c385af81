package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/davrbek/coursehub-backend/internal/handlers"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/utils"
)

type RouterConfig struct {
	Log                 *logger.Logger
	HealthcheckHandler  *handlers.HealthcheckHandler
	CourseHandler       *handlers.CourseHandler
	LessonHandler       *handlers.LessonHandler
	MessageHandler      *handlers.MessageHandler
	ChatHandler         *handlers.ChatHandler
	AssignmentHandler   *handlers.AssignmentHandler
	NotificationHandler *handlers.NotificationHandler
	RatingHandler       *handlers.RatingHandler
	WSHandler           *handlers.WSHandler

	OptionalAuth gin.HandlerFunc
	RequireAuth  gin.HandlerFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("coursehub-backend"))

	origins := strings.Split(utils.GetEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173", cfg.Log), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
	router.Static("/uploads", utils.GetEnv("UPLOAD_DIR", "./uploads", cfg.Log))

	// Catalog reads are public; the viewer, when present, shapes lock and
	// purchase annotations.
	public := router.Group("/api")
	public.Use(cfg.OptionalAuth)
	{
		public.GET("/courses", cfg.CourseHandler.ListCourses)
		public.GET("/courses/:id", cfg.CourseHandler.GetCourse)
		public.GET("/courses/:id/purchased", cfg.CourseHandler.CheckPurchase)
		public.GET("/courses/:id/rating", cfg.RatingHandler.CourseRating)
		public.GET("/teachers/rating", cfg.RatingHandler.TeacherRating)
		public.GET("/lessons/:id", cfg.LessonHandler.GetLesson)
		public.GET("/lessons/:id/messages", cfg.MessageHandler.ListMessages)
		public.GET("/lessons/:id/assignments", cfg.AssignmentHandler.ListAssignments)
	}

	protected := router.Group("/api")
	protected.Use(cfg.RequireAuth)
	{
		protected.POST("/courses/:id/purchase", cfg.CourseHandler.PurchaseCourse)
		protected.POST("/courses/:id/rating", cfg.RatingHandler.RateCourse)
		protected.POST("/teachers/rating", cfg.RatingHandler.RateTeacher)

		protected.POST("/lessons/:id/messages", cfg.MessageHandler.SendMessage)
		protected.PUT("/messages/:id", cfg.MessageHandler.EditMessage)
		protected.DELETE("/messages/:id", cfg.MessageHandler.DeleteMessage)
		protected.POST("/uploads", cfg.MessageHandler.UploadAttachment)

		protected.POST("/lessons/:id/chats", cfg.ChatHandler.OpenThread)
		protected.GET("/lessons/:id/chats", cfg.ChatHandler.ListThreads)
		protected.GET("/chats/recipients", cfg.ChatHandler.ListRecipients)
		protected.GET("/chats/:id/messages", cfg.ChatHandler.GetMessages)
		protected.POST("/chats/:id/messages", cfg.ChatHandler.SendMessage)
		protected.DELETE("/chats/:id/messages", cfg.ChatHandler.ClearMessages)

		protected.POST("/lessons/:id/assignments", cfg.AssignmentHandler.CreateAssignment)
		protected.POST("/lessons/:id/assignments/bulk", cfg.AssignmentHandler.BulkCreateAssignments)
		protected.POST("/assignments/:id/submissions", cfg.AssignmentHandler.SubmitAssignment)
		protected.GET("/assignments/:id/submissions", cfg.AssignmentHandler.ListSubmissions)
		protected.POST("/submissions/:id/grade", cfg.AssignmentHandler.GradeSubmission)

		protected.GET("/notifications", cfg.NotificationHandler.ListNotifications)
		protected.GET("/notifications/unread", cfg.NotificationHandler.UnreadCount)
		protected.POST("/notifications/:id/read", cfg.NotificationHandler.MarkRead)
		protected.POST("/notifications/read-all", cfg.NotificationHandler.MarkAllRead)
	}

	// Live channels authenticate after the upgrade so clients get an
	// application close code instead of a failed handshake.
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/lessons/:id/assignments", cfg.WSHandler.LessonAssignments)
		wsGroup.GET("/lessons/:id/chats", cfg.WSHandler.LessonThreads)
		wsGroup.GET("/chats/:id", cfg.WSHandler.PrivateChat)
	}

	return router
}
