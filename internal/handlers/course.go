package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/requestdata"
	"github.com/davrbek/coursehub-backend/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	courses, err := h.courseService.List(c.Request.Context(), viewer)
	if err != nil {
		h.log.Error("ListCourses failed", "error", err)
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	course, err := h.courseService.Get(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) PurchaseCourse(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	if viewer == nil {
		RespondError(c, apierr.Unauthenticated("authentication required"))
		return
	}
	courseID := c.Param("id")
	if err := h.courseService.Purchase(c.Request.Context(), viewer, courseID); err != nil {
		h.log.Error("PurchaseCourse failed", "error", err, "course_id", courseID, "user_id", viewer.ID)
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"purchased": true, "course_id": courseID})
}

func (h *CourseHandler) CheckPurchase(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	purchased, err := h.courseService.IsPurchased(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"is_purchased": purchased})
}
