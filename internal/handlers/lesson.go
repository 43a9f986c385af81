package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/requestdata"
	"github.com/davrbek/coursehub-backend/internal/services"
)

type LessonHandler struct {
	log           *logger.Logger
	lessonService services.LessonService
}

func NewLessonHandler(log *logger.Logger, lessonService services.LessonService) *LessonHandler {
	return &LessonHandler{
		log:           log.With("handler", "LessonHandler"),
		lessonService: lessonService,
	}
}

// pathInt64 parses a numeric path parameter; a malformed id surfaces as
// not_found rather than validation because the route shape is fixed.
func pathInt64(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.NotFound("%s not found", name)
	}
	return id, nil
}

func (h *LessonHandler) GetLesson(c *gin.Context) {
	lessonID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	detail, err := h.lessonService.GetDetail(c.Request.Context(), viewer, lessonID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"lesson": detail})
}
