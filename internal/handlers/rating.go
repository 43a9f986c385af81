package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/requestdata"
	"github.com/davrbek/coursehub-backend/internal/services"
)

type RatingHandler struct {
	log           *logger.Logger
	ratingService services.RatingService
}

func NewRatingHandler(log *logger.Logger, ratingService services.RatingService) *RatingHandler {
	return &RatingHandler{
		log:           log.With("handler", "RatingHandler"),
		ratingService: ratingService,
	}
}

type ratingRequest struct {
	Rating int     `json:"rating"`
	Review *string `json:"review,omitempty"`
}

func (h *RatingHandler) RateCourse(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	summary, err := h.ratingService.RateCourse(c.Request.Context(), viewer, c.Param("id"), req.Rating, req.Review)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"rating": summary})
}

func (h *RatingHandler) CourseRating(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	summary, err := h.ratingService.CourseSummary(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"rating": summary})
}

func (h *RatingHandler) RateTeacher(c *gin.Context) {
	var req struct {
		ratingRequest
		TeacherName string `json:"teacher_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	summary, err := h.ratingService.RateTeacher(c.Request.Context(), viewer, req.TeacherName, req.Rating, req.Review)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"rating": summary})
}

func (h *RatingHandler) TeacherRating(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	summary, err := h.ratingService.TeacherSummary(c.Request.Context(), viewer, c.Query("name"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"rating": summary})
}
