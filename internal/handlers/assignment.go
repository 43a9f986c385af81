package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/requestdata"
	"github.com/davrbek/coursehub-backend/internal/services"
)

type AssignmentHandler struct {
	log               *logger.Logger
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(log *logger.Logger, assignmentService services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{
		log:               log.With("handler", "AssignmentHandler"),
		assignmentService: assignmentService,
	}
}

func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	lessonID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.AssignmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}

	viewer := requestdata.Viewer(c.Request.Context())
	a, err := h.assignmentService.Create(c.Request.Context(), viewer, lessonID, req)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"assignment": a})
}

func (h *AssignmentHandler) BulkCreateAssignments(c *gin.Context) {
	lessonID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		Assignments []services.AssignmentInput `json:"assignments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}

	viewer := requestdata.Viewer(c.Request.Context())
	created, err := h.assignmentService.BulkCreate(c.Request.Context(), viewer, lessonID, req.Assignments)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"assignments": created})
}

func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	lessonID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	views, err := h.assignmentService.List(c.Request.Context(), viewer, lessonID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"assignments": views})
}

func (h *AssignmentHandler) SubmitAssignment(c *gin.Context) {
	assignmentID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}

	viewer := requestdata.Viewer(c.Request.Context())
	sub, err := h.assignmentService.Submit(c.Request.Context(), viewer, assignmentID, req.Content)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"submission": sub})
}

func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	assignmentID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	subs, err := h.assignmentService.ListSubmissions(c.Request.Context(), viewer, assignmentID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"submissions": subs})
}

func (h *AssignmentHandler) GradeSubmission(c *gin.Context) {
	submissionID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		Rating   int     `json:"rating"`
		Feedback *string `json:"feedback,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}

	viewer := requestdata.Viewer(c.Request.Context())
	sub, err := h.assignmentService.Grade(c.Request.Context(), viewer, submissionID, req.Rating, req.Feedback)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"submission": sub})
}
