package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type SubjectHandler struct {
	BaseHandler
	subjectService services.SubjectService
}

func NewSubjectHandler(subjectService services.SubjectService, logger utils.Logger) *SubjectHandler {
	return &SubjectHandler{
		BaseHandler:    NewBaseHandler(logger),
		subjectService: subjectService,
	}
}

func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Creating subject")

	var req models.SubjectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}

	subject, err := h.subjectService.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, subject)
}

func (h *SubjectHandler) GetSubject(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	subject, err := h.subjectService.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, subject)
}

func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	params := h.getListParams(c)

	subjects, total, err := h.subjectService.List(c.Request.Context(), caller, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	paginated(c, subjects, total, params, len(subjects))
}

func (h *SubjectHandler) UpdateSubject(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Updating subject", "subject_id", id)

	var req models.SubjectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}

	subject, err := h.subjectService.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, subject)
}

func (h *SubjectHandler) DeleteSubject(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Deleting subject", "subject_id", id)

	if err := h.subjectService.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
