package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// StartAttempt starts a new attempt of an exam
// @Summary Start exam attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 201 {object} models.StartAttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	h.LogRequest(c, "Starting exam attempt", "exam_id", examID)

	resp, err := h.attemptService.Start(c.Request.Context(), caller, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SaveProgress replaces the stored answers of an in-progress attempt
// @Summary Save attempt progress
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param progress body models.SaveProgressRequest true "Attempt id and answers"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/save-progress [put]
func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	var req models.SaveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := h.attemptService.SaveProgress(c.Request.Context(), caller, examID, req.AttemptID, req.Answers); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Progress saved",
		"attemptId": req.AttemptID,
	})
}

// SubmitAttempt scores and finalizes an attempt
// @Summary Submit exam attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param attempt body models.SubmitAttemptRequest true "Attempt id and final answers"
// @Success 200 {object} models.SubmitAttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	var req models.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Submitting exam attempt", "exam_id", examID, "attempt_id", req.AttemptID)

	resp, err := h.attemptService.Submit(c.Request.Context(), caller, examID, req.AttemptID, req.Answers)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "attempt_id")
	if id == 0 {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

func (h *AttemptHandler) ListExamAttempts(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}
	params := h.getListParams(c)

	attempts, total, err := h.attemptService.ListByExam(c.Request.Context(), caller, examID, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	paginated(c, attempts, total, params, len(attempts))
}

func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	params := h.getListParams(c)

	attempts, total, err := h.attemptService.ListMine(c.Request.Context(), caller, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	paginated(c, attempts, total, params, len(attempts))
}
