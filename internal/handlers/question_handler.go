package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// CreateQuestion creates a multiple-choice question
// @Summary Create question
// @Tags questions
// @Accept json
// @Produce json
// @Param question body models.QuestionCreateRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Creating question")

	var req models.QuestionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// CreateQuestionsBatch creates several questions in one transaction
// @Summary Create questions in batch
// @Tags questions
// @Accept json
// @Produce json
// @Param questions body models.QuestionBatchRequest true "Questions"
// @Success 201 {array} models.Question
// @Failure 400 {object} ErrorResponse
// @Router /questions/batch [post]
func (h *QuestionHandler) CreateQuestionsBatch(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.QuestionBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}
	h.LogRequest(c, "Creating questions batch", "count", len(req.Questions))

	questions, err := h.questionService.CreateBatch(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Questions created successfully",
		"count":     len(questions),
		"questions": questions,
	})
}

func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.questionService.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// ListQuestions lists questions filtered by subject_id, difficulty, chapter and created_by
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	filters := repositories.QuestionFilters{Params: h.getListParams(c)}

	subjectID, ok := h.parseOptionalUintQuery(c, "subject_id")
	if !ok {
		return
	}
	filters.SubjectID = subjectID

	if raw := c.Query("difficulty"); raw != "" {
		difficulty, err := strconv.Atoi(raw)
		if err != nil || difficulty < models.MinDifficulty || difficulty > models.MaxDifficulty {
			h.badRequest(c, "Invalid difficulty", raw)
			return
		}
		filters.Difficulty = &difficulty
	}
	if chapter := strings.TrimSpace(c.Query("chapter")); chapter != "" {
		filters.Chapter = &chapter
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	questions, total, err := h.questionService.List(c.Request.Context(), caller, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	paginated(c, questions, total, filters.Params, len(questions))
}

func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req models.QuestionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}
	h.LogRequest(c, "Updating question", "question_id", id)

	question, err := h.questionService.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.questionService.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
