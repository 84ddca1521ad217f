package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// Machine readable error codes
const (
	CodeNotFound         = "NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeAlreadySubmitted = "ALREADY_SUBMITTED"
	CodeConflict         = "CONFLICT"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

type ErrorResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Path      string      `json:"path,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request with the request-scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, message string, args ...any) {
	l := utils.GetLogger(c, h.logger)
	if id, ok := callerFrom(c); ok {
		args = append(args, "user_id", id.UserID, "tenant_id", id.TenantID)
	}
	l.Info(message, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, args ...any) {
	args = append(args, "error", err)
	utils.GetLogger(c, h.logger).Error(message, args...)
}

func (h *BaseHandler) respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

func (h *BaseHandler) badRequest(c *gin.Context, message string, details interface{}) {
	h.respondError(c, http.StatusBadRequest, CodeInvalidInput, message, details)
}

// handleServiceError maps service errors to HTTP responses. Store details never reach the client.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var (
		validationErrs validator.ValidationErrors
		permissionErr  *services.PermissionError
	)

	switch {
	case errors.As(err, &validationErrs):
		h.respondError(c, http.StatusBadRequest, CodeInvalidInput, "Validation failed", validationErrs)
	case errors.Is(err, services.ErrValidationFailed):
		h.respondError(c, http.StatusBadRequest, CodeInvalidInput, err.Error(), nil)

	case errors.As(err, &permissionErr):
		h.respondError(c, http.StatusForbidden, CodeForbidden, "Permission denied", permissionErr.Reason)
	case errors.Is(err, services.ErrForbidden):
		h.respondError(c, http.StatusForbidden, CodeForbidden, "Permission denied", nil)

	case errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrSubjectNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrExamNotFound),
		errors.Is(err, services.ErrAttemptNotFound):
		h.respondError(c, http.StatusNotFound, CodeNotFound, notFoundMessage(err), nil)

	case errors.Is(err, services.ErrAttemptAlreadySubmitted):
		h.respondError(c, http.StatusConflict, CodeAlreadySubmitted, "Attempt already submitted", nil)
	case errors.Is(err, services.ErrConflict):
		h.respondError(c, http.StatusConflict, CodeConflict, err.Error(), nil)

	case errors.Is(err, services.ErrUnauthorized):
		h.respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Invalid credentials", nil)

	case errors.Is(err, services.ErrStoreUnavailable):
		h.LogError(c, err, "Backing store unavailable")
		h.respondError(c, http.StatusServiceUnavailable, CodeStoreUnavailable, "Service temporarily unavailable, please retry", nil)

	default:
		h.LogError(c, err, "Unhandled service error")
		h.respondError(c, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
	}
}

func notFoundMessage(err error) string {
	for _, target := range []error{
		services.ErrTenantNotFound,
		services.ErrUserNotFound,
		services.ErrSubjectNotFound,
		services.ErrQuestionNotFound,
		services.ErrExamNotFound,
		services.ErrAttemptNotFound,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "not found"
}

// ===== REQUEST HELPERS =====

// parseIDParam parses a positive numeric path parameter. It writes the error response and returns 0 on failure.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		h.badRequest(c, "Invalid "+name, c.Param(name))
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseOptionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		h.badRequest(c, "Invalid "+name, raw)
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// getListParams reads page, size, sort_by and sort_dir
func (h *BaseHandler) getListParams(c *gin.Context) models.ListParams {
	params := models.ListParams{Page: 1, Size: 20}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		params.Page = page
	}
	if size, err := strconv.Atoi(c.Query("size")); err == nil && size > 0 {
		if size > 100 {
			size = 100
		}
		params.Size = size
	}
	params.SortBy = c.Query("sort_by")
	if dir := c.Query("sort_dir"); dir == "asc" || dir == "desc" {
		params.SortDir = dir
	}
	return params
}

// caller returns the authenticated identity. It writes a 401 and returns false when absent.
func (h *BaseHandler) caller(c *gin.Context) (auth.Identity, bool) {
	id, ok := callerFrom(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "User not authenticated", nil)
		return auth.Identity{}, false
	}
	return id, true
}

func callerFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok && !id.IsZero()
}

func paginated(c *gin.Context, content interface{}, total int64, params models.ListParams, count int) {
	c.JSON(http.StatusOK, models.NewPaginatedResponse(content, total, params, count))
}
