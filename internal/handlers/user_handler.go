package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

const maxImportFileSize = 10 << 20

// UserHandler serves tenant registration, login and user management
type UserHandler struct {
	BaseHandler
	identityService services.IdentityService
	importService   services.ImportService
}

func NewUserHandler(identityService services.IdentityService, importService services.ImportService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler:     NewBaseHandler(logger),
		identityService: identityService,
		importService:   importService,
	}
}

// RegisterTenant registers an institute and its HOD owner
// @Summary Register institute
// @Tags tenants
// @Accept json
// @Produce json
// @Param tenant body models.RegisterTenantRequest true "Institute and owner"
// @Success 201 {object} models.TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tenants/register [post]
func (h *UserHandler) RegisterTenant(c *gin.Context) {
	h.LogRequest(c, "Registering institute")

	var req models.RegisterTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}

	resp, err := h.identityService.RegisterTenant(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login exchanges credentials for a token
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Username, email or phone number with password"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}

	resp, err := h.identityService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) GetMyTenant(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	tenant, err := h.identityService.GetTenant(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tenant)
}

// RegisterUser creates a teacher or student account in the caller's institute
// @Summary Register user
// @Tags users
// @Accept json
// @Produce json
// @Param user body models.RegisterUserRequest true "User data"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) RegisterUser(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Registering user")

	var req models.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}

	user, err := h.identityService.RegisterUser(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// BulkRegisterUsers imports users from an uploaded .xlsx file
// @Summary Bulk register users
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param role formData string true "Role of every imported user"
// @Param file formData file true "Spreadsheet with name, email, phone_number and password columns"
// @Success 201 {object} models.BulkImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /users/bulk [post]
func (h *UserHandler) BulkRegisterUsers(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	role := models.UserRole(strings.ToLower(strings.TrimSpace(c.PostForm("role"))))
	if role == "" {
		h.badRequest(c, "role is required", nil)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "file is required", err.Error())
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		h.badRequest(c, "Invalid file type. Please upload an .xlsx file", header.Filename)
		return
	}
	if header.Size > maxImportFileSize {
		h.badRequest(c, "File is too large", header.Size)
		return
	}

	h.LogRequest(c, "Bulk registering users", "role", role, "file", header.Filename)

	file, err := header.Open()
	if err != nil {
		h.badRequest(c, "Cannot read uploaded file", err.Error())
		return
	}
	defer file.Close()

	result, err := h.importService.BulkRegisterUsers(c.Request.Context(), caller, role, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	filters := repositories.UserFilters{
		Query:  strings.TrimSpace(c.Query("q")),
		Params: h.getListParams(c),
	}
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(strings.ToLower(raw))
		if !role.Valid() {
			h.badRequest(c, "Invalid role", raw)
			return
		}
		filters.Role = &role
	}

	users, total, err := h.identityService.ListUsers(c.Request.Context(), caller, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	paginated(c, users, total, filters.Params, len(users))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	user, err := h.identityService.GetUser(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser changes a user's name, contacts or role
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body models.UserUpdateRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}
	h.LogRequest(c, "Updating user", "target_id", c.Param("id"))

	user, err := h.identityService.UpdateUser(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Deleting user", "target_id", c.Param("id"))

	if err := h.identityService.DeleteUser(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
