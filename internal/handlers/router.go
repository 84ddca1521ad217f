package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

const healthCheckTimeout = 3 * time.Second

type HandlerManager struct {
	serviceManager  services.ServiceManager
	userHandler     *UserHandler
	subjectHandler  *SubjectHandler
	questionHandler *QuestionHandler
	examHandler     *ExamHandler
	attemptHandler  *AttemptHandler
	authMiddleware  *AuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	verifier auth.Verifier,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:  serviceManager,
		userHandler:     NewUserHandler(serviceManager.Identity(), serviceManager.Import(), logger),
		subjectHandler:  NewSubjectHandler(serviceManager.Subject(), logger),
		questionHandler: NewQuestionHandler(serviceManager.Question(), logger),
		examHandler:     NewExamHandler(serviceManager.Exam(), logger),
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		authMiddleware:  NewAuthMiddleware(verifier, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/tenants/register", hm.userHandler.RegisterTenant)
	v1.POST("/auth/login", hm.userHandler.Login)

	api := v1.Group("")
	api.Use(hm.authMiddleware.Authenticate())
	{
		staff := hm.authMiddleware.RequireRole(models.RoleHOD, models.RoleTeacher)
		students := hm.authMiddleware.RequireRole(models.RoleStudent)

		api.GET("/tenants/me", hm.userHandler.GetMyTenant)

		users := api.Group("/users")
		{
			users.POST("", staff, hm.userHandler.RegisterUser)
			users.POST("/bulk", staff, hm.userHandler.BulkRegisterUsers)
			users.GET("", staff, hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
			users.PUT("/:id", hm.authMiddleware.RequireRole(models.RoleHOD), hm.userHandler.UpdateUser)
			users.DELETE("/:id", hm.authMiddleware.RequireRole(models.RoleHOD), hm.userHandler.DeleteUser)
		}

		subjects := api.Group("/subjects")
		{
			subjects.POST("", staff, hm.subjectHandler.CreateSubject)
			subjects.GET("", hm.subjectHandler.ListSubjects)
			subjects.GET("/:id", hm.subjectHandler.GetSubject)
			subjects.PUT("/:id", staff, hm.subjectHandler.UpdateSubject)
			subjects.DELETE("/:id", staff, hm.subjectHandler.DeleteSubject)
		}

		questions := api.Group("/questions")
		questions.Use(staff)
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.POST("/batch", hm.questionHandler.CreateQuestionsBatch)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		exams := api.Group("/exams")
		{
			exams.POST("", staff, hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.PUT("/:id", staff, hm.examHandler.UpdateExam)
			exams.DELETE("/:id", staff, hm.examHandler.DeleteExam)
			exams.GET("/:id/paper", hm.examHandler.GetExamPaper)

			// Attempt lifecycle
			exams.POST("/:id/start", students, hm.attemptHandler.StartAttempt)
			exams.PUT("/:id/save-progress", students, hm.attemptHandler.SaveProgress)
			exams.POST("/:id/submit", students, hm.attemptHandler.SubmitAttempt)
			exams.GET("/:id/attempts", staff, hm.attemptHandler.ListExamAttempts)
		}

		attempts := api.Group("/attempts")
		{
			attempts.GET("/mine", students, hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:attempt_id", hm.attemptHandler.GetAttempt)
		}
	}
}

// HealthCheck pings the database and cache
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"service":   "exam-service",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "exam-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
