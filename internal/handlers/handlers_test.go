package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAttempts records calls and returns err
type stubAttempts struct {
	services.AttemptService
	err         error
	lastCaller  auth.Identity
	lastExamID  uint
	lastAnswers models.AnswerSheet
}

func (s *stubAttempts) Start(ctx context.Context, caller auth.Identity, examID uint) (*models.StartAttemptResponse, error) {
	s.lastCaller, s.lastExamID = caller, examID
	if s.err != nil {
		return nil, s.err
	}
	return &models.StartAttemptResponse{AttemptID: 7, ExamID: examID}, nil
}

func (s *stubAttempts) Submit(ctx context.Context, caller auth.Identity, examID, attemptID uint, answers models.AnswerSheet) (*models.SubmitAttemptResponse, error) {
	s.lastCaller, s.lastExamID, s.lastAnswers = caller, examID, answers
	if s.err != nil {
		return nil, s.err
	}
	return &models.SubmitAttemptResponse{AttemptID: attemptID, Score: 1, MissingQuestionIDs: []uint{}}, nil
}

func (s *stubAttempts) SaveProgress(ctx context.Context, caller auth.Identity, examID, attemptID uint, answers models.AnswerSheet) error {
	s.lastCaller, s.lastExamID, s.lastAnswers = caller, examID, answers
	return s.err
}

type stubQuestions struct {
	services.QuestionService
	err        error
	lastID     uint
	lastUpdate *models.QuestionUpdateRequest
}

func (s *stubQuestions) Update(ctx context.Context, caller auth.Identity, id uint, req *models.QuestionUpdateRequest) (*models.Question, error) {
	s.lastID, s.lastUpdate = id, req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Question{ID: id, CorrectOptionIDs: req.CorrectOptionIDs}, nil
}

type stubManager struct {
	services.ServiceManager
	attempts  *stubAttempts
	questions *stubQuestions
	healthErr error
}

func (m *stubManager) Identity() services.IdentityService { return nil }
func (m *stubManager) Import() services.ImportService     { return nil }
func (m *stubManager) Subject() services.SubjectService   { return nil }
func (m *stubManager) Question() services.QuestionService { return m.questions }
func (m *stubManager) Exam() services.ExamService         { return nil }
func (m *stubManager) Attempt() services.AttemptService   { return m.attempts }
func (m *stubManager) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

type testServer struct {
	router   *gin.Engine
	attempts *stubAttempts
	manager  *stubManager
	tokens   *auth.TokenService
}

func newTestServer(t *testing.T, allowedOrigins ...string) *testServer {
	t.Helper()
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	tokens := auth.NewTokenService("handler-secret", "exam-service-test")
	attempts := &stubAttempts{}
	manager := &stubManager{attempts: attempts, questions: &stubQuestions{}}

	router := gin.New()
	SetupMiddleware(router, logger, allowedOrigins)
	NewHandlerManager(manager, validator.New(), logger, tokens).SetupRoutes(router)

	return &testServer{router: router, attempts: attempts, manager: manager, tokens: tokens}
}

func (s *testServer) token(t *testing.T, role models.UserRole) string {
	t.Helper()
	token, _, err := s.tokens.Issue(auth.Identity{UserID: "user-1", Role: role, TenantID: 3}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "bad token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/exams/1/start", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized || decodeError(t, w).Code != CodeUnauthenticated {
				t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
			}
		})
	}

	t.Run("identity reaches the service", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/exams/42/start", s.token(t, models.RoleStudent), "")
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
		}
		if s.attempts.lastCaller.TenantID != 3 || s.attempts.lastCaller.UserID != "user-1" || s.attempts.lastExamID != 42 {
			t.Errorf("service saw caller %+v exam %d", s.attempts.lastCaller, s.attempts.lastExamID)
		}
	})

	t.Run("role gate", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/exams/42/start", s.token(t, models.RoleTeacher), "")
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d", w.Code)
		}
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{services.ErrExamNotFound, http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("%w: attempt 1 does not belong to exam 2", services.ErrAttemptNotFound), http.StatusNotFound, CodeNotFound},
		{services.NewPermissionError("u", 1, "attempt", "submit", "not owned by student"), http.StatusForbidden, CodeForbidden},
		{services.ErrAttemptAlreadySubmitted, http.StatusConflict, CodeAlreadySubmitted},
		{services.ErrAttemptAlreadyActive, http.StatusConflict, CodeConflict},
		{services.ValidationErrors{{Field: "answers[1]", Message: "option ids cannot be negative"}}, http.StatusBadRequest, CodeInvalidInput},
		{&services.StoreError{Op: "failed to submit attempt", Err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable, CodeStoreUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode+"/"+tt.err.Error(), func(t *testing.T) {
			s := newTestServer(t)
			s.attempts.err = tt.err

			w := s.do(http.MethodPost, "/api/v1/exams/1/submit", s.token(t, models.RoleStudent), `{"attempt_id": 5, "answers": {"1": [0]}}`)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decodeError(t, w)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if strings.Contains(w.Body.String(), "dial tcp") {
				t.Error("store details leaked to client")
			}
		})
	}
}

func TestSubmitBinding(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, models.RoleStudent)

	t.Run("answers keyed by question id", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/exams/9/submit", token, `{"attempt_id": 5, "answers": {"12": [1, 0], "13": []}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
		}
		if len(s.attempts.lastAnswers) != 2 || len(s.attempts.lastAnswers[12]) != 2 {
			t.Errorf("answers = %v", s.attempts.lastAnswers)
		}
	})

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "non numeric question id", path: "/api/v1/exams/9/submit", body: `{"attempt_id": 5, "answers": {"abc": [1]}}`},
		{name: "non numeric option", path: "/api/v1/exams/9/submit", body: `{"attempt_id": 5, "answers": {"1": ["a"]}}`},
		{name: "missing attempt id", path: "/api/v1/exams/9/submit", body: `{"answers": {}}`},
		{name: "bad exam id", path: "/api/v1/exams/zero/submit", body: `{"attempt_id": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, tt.path, token, tt.body)
			if w.Code != http.StatusBadRequest || decodeError(t, w).Code != CodeInvalidInput {
				t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
			}
		})
	}

	t.Run("save progress", func(t *testing.T) {
		w := s.do(http.MethodPut, "/api/v1/exams/9/save-progress", token, `{"attempt_id": 5, "answers": {"3": [2]}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
		}
		if s.attempts.lastExamID != 9 || s.attempts.lastAnswers[3][0] != 2 {
			t.Errorf("service saw exam %d answers %v", s.attempts.lastExamID, s.attempts.lastAnswers)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}

	s.manager.healthErr = &services.StoreError{Op: "ping", Err: errors.New("down")}
	if w := s.do(http.MethodGet, "/health", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{name: "any origin by default", origin: "https://a.example", want: "*"},
		{name: "listed origin echoed", allowed: []string{"https://exams.example.edu/"}, origin: "https://exams.example.edu", want: "https://exams.example.edu"},
		{name: "unlisted origin", allowed: []string{"https://exams.example.edu"}, origin: "https://evil.example", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.allowed...)
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/exams", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Fatalf("status = %d", w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpdateQuestion(t *testing.T) {
	s := newTestServer(t)

	t.Run("teacher updates", func(t *testing.T) {
		w := s.do(http.MethodPut, "/api/v1/questions/12", s.token(t, models.RoleTeacher), `{"correct_option_ids": [2]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
		}
		q := s.manager.questions
		if q.lastID != 12 || len(q.lastUpdate.CorrectOptionIDs) != 1 || q.lastUpdate.Text != nil {
			t.Errorf("service saw id %d update %+v", q.lastID, q.lastUpdate)
		}
	})

	t.Run("students are rejected", func(t *testing.T) {
		w := s.do(http.MethodPut, "/api/v1/questions/12", s.token(t, models.RoleStudent), `{"correct_option_ids": [2]}`)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("ownership error maps to 403", func(t *testing.T) {
		s.manager.questions.err = services.NewPermissionError("user-1", 12, "question", "update", "not owner")
		defer func() { s.manager.questions.err = nil }()

		w := s.do(http.MethodPut, "/api/v1/questions/12", s.token(t, models.RoleTeacher), `{"difficulty": 3}`)
		if w.Code != http.StatusForbidden || decodeError(t, w).Code != CodeForbidden {
			t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
		}
	})
}
