package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// memRepo is an in-memory repositories.Repository guarded by one mutex
type memRepo struct {
	mu sync.Mutex

	tenants   map[uint]*models.Tenant
	users     map[string]*models.User
	subjects  map[uint]*models.Subject
	questions map[uint]*models.Question
	exams     map[uint]*models.Exam
	attempts  map[uint]*models.Attempt
	nextID    uint

	// failures injected by tests
	attemptErr error
	submitErr  error

	cachedExamReads   int
	uncachedExamReads int
}

func newMemRepo() *memRepo {
	return &memRepo{
		tenants:   map[uint]*models.Tenant{},
		users:     map[string]*models.User{},
		subjects:  map[uint]*models.Subject{},
		questions: map[uint]*models.Question{},
		exams:     map[uint]*models.Exam{},
		attempts:  map[uint]*models.Attempt{},
		nextID:    100,
	}
}

func (r *memRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memRepo) Tenant() repositories.TenantRepository     { return memTenants{r} }
func (r *memRepo) User() repositories.UserRepository         { return memUsers{r} }
func (r *memRepo) Subject() repositories.SubjectRepository   { return memSubjects{r} }
func (r *memRepo) Question() repositories.QuestionRepository { return memQuestions{r} }
func (r *memRepo) Exam() repositories.ExamRepository         { return memExams{r} }
func (r *memRepo) Attempt() repositories.AttemptRepository   { return memAttempts{r} }

func (r *memRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *memRepo) Ping(ctx context.Context) error { return nil }
func (r *memRepo) Close() error                   { return nil }

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repositories.ErrNotFound)
}

func cloneAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	c.Answers = a.Answers.Clone()
	return &c
}

// ===== TENANTS =====

type memTenants struct{ r *memRepo }

func (m memTenants) Create(ctx context.Context, tenant *models.Tenant) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, t := range m.r.tenants {
		if t.Name == tenant.Name {
			return repositories.ErrDuplicate
		}
	}
	tenant.ID = m.r.id()
	c := *tenant
	m.r.tenants[tenant.ID] = &c
	return nil
}

func (m memTenants) GetByID(ctx context.Context, id uint) (*models.Tenant, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	t, ok := m.r.tenants[id]
	if !ok {
		return nil, notFound("tenant")
	}
	c := *t
	return &c, nil
}

func (m memTenants) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, t := range m.r.tenants {
		if t.Name == name {
			c := *t
			return &c, nil
		}
	}
	return nil, notFound("tenant")
}

func (m memTenants) SetOwner(ctx context.Context, tenantID uint, ownerID string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	t, ok := m.r.tenants[tenantID]
	if !ok {
		return notFound("tenant")
	}
	t.OwnerID = &ownerID
	return nil
}

func (m memTenants) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := m.GetByName(ctx, name)
	return err == nil, nil
}

// ===== USERS =====

type memUsers struct{ r *memRepo }

func (m memUsers) Create(ctx context.Context, user *models.User) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	return m.insert(user)
}

func (m memUsers) insert(user *models.User) error {
	for _, u := range m.r.users {
		if user.Username != nil && u.Username != nil && *u.Username == *user.Username {
			return repositories.ErrDuplicate
		}
		if u.TenantID == user.TenantID && u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", m.r.id())
	}
	c := *user
	m.r.users[user.ID] = &c
	return nil
}

func (m memUsers) CreateBatch(ctx context.Context, users []*models.User) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, u := range users {
		if err := m.insert(u); err != nil {
			return err
		}
	}
	return nil
}

func (m memUsers) GetByID(ctx context.Context, tenantID uint, id string) (*models.User, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	u, ok := m.r.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, notFound("user")
	}
	c := *u
	return &c, nil
}

func (m memUsers) FindForLogin(ctx context.Context, username, email, phone string, tenantID *uint) ([]*models.User, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.User
	for _, u := range m.r.users {
		if tenantID != nil && u.TenantID != *tenantID {
			continue
		}
		match := (username != "" && u.Username != nil && *u.Username == username) ||
			(email != "" && u.Email == email) ||
			(phone != "" && u.PhoneNumber != nil && *u.PhoneNumber == phone)
		if match {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m memUsers) FindByContacts(ctx context.Context, tenantID uint, emails, phones []string) ([]*models.User, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	want := map[string]bool{}
	for _, e := range emails {
		want["e:"+e] = true
	}
	for _, p := range phones {
		want["p:"+p] = true
	}
	var out []*models.User
	for _, u := range m.r.users {
		if u.TenantID != tenantID {
			continue
		}
		if want["e:"+u.Email] || (u.PhoneNumber != nil && want["p:"+*u.PhoneNumber]) {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, u := range m.r.users {
		if u.Username != nil && *u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m memUsers) List(ctx context.Context, tenantID uint, filters repositories.UserFilters) ([]*models.User, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.User
	for _, u := range m.r.users {
		if u.TenantID == tenantID && (filters.Role == nil || u.Role == *filters.Role) {
			c := *u
			out = append(out, &c)
		}
	}
	return out, int64(len(out)), nil
}

func (m memUsers) Update(ctx context.Context, user *models.User) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	current, ok := m.r.users[user.ID]
	if !ok || current.TenantID != user.TenantID {
		return notFound("user")
	}
	for _, u := range m.r.users {
		if u.ID == user.ID || u.TenantID != user.TenantID {
			continue
		}
		if u.Email == user.Email || (u.PhoneNumber != nil && user.PhoneNumber != nil && *u.PhoneNumber == *user.PhoneNumber) {
			return repositories.ErrDuplicate
		}
	}
	c := *user
	m.r.users[user.ID] = &c
	return nil
}

func (m memUsers) Delete(ctx context.Context, tenantID uint, id string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	u, ok := m.r.users[id]
	if !ok || u.TenantID != tenantID {
		return notFound("user")
	}
	delete(m.r.users, id)
	return nil
}

// ===== SUBJECTS =====

type memSubjects struct{ r *memRepo }

func (m memSubjects) Create(ctx context.Context, subject *models.Subject) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, s := range m.r.subjects {
		if s.TenantID == subject.TenantID && s.Code == subject.Code {
			return repositories.ErrDuplicate
		}
	}
	subject.ID = m.r.id()
	c := *subject
	m.r.subjects[subject.ID] = &c
	return nil
}

func (m memSubjects) GetByID(ctx context.Context, tenantID, id uint) (*models.Subject, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.subjects[id]
	if !ok || s.TenantID != tenantID {
		return nil, notFound("subject")
	}
	c := *s
	return &c, nil
}

func (m memSubjects) List(ctx context.Context, tenantID uint, params models.ListParams) ([]*models.Subject, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Subject
	for _, s := range m.r.subjects {
		if s.TenantID == tenantID {
			c := *s
			out = append(out, &c)
		}
	}
	return out, int64(len(out)), nil
}

func (m memSubjects) Update(ctx context.Context, subject *models.Subject) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.subjects[subject.ID]
	if !ok || s.TenantID != subject.TenantID {
		return notFound("subject")
	}
	c := *subject
	m.r.subjects[subject.ID] = &c
	return nil
}

func (m memSubjects) Delete(ctx context.Context, tenantID, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.subjects[id]
	if !ok || s.TenantID != tenantID {
		return notFound("subject")
	}
	delete(m.r.subjects, id)
	return nil
}

// ===== QUESTIONS =====

type memQuestions struct{ r *memRepo }

func (m memQuestions) Create(ctx context.Context, question *models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	question.ID = m.r.id()
	c := *question
	m.r.questions[question.ID] = &c
	return nil
}

func (m memQuestions) CreateBatch(ctx context.Context, questions []*models.Question) error {
	for _, q := range questions {
		if err := m.Create(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (m memQuestions) GetByID(ctx context.Context, tenantID, id uint) (*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.questions[id]
	if !ok || q.TenantID != tenantID {
		return nil, notFound("question")
	}
	c := *q
	return &c, nil
}

func (m memQuestions) GetByIDs(ctx context.Context, tenantID uint, ids []uint) (map[uint]*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make(map[uint]*models.Question)
	for _, id := range ids {
		if q, ok := m.r.questions[id]; ok && q.TenantID == tenantID {
			c := *q
			out[id] = &c
		}
	}
	return out, nil
}

func (m memQuestions) List(ctx context.Context, tenantID uint, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Question
	for _, q := range m.r.questions {
		if q.TenantID != tenantID {
			continue
		}
		if filters.SubjectID != nil && q.SubjectID != *filters.SubjectID {
			continue
		}
		c := *q
		out = append(out, &c)
	}
	return out, int64(len(out)), nil
}

func (m memQuestions) Update(ctx context.Context, question *models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.questions[question.ID]
	if !ok || q.TenantID != question.TenantID {
		return notFound("question")
	}
	c := *question
	m.r.questions[question.ID] = &c
	return nil
}

func (m memQuestions) Delete(ctx context.Context, tenantID, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.questions[id]
	if !ok || q.TenantID != tenantID {
		return notFound("question")
	}
	delete(m.r.questions, id)
	return nil
}

// ===== EXAMS =====

type memExams struct{ r *memRepo }

func (m memExams) Create(ctx context.Context, exam *models.Exam) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	exam.ID = m.r.id()
	c := *exam
	m.r.exams[exam.ID] = &c
	return nil
}

func (m memExams) get(id uint) (*models.Exam, error) {
	e, ok := m.r.exams[id]
	if !ok {
		return nil, notFound("exam")
	}
	c := *e
	return &c, nil
}

func (m memExams) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.r.cachedExamReads++
	return m.get(id)
}

func (m memExams) GetByIDUncached(ctx context.Context, id uint) (*models.Exam, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.r.uncachedExamReads++
	return m.get(id)
}

func (m memExams) List(ctx context.Context, tenantID uint, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Exam
	for _, e := range m.r.exams {
		if e.TenantID == tenantID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, int64(len(out)), nil
}

func (m memExams) Update(ctx context.Context, exam *models.Exam) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	e, ok := m.r.exams[exam.ID]
	if !ok || e.TenantID != exam.TenantID {
		return notFound("exam")
	}
	c := *exam
	m.r.exams[exam.ID] = &c
	return nil
}

func (m memExams) Delete(ctx context.Context, tenantID, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	e, ok := m.r.exams[id]
	if !ok || e.TenantID != tenantID {
		return notFound("exam")
	}
	delete(m.r.exams, id)
	return nil
}

// ===== ATTEMPTS =====

// memAttempts mirrors the conditional updates of the Postgres repository
type memAttempts struct{ r *memRepo }

func (m memAttempts) Create(ctx context.Context, attempt *models.Attempt) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.attemptErr != nil {
		return m.r.attemptErr
	}
	for _, a := range m.r.attempts {
		if a.ExamID == attempt.ExamID && a.StudentID == attempt.StudentID && !a.IsSubmitted() {
			return repositories.ErrDuplicate
		}
	}
	attempt.ID = m.r.id()
	m.r.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (m memAttempts) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.attemptErr != nil {
		return nil, m.r.attemptErr
	}
	a, ok := m.r.attempts[id]
	if !ok {
		return nil, notFound("attempt")
	}
	return cloneAttempt(a), nil
}

func (m memAttempts) GetActive(ctx context.Context, examID uint, studentID string) (*models.Attempt, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.attemptErr != nil {
		return nil, m.r.attemptErr
	}
	for _, a := range m.r.attempts {
		if a.ExamID == examID && a.StudentID == studentID && !a.IsSubmitted() {
			return cloneAttempt(a), nil
		}
	}
	return nil, notFound("attempt")
}

func (m memAttempts) SaveAnswers(ctx context.Context, id uint, answers models.AnswerSheet) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	a, ok := m.r.attempts[id]
	if !ok {
		return notFound("attempt")
	}
	if a.IsSubmitted() {
		return repositories.ErrStaleState
	}
	a.Answers = answers.Clone()
	return nil
}

func (m memAttempts) Submit(ctx context.Context, id uint, answers models.AnswerSheet, state models.Submitted) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.submitErr != nil {
		return m.r.submitErr
	}
	a, ok := m.r.attempts[id]
	if !ok {
		return notFound("attempt")
	}
	if a.IsSubmitted() {
		return repositories.ErrStaleState
	}
	a.Answers = answers.Clone()
	a.State = state
	return nil
}

func (m memAttempts) List(ctx context.Context, tenantID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Attempt
	for _, a := range m.r.attempts {
		if a.TenantID != tenantID {
			continue
		}
		if filters.ExamID != nil && a.ExamID != *filters.ExamID {
			continue
		}
		if filters.StudentID != nil && a.StudentID != *filters.StudentID {
			continue
		}
		out = append(out, cloneAttempt(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
