package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type attemptFixture struct {
	repo      *memRepo
	service   *attemptService
	publisher *events.MockEventPublisher
	clock     *fakeClock

	exam    *models.Exam
	q1, q2  *models.Question
	student auth.Identity
	other   auth.Identity
	teacher auth.Identity
}

// newAttemptFixture builds a 30 minute exam with Q1 correct {0,1} and Q2 correct {2}
func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	repo := newMemRepo()
	ctx := context.Background()

	options := []models.QuestionOption{{ID: 0, Text: "a"}, {ID: 1, Text: "b"}, {ID: 2, Text: "c"}}
	q1 := &models.Question{TenantID: 1, SubjectID: 1, CreatedBy: "teacher-1", Options: options, CorrectOptionIDs: []int{0, 1}}
	q2 := &models.Question{TenantID: 1, SubjectID: 1, CreatedBy: "teacher-1", Options: options, CorrectOptionIDs: []int{2}}
	for _, q := range []*models.Question{q1, q2} {
		if err := repo.Question().Create(ctx, q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}

	exam := &models.Exam{TenantID: 1, Title: "Algebra", SubjectID: 1, CreatedBy: "teacher-1", QuestionIDs: []uint{q1.ID, q2.ID}, Duration: 30}
	if err := repo.Exam().Create(ctx, exam); err != nil {
		t.Fatalf("seed exam: %v", err)
	}

	logger := discardLogger()
	publisher := events.NewMockEventPublisher(logger)
	clock := &fakeClock{now: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}

	service := NewAttemptService(repo, logger, validator.New(), publisher).(*attemptService)
	service.now = clock.Now

	return &attemptFixture{
		repo:      repo,
		service:   service,
		publisher: publisher,
		clock:     clock,
		exam:      exam,
		q1:        q1,
		q2:        q2,
		student:   auth.Identity{UserID: "student-1", Role: models.RoleStudent, TenantID: 1},
		other:     auth.Identity{UserID: "student-2", Role: models.RoleStudent, TenantID: 1},
		teacher:   auth.Identity{UserID: "teacher-1", Role: models.RoleTeacher, TenantID: 1},
	}
}

func (f *attemptFixture) start(t *testing.T) uint {
	t.Helper()
	resp, err := f.service.Start(context.Background(), f.student, f.exam.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return resp.AttemptID
}

func (f *attemptFixture) stored(t *testing.T, id uint) *models.Attempt {
	t.Helper()
	a, err := f.repo.Attempt().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	return a
}

func TestAttemptService_Start(t *testing.T) {
	t.Run("creates in-progress attempt", func(t *testing.T) {
		f := newAttemptFixture(t)
		resp, err := f.service.Start(context.Background(), f.student, f.exam.ID)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		if !resp.StartedAt.Equal(f.clock.Now()) {
			t.Errorf("StartedAt = %v, want %v", resp.StartedAt, f.clock.Now())
		}
		if want := f.clock.Now().Add(30 * time.Minute); !resp.Deadline.Equal(want) {
			t.Errorf("Deadline = %v, want %v", resp.Deadline, want)
		}

		a := f.stored(t, resp.AttemptID)
		if a.IsSubmitted() || len(a.Answers) != 0 || a.StudentID != f.student.UserID {
			t.Errorf("unexpected stored attempt %+v", a)
		}

		published := f.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Topic != events.TopicAttemptStarted {
			t.Fatalf("published = %+v", published)
		}
	})

	t.Run("second start conflicts while one is active", func(t *testing.T) {
		f := newAttemptFixture(t)
		f.start(t)
		_, err := f.service.Start(context.Background(), f.student, f.exam.ID)
		if !errors.Is(err, ErrAttemptAlreadyActive) || !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("start again after submitting", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		if _, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, nil); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if _, err := f.service.Start(context.Background(), f.student, f.exam.ID); err != nil {
			t.Fatalf("restart error = %v", err)
		}
	})

	t.Run("rejects non-students", func(t *testing.T) {
		f := newAttemptFixture(t)
		_, err := f.service.Start(context.Background(), f.teacher, f.exam.ID)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
	})

	t.Run("exam of another tenant is not found", func(t *testing.T) {
		f := newAttemptFixture(t)
		outsider := auth.Identity{UserID: "student-9", Role: models.RoleStudent, TenantID: 2}
		if _, err := f.service.Start(context.Background(), outsider, f.exam.ID); !errors.Is(err, ErrExamNotFound) {
			t.Fatalf("expected ErrExamNotFound, got %v", err)
		}
	})

	t.Run("store failure is retryable", func(t *testing.T) {
		f := newAttemptFixture(t)
		f.repo.attemptErr = errors.New("connection reset")
		_, err := f.service.Start(context.Background(), f.student, f.exam.ID)
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})

	t.Run("publish failure does not fail the start", func(t *testing.T) {
		f := newAttemptFixture(t)
		f.publisher.FailWith(errors.New("broker down"))
		if _, err := f.service.Start(context.Background(), f.student, f.exam.ID); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	})
}

func TestAttemptService_SaveProgress(t *testing.T) {
	t.Run("replaces answers without scoring", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		ctx := context.Background()

		if err := f.service.SaveProgress(ctx, f.student, f.exam.ID, id, models.AnswerSheet{f.q1.ID: {0}}); err != nil {
			t.Fatalf("SaveProgress() error = %v", err)
		}
		if err := f.service.SaveProgress(ctx, f.student, f.exam.ID, id, models.AnswerSheet{f.q2.ID: {2}}); err != nil {
			t.Fatalf("SaveProgress() error = %v", err)
		}

		a := f.stored(t, id)
		if _, ok := a.Answers[f.q1.ID]; ok {
			t.Errorf("answers were merged instead of replaced: %v", a.Answers)
		}
		if len(a.Answers[f.q2.ID]) != 1 || a.IsSubmitted() {
			t.Errorf("unexpected attempt %+v", a)
		}
	})

	t.Run("rejects duplicate and negative options", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		for _, answers := range []models.AnswerSheet{{f.q1.ID: {0, 0}}, {f.q1.ID: {-1}}} {
			err := f.service.SaveProgress(context.Background(), f.student, f.exam.ID, id, answers)
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Errorf("answers %v: expected ValidationErrors, got %v", answers, err)
			}
		}
	})

	t.Run("attempt of another exam is not found", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		err := f.service.SaveProgress(context.Background(), f.student, f.exam.ID+1000, id, models.AnswerSheet{})
		if !errors.Is(err, ErrAttemptNotFound) {
			t.Fatalf("expected ErrAttemptNotFound, got %v", err)
		}
	})

	t.Run("unknown attempt", func(t *testing.T) {
		f := newAttemptFixture(t)
		err := f.service.SaveProgress(context.Background(), f.student, f.exam.ID, 424242, models.AnswerSheet{})
		if !errors.Is(err, ErrAttemptNotFound) {
			t.Fatalf("expected ErrAttemptNotFound, got %v", err)
		}
	})
}

func TestAttemptService_Submit(t *testing.T) {
	t.Run("exact match in any order scores 1 after 10 minutes", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		f.clock.Advance(10 * time.Minute)

		resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, models.AnswerSheet{f.q1.ID: {1, 0}})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if resp.Score != 1 || resp.TimeTakenMs != 600000 || resp.LateSubmission {
			t.Errorf("unexpected response %+v", resp)
		}

		state, ok := f.stored(t, id).State.(models.Submitted)
		if !ok {
			t.Fatalf("attempt not submitted")
		}
		if state.Score != 1 || state.Late || state.TimeTaken() != 10*time.Minute {
			t.Errorf("unexpected stored state %+v", state)
		}

		published := f.publisher.GetPublishedEvents()
		last := published[len(published)-1]
		if ev, ok := last.Payload.(events.AttemptSubmittedEvent); !ok || ev.Score != 1 {
			t.Errorf("unexpected submitted event %+v", last)
		}
	})

	t.Run("partial selection scores 0", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)

		resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, models.AnswerSheet{f.q1.ID: {0}})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if resp.Score != 0 || resp.ScoredQuestions != 1 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("unknown question scores 0 without error", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)

		resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, models.AnswerSheet{f.q2.ID: {2}, 9999: {0}})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if resp.Score != 1 || len(resp.MissingQuestionIDs) != 1 || resp.MissingQuestionIDs[0] != 9999 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("question edited after start is scored as submitted", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		f.clock.Advance(5 * time.Minute)

		questions := NewQuestionService(f.repo, discardLogger(), validator.New())
		if _, err := questions.Update(context.Background(), f.teacher, f.q1.ID, &models.QuestionUpdateRequest{CorrectOptionIDs: []int{2}}); err != nil {
			t.Fatalf("edit question: %v", err)
		}

		resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, models.AnswerSheet{
			f.q1.ID: {2},
			f.q2.ID: {2},
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if resp.Score != 2 || resp.ScoredQuestions != 2 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("answer matching the pre-edit correct set scores 0", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)

		questions := NewQuestionService(f.repo, discardLogger(), validator.New())
		if _, err := questions.Update(context.Background(), f.teacher, f.q1.ID, &models.QuestionUpdateRequest{CorrectOptionIDs: []int{2}}); err != nil {
			t.Fatalf("edit question: %v", err)
		}

		resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, models.AnswerSheet{f.q1.ID: {0, 1}})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if resp.Score != 0 {
			t.Errorf("Score = %d, want 0", resp.Score)
		}
	})

	t.Run("late submission is flagged but scored", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		f.clock.Advance(31 * time.Minute)

		resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, models.AnswerSheet{f.q2.ID: {2}})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if !resp.LateSubmission || resp.Score != 1 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("exactly at the deadline is on time", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		f.clock.Advance(30 * time.Minute)

		resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, nil)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if resp.LateSubmission {
			t.Errorf("submission at the deadline flagged late")
		}
	})

	t.Run("reads the exam uncached", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		before := f.repo.uncachedExamReads

		if _, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, nil); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if f.repo.uncachedExamReads != before+1 {
			t.Errorf("uncached exam reads = %d, want %d", f.repo.uncachedExamReads, before+1)
		}
	})

	t.Run("store failure leaves attempt in progress", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t)
		f.repo.submitErr = errors.New("connection reset")

		_, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, models.AnswerSheet{f.q2.ID: {2}})
		var storeErr *StoreError
		if !errors.As(err, &storeErr) || !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected StoreError, got %v", err)
		}
		if f.stored(t, id).IsSubmitted() {
			t.Fatal("attempt submitted despite store failure")
		}

		f.repo.submitErr = nil
		resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, models.AnswerSheet{f.q2.ID: {2}})
		if err != nil || resp.Score != 1 {
			t.Fatalf("retry: resp=%+v err=%v", resp, err)
		}
	})
}

func TestAttemptService_TerminalState(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t)
	f.clock.Advance(5 * time.Minute)

	if _, err := f.service.Submit(ctx, f.student, f.exam.ID, id, models.AnswerSheet{f.q1.ID: {0, 1}}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	before := f.stored(t, id)
	f.clock.Advance(time.Minute)

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "save progress",
			call: func() error {
				return f.service.SaveProgress(ctx, f.student, f.exam.ID, id, models.AnswerSheet{f.q2.ID: {2}})
			},
		},
		{
			name: "submit again",
			call: func() error {
				_, err := f.service.Submit(ctx, f.student, f.exam.ID, id, models.AnswerSheet{f.q2.ID: {2}})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrAttemptAlreadySubmitted) {
				t.Fatalf("expected ErrAttemptAlreadySubmitted, got %v", err)
			}
			after := f.stored(t, id)
			if after.State != before.State {
				t.Errorf("state changed from %+v to %+v", before.State, after.State)
			}
			if len(after.Answers) != 1 || len(after.Answers[f.q1.ID]) != 2 {
				t.Errorf("answers changed to %v", after.Answers)
			}
		})
	}
}

func TestAttemptService_Ownership(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t)

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "save progress",
			call: func() error {
				return f.service.SaveProgress(ctx, f.other, f.exam.ID, id, models.AnswerSheet{f.q1.ID: {0}})
			},
		},
		{
			name: "submit",
			call: func() error {
				_, err := f.service.Submit(ctx, f.other, f.exam.ID, id, models.AnswerSheet{f.q1.ID: {0}})
				return err
			},
		},
		{
			name: "read",
			call: func() error {
				_, err := f.service.Get(ctx, f.other, id)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var permErr *PermissionError
			if !errors.As(err, &permErr) || !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected PermissionError, got %v", err)
			}
			a := f.stored(t, id)
			if a.IsSubmitted() || len(a.Answers) != 0 {
				t.Errorf("attempt mutated by non-owner: %+v", a)
			}
		})
	}

	t.Run("staff may read", func(t *testing.T) {
		if _, err := f.service.Get(ctx, f.teacher, id); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	})

	t.Run("other tenant sees nothing", func(t *testing.T) {
		outsider := auth.Identity{UserID: "student-1", Role: models.RoleStudent, TenantID: 2}
		if _, err := f.service.Get(ctx, outsider, id); !errors.Is(err, ErrAttemptNotFound) {
			t.Fatalf("expected ErrAttemptNotFound, got %v", err)
		}
	})
}

func TestAttemptService_ConcurrentSubmit(t *testing.T) {
	f := newAttemptFixture(t)
	id := f.start(t)
	f.clock.Advance(3 * time.Minute)

	const racers = 16
	type outcome struct {
		resp *models.SubmitAttemptResponse
		err  error
	}
	results := make(chan outcome, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		// even racers answer correctly, odd ones do not
		answers := models.AnswerSheet{f.q2.ID: {2}}
		if i%2 == 1 {
			answers = models.AnswerSheet{f.q2.ID: {1}}
		}
		wg.Add(1)
		go func(answers models.AnswerSheet) {
			defer wg.Done()
			resp, err := f.service.Submit(context.Background(), f.student, f.exam.ID, id, answers)
			results <- outcome{resp, err}
		}(answers)
	}
	wg.Wait()
	close(results)

	var winner *models.SubmitAttemptResponse
	for r := range results {
		switch {
		case r.err == nil:
			if winner != nil {
				t.Fatal("more than one submit succeeded")
			}
			winner = r.resp
		case errors.Is(r.err, ErrAttemptAlreadySubmitted):
		default:
			t.Fatalf("unexpected error: %v", r.err)
		}
	}
	if winner == nil {
		t.Fatal("no submit succeeded")
	}

	state := f.stored(t, id).State.(models.Submitted)
	if state.Score != winner.Score {
		t.Errorf("stored score %d does not match winning response %d", state.Score, winner.Score)
	}
}

func TestAttemptService_Lists(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t)
	if _, err := f.service.Start(ctx, f.other, f.exam.ID); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	t.Run("teacher lists attempts of the exam", func(t *testing.T) {
		attempts, total, err := f.service.ListByExam(ctx, f.teacher, f.exam.ID, models.ListParams{Page: 1, Size: 10})
		if err != nil {
			t.Fatalf("ListByExam() error = %v", err)
		}
		if total != 2 || len(attempts) != 2 {
			t.Errorf("total = %d, len = %d", total, len(attempts))
		}
	})

	t.Run("students cannot list an exam", func(t *testing.T) {
		_, _, err := f.service.ListByExam(ctx, f.student, f.exam.ID, models.ListParams{})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("student sees own attempts only", func(t *testing.T) {
		attempts, _, err := f.service.ListMine(ctx, f.student, models.ListParams{})
		if err != nil {
			t.Fatalf("ListMine() error = %v", err)
		}
		if len(attempts) != 1 || attempts[0].ID != id {
			t.Errorf("unexpected attempts %+v", attempts)
		}
	})
}
