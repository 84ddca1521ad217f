package models

import (
	"encoding/json"
	"errors"
	"sort"
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

var ErrAttemptFinalized = errors.New("attempt already submitted")

// AnswerSheet maps a question id to the option ordinals the student selected.
type AnswerSheet map[uint][]int

// QuestionIDs returns the answered question ids in ascending order.
func (a AnswerSheet) QuestionIDs() []uint {
	ids := make([]uint, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (a AnswerSheet) Clone() AnswerSheet {
	out := make(AnswerSheet, len(a))
	for id, selected := range a {
		out[id] = append([]int(nil), selected...)
	}
	return out
}

// AttemptState is either InProgress or Submitted.
type AttemptState interface {
	Status() AttemptStatus
	StartedAt() time.Time
	attemptState()
}

type InProgress struct {
	Started time.Time
}

func (InProgress) Status() AttemptStatus  { return AttemptInProgress }
func (s InProgress) StartedAt() time.Time { return s.Started }
func (InProgress) attemptState()          {}

// Submitted is terminal.
type Submitted struct {
	Started time.Time
	Ended   time.Time
	Score   int
	Late    bool
}

func (Submitted) Status() AttemptStatus  { return AttemptSubmitted }
func (s Submitted) StartedAt() time.Time { return s.Started }
func (Submitted) attemptState()          {}

func (s Submitted) TimeTaken() time.Duration {
	return s.Ended.Sub(s.Started)
}

// Attempt is one student's run through one exam.
type Attempt struct {
	ID        uint
	TenantID  uint
	ExamID    uint
	StudentID string
	Answers   AnswerSheet
	State     AttemptState
}

func NewAttempt(tenantID, examID uint, studentID string, startedAt time.Time) *Attempt {
	return &Attempt{
		TenantID:  tenantID,
		ExamID:    examID,
		StudentID: studentID,
		Answers:   AnswerSheet{},
		State:     InProgress{Started: startedAt},
	}
}

func (a *Attempt) IsSubmitted() bool {
	_, ok := a.State.(Submitted)
	return ok
}

// Finalize computes the terminal state for a submission at endedAt. It does not
// mutate the attempt; the caller persists the result and then applies it.
func (a *Attempt) Finalize(endedAt time.Time, score int, allowed time.Duration) (Submitted, error) {
	current, ok := a.State.(InProgress)
	if !ok {
		return Submitted{}, ErrAttemptFinalized
	}
	return Submitted{
		Started: current.Started,
		Ended:   endedAt,
		Score:   score,
		Late:    endedAt.Sub(current.Started) > allowed,
	}, nil
}

type attemptJSON struct {
	ID             uint          `json:"id"`
	TenantID       uint          `json:"tenant_id"`
	ExamID         uint          `json:"exam_id"`
	StudentID      string        `json:"student_id"`
	Answers        AnswerSheet   `json:"answers"`
	Status         AttemptStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	Score          int           `json:"score"`
	TimeTakenMs    *int64        `json:"time_taken_ms,omitempty"`
	LateSubmission bool          `json:"late_submission"`
}

func (a *Attempt) MarshalJSON() ([]byte, error) {
	out := attemptJSON{
		ID:        a.ID,
		TenantID:  a.TenantID,
		ExamID:    a.ExamID,
		StudentID: a.StudentID,
		Answers:   a.Answers,
	}
	if out.Answers == nil {
		out.Answers = AnswerSheet{}
	}
	if a.State != nil {
		out.Status = a.State.Status()
		out.StartedAt = a.State.StartedAt()
	}
	if s, ok := a.State.(Submitted); ok {
		ended := s.Ended
		taken := s.TimeTaken().Milliseconds()
		out.EndedAt = &ended
		out.Score = s.Score
		out.TimeTakenMs = &taken
		out.LateSubmission = s.Late
	}
	return json.Marshal(out)
}
