package services

import "github.com/SAP-F-2025/exam-service/internal/models"

// ScoreResult is the outcome of scoring one answer sheet
type ScoreResult struct {
	Score int
	// Scored counts answered questions that resolved to a question of the exam
	Scored int
	// Missing lists answered question ids that are unknown or not part of the exam
	Missing []uint
}

// ScoreAnswers awards one point per answered question whose selection equals
// the correct option set. Order is ignored and there is no partial credit.
//
// Only questions listed in the exam are scored. An answer for a question that
// exists in the tenant but is not part of the exam scores 0 and is reported in
// Missing together with unknown ids, so Missing is not limited to deleted questions.
func ScoreAnswers(exam *models.Exam, questions map[uint]*models.Question, answers models.AnswerSheet) ScoreResult {
	result := ScoreResult{Missing: []uint{}}

	for _, questionID := range answers.QuestionIDs() {
		question, ok := questions[questionID]
		if !ok || !exam.Includes(questionID) {
			result.Missing = append(result.Missing, questionID)
			continue
		}

		result.Scored++
		if sameOptionSet(answers[questionID], question.CorrectOptionIDs) {
			result.Score++
		}
	}

	return result
}

// sameOptionSet compares two option selections as sets
func sameOptionSet(selected, correct []int) bool {
	want := make(map[int]struct{}, len(correct))
	for _, id := range correct {
		want[id] = struct{}{}
	}

	got := make(map[int]struct{}, len(selected))
	for _, id := range selected {
		if _, ok := want[id]; !ok {
			return false
		}
		got[id] = struct{}{}
	}
	return len(got) == len(want)
}
