package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

const maxAnsweredQuestions = 1000

// ValidateQuestionCreate validates struct tags plus option/correct-answer consistency
func (v *Validator) ValidateQuestionCreate(req *models.QuestionCreateRequest) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, v.validateStruct(req)...)
	errs = append(errs, validateQuestionOptions(req.Options, req.CorrectOptionIDs)...)

	return errs
}

// ValidateQuestionBatch validates every question and prefixes fields with the item index
func (v *Validator) ValidateQuestionBatch(req *models.QuestionBatchRequest) ValidationErrors {
	errs := v.validateStruct(req)
	for i := range req.Questions {
		for _, e := range v.ValidateQuestionCreate(&req.Questions[i]) {
			e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
			errs = append(errs, e)
		}
	}
	return errs
}

// ValidateQuestionUpdate checks the update merged with the stored question, so
// changed options are checked against the kept correct set and the reverse.
func (v *Validator) ValidateQuestionUpdate(req *models.QuestionUpdateRequest, current *models.Question) ValidationErrors {
	errs := v.validateStruct(req)

	if req.Options == nil && req.CorrectOptionIDs == nil {
		return errs
	}

	options := req.Options
	if options == nil {
		options = make([]models.QuestionOptionRequest, len(current.Options))
		for i, opt := range current.Options {
			options[i] = models.QuestionOptionRequest{Text: opt.Text}
		}
	}
	correct := req.CorrectOptionIDs
	if correct == nil {
		correct = current.CorrectOptionIDs
	}

	return append(errs, validateQuestionOptions(options, correct)...)
}

func validateQuestionOptions(options []models.QuestionOptionRequest, correct []int) ValidationErrors {
	var errs ValidationErrors

	if len(options) < models.MinOptions {
		errs = append(errs, ValidationError{
			Field:   "options",
			Message: fmt.Sprintf("must contain at least %d options", models.MinOptions),
			Value:   len(options),
			Rule:    "min_options",
		})
	}

	for i, opt := range options {
		if strings.TrimSpace(opt.Text) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("options[%d].text", i),
				Message: "option text cannot be empty",
				Rule:    "option_text",
			})
		}
		if opt.ID != nil && *opt.ID != i {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("options[%d].id", i),
				Message: fmt.Sprintf("option id must equal its position %d", i),
				Value:   *opt.ID,
				Rule:    "option_ordinal",
			})
		}
	}

	if len(correct) == 0 {
		errs = append(errs, ValidationError{
			Field:   "correct_option_ids",
			Message: "at least one correct option is required",
			Rule:    "correct_required",
		})
		return errs
	}

	seen := make(map[int]struct{}, len(correct))
	for _, id := range correct {
		if id < 0 || id >= len(options) {
			errs = append(errs, ValidationError{
				Field:   "correct_option_ids",
				Message: fmt.Sprintf("option id %d is out of range", id),
				Value:   id,
				Rule:    "correct_range",
			})
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, ValidationError{
				Field:   "correct_option_ids",
				Message: fmt.Sprintf("option id %d is repeated", id),
				Value:   id,
				Rule:    "correct_unique",
			})
		}
		seen[id] = struct{}{}
	}

	return errs
}

// ValidateAnswerSheet checks the shape of submitted answers. It does not look questions up.
func (v *Validator) ValidateAnswerSheet(answers models.AnswerSheet) ValidationErrors {
	var errs ValidationErrors

	if len(answers) > maxAnsweredQuestions {
		errs = append(errs, ValidationError{
			Field:   "answers",
			Message: fmt.Sprintf("cannot answer more than %d questions", maxAnsweredQuestions),
			Value:   len(answers),
			Rule:    "max_answers",
		})
		return errs
	}

	for _, questionID := range answers.QuestionIDs() {
		field := fmt.Sprintf("answers[%d]", questionID)
		if questionID == 0 {
			errs = append(errs, ValidationError{Field: field, Message: "question id must be positive", Rule: "question_id"})
			continue
		}

		seen := make(map[int]struct{}, len(answers[questionID]))
		for _, option := range answers[questionID] {
			if option < 0 {
				errs = append(errs, ValidationError{Field: field, Message: "option ids cannot be negative", Value: option, Rule: "option_id"})
				continue
			}
			if _, dup := seen[option]; dup {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("option id %d selected twice", option), Value: option, Rule: "option_unique"})
			}
			seen[option] = struct{}{}
		}
	}

	return errs
}

// ValidateLogin requires the password and at least one identifier
func (v *Validator) ValidateLogin(req *models.LoginRequest) ValidationErrors {
	errs := v.validateStruct(req)
	if strings.TrimSpace(req.Username) == "" && strings.TrimSpace(req.Email) == "" && strings.TrimSpace(req.PhoneNumber) == "" {
		errs = append(errs, ValidationError{
			Field:   "username",
			Message: "email, phone number or username is required",
			Rule:    "identifier_required",
		})
	}
	return errs
}
