package application

import "strings"

// QuestionType selects how an answer is checked.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionText           QuestionType = "TEXT"
)

// Question is one item of an answer key.
type Question struct {
	ID            string
	Type          QuestionType
	CorrectAnswer string
	Points        int
}

// GradeResult is the outcome of Grade.
type GradeResult struct {
	Points          int
	MaxPoints       int
	FullyAutoGraded bool
}

// Grade scores answers, keyed by question id, against the answer key. TEXT
// questions need a human and leave FullyAutoGraded false. Missing answers
// score zero.
func Grade(questions []Question, answers map[string]string) GradeResult {
	result := GradeResult{FullyAutoGraded: true}

	for _, question := range questions {
		result.MaxPoints += question.Points

		answer, answered := answers[question.ID]
		answer = strings.TrimSpace(answer)
		correct := strings.TrimSpace(question.CorrectAnswer)

		switch question.Type {
		case QuestionMultipleChoice, QuestionTrueFalse:
			if answered && answer == correct {
				result.Points += question.Points
			}
		case QuestionShortAnswer:
			if answered && strings.EqualFold(answer, correct) {
				result.Points += question.Points
			}
		default:
			result.FullyAutoGraded = false
		}
	}

	return result
}
