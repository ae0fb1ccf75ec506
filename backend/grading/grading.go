// Package grading scores a single submitted answer against a question.
// Nothing here touches storage, so the same functions serve live submission
// and later regrading.
package grading

import (
	"strings"

	"quizplatform/backend/models"
)

// Result is nil-correct for essays until someone grades them by hand.
type Result struct {
	IsCorrect     *bool   `json:"isCorrect"`
	PointsAwarded float64 `json:"pointsAwarded"`
}

func Grade(q models.Question, answer string) Result {
	switch q.Type {
	case models.QuestionMultipleChoice:
		option, ok := q.CorrectOption()
		return verdict(ok && answer == option, q.Points)
	case models.QuestionTrueFalse:
		return verdict(strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)), q.Points)
	case models.QuestionFillInTheBlank:
		return verdict(strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)), q.Points)
	case models.QuestionEssay:
		return Result{}
	}
	return verdict(false, q.Points)
}

// GradeManual applies an admin's point award.
func GradeManual(q models.Question, points float64) (Result, error) {
	if points < 0 || points > q.Points {
		return Result{}, models.ErrInvalidPoints
	}
	correct := points > 0
	return Result{IsCorrect: &correct, PointsAwarded: points}, nil
}

// ToAnswer builds the stored answer record for slot order.
func ToAnswer(q models.Question, order int, answer string) models.Answer {
	r := Grade(q, answer)
	return models.Answer{
		QuestionID:       q.ID,
		QuestionSetOrder: order,
		QuestionType:     q.Type,
		Answer:           answer,
		IsCorrect:        r.IsCorrect,
		PointsAwarded:    r.PointsAwarded,
		MaxPoints:        q.Points,
	}
}

func verdict(correct bool, points float64) Result {
	r := Result{IsCorrect: &correct}
	if correct {
		r.PointsAwarded = points
	}
	return r
}
