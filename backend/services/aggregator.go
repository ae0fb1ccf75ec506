package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizplatform/backend/grading"
	"quizplatform/backend/models"
)

type AnswerInput struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer"`
}

// GradeQuestionSet grades a batch of answers against one quiz slot snapshot.
// Unknown or repeated question IDs reject the whole batch.
func GradeQuestionSet(slot models.QuizQuestionSet, inputs []AnswerInput) ([]models.Answer, error) {
	seen := make(map[string]bool, len(inputs))
	answers := make([]models.Answer, 0, len(inputs))
	for _, in := range inputs {
		if seen[in.QuestionID] {
			return nil, fmt.Errorf("%w: question %s answered twice", models.ErrInvalidAnswer, in.QuestionID)
		}
		seen[in.QuestionID] = true

		q, ok := slot.Question(in.QuestionID)
		if !ok {
			return nil, fmt.Errorf("%w: question %s is not part of question set %d", models.ErrInvalidAnswer, in.QuestionID, slot.QuestionSetOrder)
		}
		answers = append(answers, grading.ToAnswer(q, slot.QuestionSetOrder, in.Answer))
	}
	return answers, nil
}

// NewSubmission opens an in-progress submission. The ID is fixed up front so the
// assignment can point at it before the row exists.
func NewSubmission(quiz *models.Quiz, takerID string, customOrder []int, attempt int, startedAt time.Time) *models.QuizSubmission {
	sub := &models.QuizSubmission{
		QuizID:        quiz.ID,
		QuizTakerID:   takerID,
		TotalPoints:   quiz.TotalPoints,
		Status:        models.SubmissionInProgress,
		AttemptNumber: attempt,
		StartedAt:     startedAt,
	}
	sub.ID = uuid.NewString()
	sub.SetAnswers([]models.Answer{})
	sub.SetCustomOrder(customOrder)
	return sub
}

// MergeQuestionSet stores the graded answers of a slot in sub, replacing any earlier
// answers of that slot, and returns the slot's recomputed record.
func MergeQuestionSet(sub *models.QuizSubmission, slot models.QuizQuestionSet, answers []models.Answer, final bool, now time.Time) (models.QuestionSetSubmission, error) {
	order := slot.QuestionSetOrder
	if sub.IsSlotFinal(order) {
		return models.QuestionSetSubmission{}, fmt.Errorf("%w: question set %d", models.ErrQuestionSetCompleted, order)
	}

	sub.ReplaceSlotAnswers(order, answers)

	qss, _ := sub.SlotSubmission(order)
	qss.QuestionSetOrder = order
	qss.TotalPoints = slot.TotalPoints
	qss.SubmittedAt = now
	if final {
		qss.OrderAnswered = sub.FinalizedCount() + 1
		qss.IsFinal = true
	}
	sub.PutSlotSubmission(qss)
	sub.Recalculate()

	merged, _ := sub.SlotSubmission(order)
	return merged, nil
}

// CloseOut finishes a submission whose four slots are final.
func CloseOut(sub *models.QuizSubmission, now time.Time) {
	sub.Status = sub.ClosedStatus()
	sub.SubmittedAt = &now
	taken := now.Sub(sub.StartedAt)
	if taken < 0 {
		taken = 0
	}
	sub.TimeTakenSeconds = int64(taken / time.Second)
}

func Summary(quiz *models.Quiz, sub *models.QuizSubmission) models.QuizTakenSummary {
	completed := time.Now().UTC()
	if sub.SubmittedAt != nil {
		completed = *sub.SubmittedAt
	}
	return models.QuizTakenSummary{
		QuizID:           quiz.ID,
		QuizTitle:        quiz.Title,
		SubmissionID:     sub.ID,
		Score:            sub.Score,
		TotalPoints:      sub.TotalPoints,
		Percentage:       sub.Percentage,
		Status:           sub.Status,
		TimeTakenSeconds: sub.TimeTakenSeconds,
		CompletedAt:      completed,
	}
}
