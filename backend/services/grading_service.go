package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"quizplatform/backend/grading"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
)

type ManualGrade struct {
	QuestionID    string  `json:"questionId" validate:"required"`
	PointsAwarded float64 `json:"pointsAwarded" validate:"gte=0"`
	Feedback      string  `json:"feedback"`
}

type GradeInput struct {
	SubmissionID string
	GraderID     string
	Grades       []ManualGrade
	Feedback     string
}

// GradingService applies admin grading to closed submissions.
type GradingService struct {
	coordinator *Coordinator
	logger      *log.Logger
	now         func() time.Time
}

func NewGradingService(coordinator *Coordinator, logger *log.Logger) *GradingService {
	if logger == nil {
		logger = log.Default()
	}
	return &GradingService{
		coordinator: coordinator,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func questionFor(quiz *models.Quiz, a models.Answer) (models.Question, bool) {
	slot, ok := quiz.Slot(a.QuestionSetOrder)
	if !ok {
		return models.Question{}, false
	}
	return slot.Question(a.QuestionID)
}

// GradeSubmission awards points by hand. The submission becomes graded once no
// essay is left ungraded; the taker's history entry follows the new score.
func (g *GradingService) GradeSubmission(ctx context.Context, in GradeInput) (*models.QuizSubmission, error) {
	if len(in.Grades) == 0 && in.Feedback == "" {
		return nil, fmt.Errorf("%w: nothing to grade", models.ErrInvalidAnswer)
	}

	var graded *models.QuizSubmission
	err := g.coordinator.Run(ctx, func(tx *gorm.DB) error {
		graded = nil
		sub, err := repository.GetSubmission(ctx, tx, in.SubmissionID)
		if err != nil {
			return err
		}
		if sub.Status == models.SubmissionInProgress {
			return models.ErrSubmissionStillOpen
		}
		quiz, err := repository.GetQuiz(ctx, tx, sub.QuizID)
		if err != nil {
			return err
		}

		answers := sub.AnswerList()
		index := make(map[string]int, len(answers))
		for i, a := range answers {
			index[a.QuestionID] = i
		}
		for _, mg := range in.Grades {
			i, ok := index[mg.QuestionID]
			if !ok {
				return fmt.Errorf("%w: submission has no answer for question %s", models.ErrInvalidAnswer, mg.QuestionID)
			}
			q, ok := questionFor(quiz, answers[i])
			if !ok {
				return fmt.Errorf("%w: %s", models.ErrQuestionNotFound, mg.QuestionID)
			}
			r, err := grading.GradeManual(q, mg.PointsAwarded)
			if err != nil {
				return fmt.Errorf("%w: question %s allows 0-%g", err, q.ID, q.Points)
			}
			answers[i].IsCorrect = r.IsCorrect
			answers[i].PointsAwarded = r.PointsAwarded
			answers[i].ManuallyGraded = true
			answers[i].Feedback = mg.Feedback
		}
		sub.SetAnswers(answers)
		sub.Recalculate()

		now := g.now()
		sub.GradedBy = &in.GraderID
		sub.GradedAt = &now
		if in.Feedback != "" {
			sub.Feedback = in.Feedback
		}
		if sub.HasUngradedEssays() {
			sub.Status = models.SubmissionPendingManualGrading
		} else {
			sub.Status = models.SubmissionGraded
		}

		if err := repository.SaveVersioned(ctx, tx, sub); err != nil {
			return err
		}
		if err := syncTakerHistory(ctx, tx, sub); err != nil {
			return err
		}
		graded = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.logger.Printf("Submission %s graded by %s: %.2f/%.2f", graded.ID, in.GraderID, graded.Score, graded.TotalPoints)
	return graded, nil
}

// Regrade reruns automatic grading against the quiz snapshot. Manually graded
// answers keep their award.
func (g *GradingService) Regrade(ctx context.Context, submissionID string) (*models.QuizSubmission, error) {
	var regraded *models.QuizSubmission
	err := g.coordinator.Run(ctx, func(tx *gorm.DB) error {
		regraded = nil
		sub, err := repository.GetSubmission(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		quiz, err := repository.GetQuiz(ctx, tx, sub.QuizID)
		if err != nil {
			return err
		}

		answers := sub.AnswerList()
		for i, a := range answers {
			if a.ManuallyGraded {
				continue
			}
			q, ok := questionFor(quiz, a)
			if !ok {
				g.logger.Printf("Regrade %s: question %s no longer in quiz snapshot", sub.ID, a.QuestionID)
				continue
			}
			answers[i] = grading.ToAnswer(q, a.QuestionSetOrder, a.Answer)
		}
		sub.SetAnswers(answers)
		sub.Recalculate()

		switch sub.Status {
		case models.SubmissionInProgress:
		case models.SubmissionGraded:
			if sub.HasUngradedEssays() {
				sub.Status = models.SubmissionPendingManualGrading
			}
		default:
			sub.Status = sub.ClosedStatus()
		}

		if err := repository.SaveVersioned(ctx, tx, sub); err != nil {
			return err
		}
		if err := syncTakerHistory(ctx, tx, sub); err != nil {
			return err
		}
		regraded = sub
		return nil
	})
	return regraded, err
}

func syncTakerHistory(ctx context.Context, tx *gorm.DB, sub *models.QuizSubmission) error {
	taker, err := repository.GetQuizTaker(ctx, tx, sub.QuizTakerID)
	if err != nil {
		return err
	}
	if !taker.SyncHistory(sub) {
		return nil
	}
	return repository.SaveVersioned(ctx, tx, taker)
}
