package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"quizplatform/backend/models"
	"quizplatform/backend/repository"
)

type SubmitInput struct {
	QuizID            string
	QuizTakerID       string
	QuestionSetOrder  int
	Answers           []AnswerInput
	IsFinalSubmission bool
}

type SubmitResult struct {
	SubmissionID           string                  `json:"submissionId"`
	QuestionSetOrder       int                     `json:"questionSetOrder"`
	QuestionSetScore       float64                 `json:"questionSetScore"`
	QuestionSetTotalPoints float64                 `json:"questionSetTotalPoints"`
	OverallScore           float64                 `json:"overallScore"`
	OverallTotalPoints     float64                 `json:"overallTotalPoints"`
	Percentage             float64                 `json:"percentage"`
	Status                 models.SubmissionStatus `json:"status"`
	IsFinalSubmission      bool                    `json:"isFinalSubmission"`
	QuizCompleted          bool                    `json:"quizCompleted"`
}

// SubmissionService drives the quiz taker side of a quiz: starting, reordering
// and submitting question sets. Every operation goes through the coordinator.
type SubmissionService struct {
	db          *gorm.DB
	coordinator *Coordinator
	logger      *log.Logger
	now         func() time.Time
}

func NewSubmissionService(db *gorm.DB, coordinator *Coordinator, logger *log.Logger) *SubmissionService {
	if logger == nil {
		logger = log.Default()
	}
	return &SubmissionService{
		db:          db,
		coordinator: coordinator,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source, for tests.
func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	s.now = now
	return s
}

// loadPair reads the taker and quiz inside tx and checks they may interact at all.
func loadPair(ctx context.Context, tx *gorm.DB, quizID, takerID string) (*models.QuizTaker, *models.Quiz, error) {
	taker, err := repository.GetQuizTaker(ctx, tx, takerID)
	if err != nil {
		return nil, nil, err
	}
	if !taker.IsActive {
		return nil, nil, models.ErrAccountInactive
	}
	quiz, err := repository.GetQuiz(ctx, tx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if !quiz.IsActive {
		return nil, nil, models.ErrQuizInactive
	}
	if !taker.IsPremium() && quiz.Settings.Mode != models.QuizModeOpen {
		return nil, nil, models.ErrQuizNotOpen
	}
	return taker, quiz, nil
}

// checkRetake applies the quiz retake policy before a regular taker opens a new attempt.
func checkRetake(ctx context.Context, tx *gorm.DB, quiz *models.Quiz, takerID string) (int, error) {
	attempts, err := repository.CountAttempts(ctx, tx, quiz.ID, takerID)
	if err != nil {
		return 0, err
	}
	if attempts > 0 && !quiz.Settings.AllowRetake {
		return 0, models.ErrQuizAlreadyCompleted
	}
	if quiz.Settings.MaxAttempts > 0 && attempts >= int64(quiz.Settings.MaxAttempts) {
		return 0, models.ErrAttemptsExhausted
	}
	return int(attempts), nil
}

// StartQuiz moves a premium assignment to in-progress and sets up its progress.
// Regular takers have no assignment; the call only checks they may take the quiz
// and returns nil.
func (s *SubmissionService) StartQuiz(ctx context.Context, quizID, takerID string) (*models.AssignedQuiz, error) {
	var started *models.AssignedQuiz
	err := s.coordinator.Run(ctx, func(tx *gorm.DB) error {
		started = nil
		taker, quiz, err := loadPair(ctx, tx, quizID, takerID)
		if err != nil {
			return err
		}
		if !taker.IsPremium() {
			open, err := repository.FindOpenSubmission(ctx, tx, quiz.ID, taker.ID)
			if err != nil || open != nil {
				return err
			}
			_, err = checkRetake(ctx, tx, quiz, taker.ID)
			return err
		}

		a, ok := taker.Assignment(quiz.ID)
		if !ok {
			return models.ErrQuizNotAssigned
		}
		if err := a.Start(s.now()); err != nil {
			return err
		}
		taker.PutAssignment(a)
		if err := repository.SaveVersioned(ctx, tx, taker); err != nil {
			return err
		}
		started = &a
		return nil
	})
	return started, err
}

// StartQuestionSet moves one slot of a premium assignment to in-progress.
func (s *SubmissionService) StartQuestionSet(ctx context.Context, quizID, takerID string, order int) (*models.AssignedQuiz, error) {
	if !models.ValidSlot(order) {
		return nil, models.ErrInvalidQuestionSet
	}
	var started *models.AssignedQuiz
	err := s.coordinator.Run(ctx, func(tx *gorm.DB) error {
		started = nil
		taker, quiz, err := loadPair(ctx, tx, quizID, takerID)
		if err != nil {
			return err
		}
		if !taker.IsPremium() {
			open, err := repository.FindOpenSubmission(ctx, tx, quiz.ID, taker.ID)
			if err != nil {
				return err
			}
			if open != nil && open.IsSlotFinal(order) {
				return fmt.Errorf("%w: question set %d", models.ErrQuestionSetCompleted, order)
			}
			if open == nil {
				_, err = checkRetake(ctx, tx, quiz, taker.ID)
			}
			return err
		}

		a, ok := taker.Assignment(quiz.ID)
		if !ok {
			return models.ErrQuizNotAssigned
		}
		if err := a.StartQuestionSet(order, s.now()); err != nil {
			return err
		}
		taker.PutAssignment(a)
		if err := repository.SaveVersioned(ctx, tx, taker); err != nil {
			return err
		}
		started = &a
		return nil
	})
	return started, err
}

// SetCustomOrder changes the traversal order of a premium assignment and keeps the
// open submission's copy in step.
func (s *SubmissionService) SetCustomOrder(ctx context.Context, quizID, takerID string, order []int) (*models.AssignedQuiz, error) {
	if err := models.ValidateCustomOrder(order); err != nil {
		return nil, err
	}
	var updated *models.AssignedQuiz
	err := s.coordinator.Run(ctx, func(tx *gorm.DB) error {
		updated = nil
		taker, quiz, err := loadPair(ctx, tx, quizID, takerID)
		if err != nil {
			return err
		}
		if !taker.IsPremium() {
			return models.ErrRegularAssignment
		}
		a, ok := taker.Assignment(quiz.ID)
		if !ok {
			return models.ErrQuizNotAssigned
		}
		if err := a.SetCustomOrder(order); err != nil {
			return err
		}
		taker.PutAssignment(a)

		open, err := repository.FindOpenSubmission(ctx, tx, quiz.ID, taker.ID)
		if err != nil {
			return err
		}
		if open != nil {
			open.SetCustomOrder(order)
			if err := repository.SaveVersioned(ctx, tx, open); err != nil {
				return err
			}
		}
		if err := repository.SaveVersioned(ctx, tx, taker); err != nil {
			return err
		}
		updated = &a
		return nil
	})
	return updated, err
}

// Submit grades and stores the answers of one question set. A final submission
// completes the slot; finalising the last outstanding slot closes the quiz.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if !models.ValidSlot(in.QuestionSetOrder) {
		return nil, models.ErrInvalidQuestionSet
	}
	if len(in.Answers) == 0 {
		return nil, fmt.Errorf("%w: at least one answer is required", models.ErrInvalidAnswer)
	}

	var result *SubmitResult
	err := s.coordinator.Run(ctx, func(tx *gorm.DB) error {
		result = nil
		now := s.now()

		taker, quiz, err := loadPair(ctx, tx, in.QuizID, in.QuizTakerID)
		if err != nil {
			return err
		}
		slot, ok := quiz.Slot(in.QuestionSetOrder)
		if !ok {
			return fmt.Errorf("%w: quiz has no question set %d", models.ErrInvalidQuestionSet, in.QuestionSetOrder)
		}

		var assignment *models.AssignedQuiz
		if taker.IsPremium() {
			a, ok := taker.Assignment(quiz.ID)
			if !ok {
				return models.ErrQuizNotAssigned
			}
			if err := a.CheckSubmittable(in.QuestionSetOrder); err != nil {
				return err
			}
			assignment = &a
		}

		answers, err := GradeQuestionSet(slot, in.Answers)
		if err != nil {
			return err
		}

		sub, err := repository.FindOpenSubmission(ctx, tx, quiz.ID, taker.ID)
		if err != nil {
			return err
		}
		created := sub == nil
		if created {
			sub, err = s.openSubmission(ctx, tx, quiz, taker, assignment, now)
			if err != nil {
				return err
			}
		}

		qss, err := MergeQuestionSet(sub, slot, answers, in.IsFinalSubmission, now)
		if err != nil {
			return err
		}

		if assignment != nil {
			if in.IsFinalSubmission {
				err = assignment.CompleteQuestionSet(in.QuestionSetOrder, qss.Score, qss.TotalPoints, now)
			} else {
				err = assignment.RecordScore(in.QuestionSetOrder, qss.Score, qss.TotalPoints)
			}
			if err != nil {
				return err
			}
		}

		done := sub.FinalizedCount() == models.QuestionSetsPerQuiz
		if done {
			CloseOut(sub, now)
			if assignment != nil {
				assignment.Complete(sub.ID, now)
			}
			taker.AppendHistory(Summary(quiz, sub))
		}

		if created {
			err = repository.Create(ctx, tx, sub)
		} else {
			err = repository.SaveVersioned(ctx, tx, sub)
		}
		if err != nil {
			return err
		}
		if assignment != nil {
			taker.PutAssignment(*assignment)
		}
		if assignment != nil || done {
			if err := repository.SaveVersioned(ctx, tx, taker); err != nil {
				return err
			}
		}

		result = &SubmitResult{
			SubmissionID:           sub.ID,
			QuestionSetOrder:       qss.QuestionSetOrder,
			QuestionSetScore:       qss.Score,
			QuestionSetTotalPoints: qss.TotalPoints,
			OverallScore:           sub.Score,
			OverallTotalPoints:     sub.TotalPoints,
			Percentage:             sub.Percentage,
			Status:                 sub.Status,
			IsFinalSubmission:      in.IsFinalSubmission,
			QuizCompleted:          done,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.QuizCompleted {
		s.logger.Printf("Quiz %s completed by %s: %.2f/%.2f (%s)", in.QuizID, in.QuizTakerID, result.OverallScore, result.OverallTotalPoints, result.Status)
	}
	return result, nil
}

func (s *SubmissionService) openSubmission(ctx context.Context, tx *gorm.DB, quiz *models.Quiz, taker *models.QuizTaker, assignment *models.AssignedQuiz, now time.Time) (*models.QuizSubmission, error) {
	if assignment != nil {
		startedAt := now
		if assignment.StartedAt != nil {
			startedAt = *assignment.StartedAt
		}
		attempts, err := repository.CountAttempts(ctx, tx, quiz.ID, taker.ID)
		if err != nil {
			return nil, err
		}
		return NewSubmission(quiz, taker.ID, assignment.CustomOrder, int(attempts)+1, startedAt), nil
	}

	attempts, err := checkRetake(ctx, tx, quiz, taker.ID)
	if err != nil {
		return nil, err
	}
	return NewSubmission(quiz, taker.ID, models.DefaultCustomOrder(), attempts+1, now), nil
}
