package services_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"quizplatform/backend/config"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
	"quizplatform/backend/services"
	"quizplatform/backend/utils"
)

var (
	ctx       = context.Background()
	quietLog  = log.New(io.Discard, "", 0)
	fastRetry = services.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, Multiplier: 2}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		DBDriver:   "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}
	db, err := utils.InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db      *gorm.DB
	quiz    *models.Quiz
	premium *models.QuizTaker
	regular *models.QuizTaker
	svc     *services.SubmissionService
	grader  *services.GradingService
	clock   *testClock
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// newFixture seeds a four-slot quiz: slots 1-3 hold one true-false and one
// fill-in question (1 point each), slot 4 adds an essay worth 5 points.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	slots := make([]models.QuizQuestionSet, 0, 4)
	for order := 1; order <= 4; order++ {
		qs := &models.QuestionSet{Title: fmt.Sprintf("Set %d", order)}
		qs.SetQuestions([]models.Question{
			{ID: fmt.Sprintf("tf-%d", order), Type: models.QuestionTrueFalse, Text: "Go has goroutines", CorrectAnswer: "true", Points: 1, Order: 1},
			{ID: fmt.Sprintf("fb-%d", order), Type: models.QuestionFillInTheBlank, Text: "Capital of France", CorrectAnswer: "Paris", Points: 1, Order: 2},
		})
		if order == 4 {
			_, err := qs.AddQuestion(models.Question{ID: "essay-4", Type: models.QuestionEssay, Text: "Explain channels", Points: 5})
			require.NoError(t, err)
		}
		require.NoError(t, repository.Create(ctx, db, qs))
		slots = append(slots, models.NewQuizQuestionSet(order, *qs))
	}

	quiz := &models.Quiz{
		Title:    "Go basics",
		IsActive: true,
		Settings: models.QuizSettings{Mode: models.QuizModeOpen, ShowResults: true},
	}
	quiz.SetSlots(slots)
	require.NoError(t, repository.Create(ctx, db, quiz))

	code := "ACCESS-1"
	premium := &models.QuizTaker{Email: "premium@example.com", Name: "P", AccountType: models.AccountPremium, IsActive: true, AccessCode: &code}
	_, err := premium.Assign(quiz.ID, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repository.Create(ctx, db, premium))

	regular := &models.QuizTaker{Email: "regular@example.com", Name: "R", AccountType: models.AccountRegular, IsActive: true}
	require.NoError(t, repository.Create(ctx, db, regular))

	clock := &testClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	coord := services.NewCoordinator(db, fastRetry, quietLog)
	return &fixture{
		db:      db,
		quiz:    quiz,
		premium: premium,
		regular: regular,
		svc:     services.NewSubmissionService(db, coord, quietLog).WithClock(clock.Now),
		grader:  services.NewGradingService(coord, quietLog),
		clock:   clock,
	}
}

func correctAnswers(order int) []services.AnswerInput {
	return []services.AnswerInput{
		{QuestionID: fmt.Sprintf("tf-%d", order), Answer: "TRUE"},
		{QuestionID: fmt.Sprintf("fb-%d", order), Answer: " paris "},
	}
}

func (f *fixture) submit(t *testing.T, taker *models.QuizTaker, order int, answers []services.AnswerInput, final bool) (*services.SubmitResult, error) {
	t.Helper()
	return f.svc.Submit(ctx, services.SubmitInput{
		QuizID:            f.quiz.ID,
		QuizTakerID:       taker.ID,
		QuestionSetOrder:  order,
		Answers:           answers,
		IsFinalSubmission: final,
	})
}

func (f *fixture) assignment(t *testing.T) models.AssignedQuiz {
	t.Helper()
	taker, err := repository.GetQuizTaker(ctx, f.db, f.premium.ID)
	require.NoError(t, err)
	a, ok := taker.Assignment(f.quiz.ID)
	require.True(t, ok)
	return a
}

func (f *fixture) openSubmission(t *testing.T, taker *models.QuizTaker) *models.QuizSubmission {
	t.Helper()
	sub, err := repository.FindOpenSubmission(ctx, f.db, f.quiz.ID, taker.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}
