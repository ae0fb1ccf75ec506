package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestEnsureProgressIsIdempotent(t *testing.T) {
	a := NewAssignedQuiz("quiz-1", now)
	a.CustomOrder = []int{3, 1, 4, 2}

	a.EnsureProgress()
	require.Len(t, a.Progress, 4)
	assert.Equal(t, 1, a.Progress[3].CustomOrderPosition)
	assert.Equal(t, 4, a.Progress[2].CustomOrderPosition)

	p := a.Progress[1]
	p.Status = ProgressInProgress
	a.Progress[1] = p

	a.EnsureProgress()
	require.Len(t, a.Progress, 4)
	assert.Equal(t, ProgressInProgress, a.Progress[1].Status)
}

func TestEnsureProgressRepairsInvalidOrder(t *testing.T) {
	a := AssignedQuiz{QuizID: "quiz-1", Status: AssignmentPending, CustomOrder: []int{1, 1, 2}}
	a.EnsureProgress()
	assert.Equal(t, DefaultCustomOrder(), a.CustomOrder)
	for slot := 1; slot <= 4; slot++ {
		assert.Equal(t, slot, a.Progress[slot].QuestionSetOrder)
	}
}

func TestStartQuestionSetStartsAssignment(t *testing.T) {
	a := NewAssignedQuiz("quiz-1", now)

	require.NoError(t, a.StartQuestionSet(2, now))
	assert.Equal(t, AssignmentInProgress, a.Status)
	require.NotNil(t, a.StartedAt)
	assert.Equal(t, ProgressInProgress, a.Progress[2].Status)
	assert.Equal(t, ProgressNotStarted, a.Progress[1].Status)
	assert.Equal(t, 2, a.CurrentQuestionSet)

	// starting the same slot again changes nothing
	later := now.Add(time.Minute)
	require.NoError(t, a.StartQuestionSet(2, later))
	assert.Equal(t, now, *a.Progress[2].StartedAt)
}

func TestStartQuestionSetRejectsInvalidSlot(t *testing.T) {
	a := NewAssignedQuiz("quiz-1", now)
	assert.ErrorIs(t, a.StartQuestionSet(0, now), ErrInvalidQuestionSet)
	assert.ErrorIs(t, a.StartQuestionSet(5, now), ErrInvalidQuestionSet)
}

func TestCheckSubmittable(t *testing.T) {
	a := NewAssignedQuiz("quiz-1", now)
	assert.ErrorIs(t, a.CheckSubmittable(1), ErrQuizNotStarted)

	require.NoError(t, a.Start(now))
	assert.ErrorIs(t, a.CheckSubmittable(1), ErrQuestionSetNotStarted)

	require.NoError(t, a.StartQuestionSet(1, now))
	assert.NoError(t, a.CheckSubmittable(1))
}

func TestCompletedQuestionSetIsImmutable(t *testing.T) {
	a := NewAssignedQuiz("quiz-1", now)
	require.NoError(t, a.StartQuestionSet(1, now))
	require.NoError(t, a.CompleteQuestionSet(1, 4, 5, now))

	assert.Equal(t, ProgressCompleted, a.Progress[1].Status)
	assert.ErrorIs(t, a.CompleteQuestionSet(1, 5, 5, now), ErrQuestionSetCompleted)
	assert.ErrorIs(t, a.StartQuestionSet(1, now), ErrQuestionSetCompleted)
	assert.ErrorIs(t, a.RecordScore(1, 5, 5), ErrQuestionSetCompleted)
	assert.Equal(t, 4.0, a.Progress[1].Score)
	assert.Equal(t, 2, a.CurrentQuestionSet)
}

func TestSetCustomOrderLockedAfterCompletion(t *testing.T) {
	a := NewAssignedQuiz("quiz-1", now)
	require.NoError(t, a.SetCustomOrder([]int{4, 3, 2, 1}))
	assert.Equal(t, 1, a.Progress[4].CustomOrderPosition)

	assert.ErrorIs(t, a.SetCustomOrder([]int{1, 2, 3}), ErrInvalidCustomOrder)
	assert.ErrorIs(t, a.SetCustomOrder([]int{1, 2, 3, 3}), ErrInvalidCustomOrder)

	require.NoError(t, a.StartQuestionSet(4, now))
	require.NoError(t, a.CompleteQuestionSet(4, 1, 1, now))
	assert.ErrorIs(t, a.SetCustomOrder([]int{1, 2, 3, 4}), ErrOrderLocked)
	assert.Equal(t, []int{4, 3, 2, 1}, a.CustomOrder)
}

func TestCompleteClosesAssignment(t *testing.T) {
	a := NewAssignedQuiz("quiz-1", now)
	require.NoError(t, a.Start(now))
	a.Complete("sub-1", now)

	assert.Equal(t, AssignmentCompleted, a.Status)
	assert.Equal(t, "sub-1", *a.SubmissionID)
	assert.ErrorIs(t, a.Start(now), ErrQuizAlreadyCompleted)
	assert.ErrorIs(t, a.CheckSubmittable(1), ErrQuizAlreadyCompleted)
}
