package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func strPtr(s string) *string { return &s }

func TestQuizTakerPremiumNeedsAccessCode(t *testing.T) {
	taker := QuizTaker{Email: "p@example.com", AccountType: AccountPremium}
	assert.ErrorIs(t, taker.Validate(), ErrPremiumAccessCode)

	taker.AccessCode = strPtr("  ")
	assert.ErrorIs(t, taker.Validate(), ErrPremiumAccessCode)

	taker.AccessCode = strPtr("CODE123")
	assert.NoError(t, taker.Validate())
}

func TestQuizTakerRegularCannotHoldAssignments(t *testing.T) {
	taker := QuizTaker{Email: "r@example.com", AccountType: AccountRegular}
	require.NoError(t, taker.Validate())

	_, err := taker.Assign("quiz-1", now)
	assert.ErrorIs(t, err, ErrRegularAssignment)

	taker.AssignedQuizzes = datatypes.NewJSONType(map[string]AssignedQuiz{
		"quiz-1": NewAssignedQuiz("quiz-1", now),
	})
	assert.ErrorIs(t, taker.Validate(), ErrRegularAssignment)
}

func TestQuizTakerCombination(t *testing.T) {
	taker := QuizTaker{Email: "c@example.com", AccountType: AccountRegular}

	taker.QuestionSetCombination = datatypes.NewJSONType([]string{"a", "b", "c"})
	assert.ErrorIs(t, taker.Validate(), ErrInvalidQuizTaker)

	taker.QuestionSetCombination = datatypes.NewJSONType([]string{"a", "b", "c", "a"})
	assert.ErrorIs(t, taker.Validate(), ErrDuplicateQuestionSetRef)

	taker.QuestionSetCombination = datatypes.NewJSONType([]string{"a", "b", "c", "d"})
	assert.NoError(t, taker.Validate())
}

func TestQuizTakerAssignRejectsReassignment(t *testing.T) {
	taker := QuizTaker{Email: "p@example.com", AccountType: AccountPremium, AccessCode: strPtr("X")}

	_, err := taker.Assign("quiz-1", now)
	require.NoError(t, err)
	_, err = taker.Assign("quiz-1", now)
	assert.ErrorIs(t, err, ErrQuizAlreadyAssigned)

	a, _ := taker.Assignment("quiz-1")
	a.Complete("sub-1", now)
	taker.PutAssignment(a)

	_, err = taker.Assign("quiz-1", now)
	assert.ErrorIs(t, err, ErrQuizAlreadyCompleted)
	assert.ErrorIs(t, taker.Unassign("quiz-1"), ErrQuizAlreadyCompleted)
}

func TestQuestionValidate(t *testing.T) {
	valid := []Question{
		{Type: QuestionMultipleChoice, Text: "Capital?", Options: []string{"A. Paris", "B. Lyon"}, CorrectAnswer: "B", Points: 1},
		{Type: QuestionTrueFalse, Text: "Sky is blue", CorrectAnswer: "TRUE", Points: 1},
		{Type: QuestionFillInTheBlank, Text: "Go was made at ___", CorrectAnswer: "Google", Points: 1},
		{Type: QuestionEssay, Text: "Discuss", Points: 10},
	}
	for _, q := range valid {
		assert.NoError(t, q.Validate(), q.Type)
	}

	invalid := []Question{
		{Type: "matching", Text: "x"},
		{Type: QuestionEssay, Text: " "},
		{Type: QuestionMultipleChoice, Text: "x", Options: []string{"A. one"}, CorrectAnswer: "A"},
		{Type: QuestionMultipleChoice, Text: "x", Options: []string{"A. one", "B. two"}, CorrectAnswer: "C"},
		{Type: QuestionMultipleChoice, Text: "x", Options: []string{"A. one", "A. two"}, CorrectAnswer: "A"},
		{Type: QuestionTrueFalse, Text: "x", CorrectAnswer: "yes"},
		{Type: QuestionFillInTheBlank, Text: "x"},
		{Type: QuestionEssay, Text: "x", Points: -1},
	}
	for _, q := range invalid {
		assert.ErrorIs(t, q.Validate(), ErrInvalidQuestion)
	}
}

func TestOptionLabel(t *testing.T) {
	assert.Equal(t, "A", OptionLabel("A. Paris"))
	assert.Equal(t, "B", OptionLabel("b) Lyon"))
	assert.Equal(t, "C", OptionLabel("C: Nice"))
	assert.Equal(t, "", OptionLabel("Paris"))
	assert.Equal(t, "", OptionLabel("1. Paris"))
}

func TestQuestionSetRecalculate(t *testing.T) {
	qs := QuestionSet{Title: "Geography"}
	_, err := qs.AddQuestion(Question{Type: QuestionTrueFalse, Text: "Earth is round", CorrectAnswer: "true", Points: 2})
	require.NoError(t, err)
	_, err = qs.AddQuestion(Question{Type: QuestionEssay, Text: "Describe the Alps", Points: 8})
	require.NoError(t, err)

	require.NoError(t, qs.Recalculate())
	assert.Equal(t, 2, qs.QuestionCount)
	assert.Equal(t, 10.0, qs.TotalPoints)

	questions := qs.QuestionList()
	require.NoError(t, qs.RemoveQuestion(questions[0].ID))
	require.NoError(t, qs.Recalculate())
	assert.Equal(t, 1, qs.QuestionCount)
	assert.Equal(t, 8.0, qs.TotalPoints)
	assert.ErrorIs(t, qs.RemoveQuestion("missing"), ErrQuestionNotFound)
}

func TestQuizRecalculateNeedsFourSlots(t *testing.T) {
	set := QuestionSet{Base: Base{ID: "qs"}, Title: "Set"}
	_, err := set.AddQuestion(Question{Type: QuestionTrueFalse, Text: "t", CorrectAnswer: "true", Points: 1.5})
	require.NoError(t, err)

	quiz := Quiz{Title: "Quiz"}
	quiz.SetSlots([]QuizQuestionSet{NewQuizQuestionSet(1, set), NewQuizQuestionSet(2, set), NewQuizQuestionSet(3, set)})
	assert.ErrorIs(t, quiz.Recalculate(), ErrInvalidQuiz)

	quiz.SetSlots([]QuizQuestionSet{NewQuizQuestionSet(1, set), NewQuizQuestionSet(2, set), NewQuizQuestionSet(3, set), NewQuizQuestionSet(3, set)})
	assert.ErrorIs(t, quiz.Recalculate(), ErrInvalidQuiz)

	quiz.SetSlots([]QuizQuestionSet{NewQuizQuestionSet(1, set), NewQuizQuestionSet(2, set), NewQuizQuestionSet(3, set), NewQuizQuestionSet(4, set)})
	require.NoError(t, quiz.Recalculate())
	assert.Equal(t, 6.0, quiz.TotalPoints)
	assert.Equal(t, QuizModeAssigned, quiz.Settings.Mode)

	for _, slot := range quiz.PublicSlots() {
		for _, q := range slot.Questions {
			assert.Empty(t, q.CorrectAnswer)
		}
	}
}

func TestSubmissionReplaceAndRecalculate(t *testing.T) {
	sub := QuizSubmission{Status: SubmissionInProgress, TotalPoints: 20}
	sub.ReplaceSlotAnswers(1, []Answer{{QuestionID: "q1", PointsAwarded: 2}, {QuestionID: "q2", PointsAwarded: 3}})
	sub.PutSlotSubmission(QuestionSetSubmission{QuestionSetOrder: 1, TotalPoints: 5})
	sub.Recalculate()
	assert.Equal(t, 5.0, sub.Score)
	assert.Equal(t, 25.0, sub.Percentage)

	sub.ReplaceSlotAnswers(1, []Answer{{QuestionID: "q1", PointsAwarded: 2}})
	sub.PutSlotSubmission(QuestionSetSubmission{QuestionSetOrder: 1, TotalPoints: 5})
	sub.Recalculate()
	sub.Recalculate()
	assert.Len(t, sub.AnswerList(), 1)
	assert.Len(t, sub.SlotSubmissions(), 1)
	assert.Equal(t, 2.0, sub.Score)
	require.NoError(t, sub.Validate())
}

func TestSubmissionValidateRejectsBadSlots(t *testing.T) {
	sub := QuizSubmission{Status: SubmissionInProgress}
	sub.QuestionSetSubmissions = datatypes.NewJSONType([]QuestionSetSubmission{{QuestionSetOrder: 1}, {QuestionSetOrder: 1}})
	assert.ErrorIs(t, sub.Validate(), ErrInvalidSubmission)

	sub.QuestionSetSubmissions = datatypes.NewJSONType([]QuestionSetSubmission{{QuestionSetOrder: 5}})
	assert.ErrorIs(t, sub.Validate(), ErrInvalidSubmission)
}

func TestClosedStatus(t *testing.T) {
	sub := QuizSubmission{}
	sub.SetAnswers([]Answer{{QuestionID: "q1", QuestionType: QuestionTrueFalse}})
	assert.Equal(t, SubmissionAutoGraded, sub.ClosedStatus())

	sub.SetAnswers([]Answer{{QuestionID: "q1", QuestionType: QuestionEssay}})
	assert.Equal(t, SubmissionPendingManualGrading, sub.ClosedStatus())
}
