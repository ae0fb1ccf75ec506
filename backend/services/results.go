package services

import (
	"time"

	"quizplatform/backend/models"
)

type AnswerView struct {
	QuestionID       string              `json:"questionId"`
	QuestionSetOrder int                 `json:"questionSetOrder"`
	QuestionType     models.QuestionType `json:"questionType"`
	QuestionText     string              `json:"questionText,omitempty"`
	Answer           string              `json:"answer"`
	IsCorrect        *bool               `json:"isCorrect,omitempty"`
	PointsAwarded    *float64            `json:"pointsAwarded,omitempty"`
	MaxPoints        float64             `json:"maxPoints"`
	CorrectAnswer    string              `json:"correctAnswer,omitempty"`
	Feedback         string              `json:"feedback,omitempty"`
}

// ResultView is what a quiz taker sees of their own submission.
type ResultView struct {
	SubmissionID           string                         `json:"submissionId"`
	QuizID                 string                         `json:"quizId"`
	QuizTitle              string                         `json:"quizTitle"`
	Status                 models.SubmissionStatus        `json:"status"`
	AttemptNumber          int                            `json:"attemptNumber"`
	StartedAt              time.Time                      `json:"startedAt"`
	SubmittedAt            *time.Time                     `json:"submittedAt,omitempty"`
	TimeTakenSeconds       int64                          `json:"timeTakenSeconds"`
	ScoresVisible          bool                           `json:"scoresVisible"`
	Score                  *float64                       `json:"score,omitempty"`
	TotalPoints            float64                        `json:"totalPoints"`
	Percentage             *float64                       `json:"percentage,omitempty"`
	Feedback               string                         `json:"feedback,omitempty"`
	QuestionSetSubmissions []models.QuestionSetSubmission `json:"questionSetSubmissions"`
	Answers                []AnswerView                   `json:"answers"`
}

// BuildResult hides scores unless the quiz shows results or the submission has been
// graded, and hides answer keys unless the quiz shows them and the attempt is closed.
func BuildResult(quiz *models.Quiz, sub *models.QuizSubmission) ResultView {
	showScores := quiz.Settings.ShowResults || sub.Status == models.SubmissionGraded
	showKeys := quiz.Settings.ShowCorrectAnswers && sub.Status != models.SubmissionInProgress

	view := ResultView{
		SubmissionID:     sub.ID,
		QuizID:           quiz.ID,
		QuizTitle:        quiz.Title,
		Status:           sub.Status,
		AttemptNumber:    sub.AttemptNumber,
		StartedAt:        sub.StartedAt,
		SubmittedAt:      sub.SubmittedAt,
		TimeTakenSeconds: sub.TimeTakenSeconds,
		ScoresVisible:    showScores,
		TotalPoints:      sub.TotalPoints,
		Feedback:         sub.Feedback,
	}
	if showScores {
		score, pct := sub.Score, sub.Percentage
		view.Score = &score
		view.Percentage = &pct
	}

	for _, qss := range sub.SlotSubmissions() {
		if !showScores {
			qss.Score = 0
		}
		view.QuestionSetSubmissions = append(view.QuestionSetSubmissions, qss)
	}

	view.Answers = make([]AnswerView, 0, len(sub.AnswerList()))
	for _, a := range sub.AnswerList() {
		av := AnswerView{
			QuestionID:       a.QuestionID,
			QuestionSetOrder: a.QuestionSetOrder,
			QuestionType:     a.QuestionType,
			Answer:           a.Answer,
			MaxPoints:        a.MaxPoints,
			Feedback:         a.Feedback,
		}
		q, ok := questionFor(quiz, a)
		if ok {
			av.QuestionText = q.Text
		}
		if showScores {
			pts := a.PointsAwarded
			av.IsCorrect = a.IsCorrect
			av.PointsAwarded = &pts
		}
		if showKeys && ok && q.Type != models.QuestionEssay {
			av.CorrectAnswer = q.CorrectAnswer
			if opt, found := q.CorrectOption(); found {
				av.CorrectAnswer = opt
			}
		}
		view.Answers = append(view.Answers, av)
	}
	return view
}
