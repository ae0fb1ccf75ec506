package models

// QuizReport summarises every attempt at one quiz.
type QuizReport struct {
	QuizID            string                     `json:"quizId"`
	QuizTitle         string                     `json:"quizTitle"`
	TotalPoints       float64                    `json:"totalPoints"`
	Attempts          int                        `json:"attempts"`
	ByStatus          map[SubmissionStatus]int   `json:"byStatus"`
	Completed         int                        `json:"completed"`
	AveragePercentage float64                    `json:"averagePercentage"`
	HighestPercentage float64                    `json:"highestPercentage"`
	LowestPercentage  float64                    `json:"lowestPercentage"`
	AverageTimeTaken  float64                    `json:"averageTimeTakenSeconds"`
	QuestionSets      []QuestionSetAnalytics     `json:"questionSets"`
	Takers            []QuizTakerAttemptAnalytic `json:"takers"`
}

// QuestionSetAnalytics is averaged over final slot submissions only.
type QuestionSetAnalytics struct {
	QuestionSetOrder int     `json:"questionSetOrder"`
	Title            string  `json:"title"`
	TotalPoints      float64 `json:"totalPoints"`
	Submissions      int     `json:"submissions"`
	AverageScore     float64 `json:"averageScore"`
	// AverageOrderAnswered shows where takers tend to place this set.
	AverageOrderAnswered float64 `json:"averageOrderAnswered"`
}

type QuizTakerAttemptAnalytic struct {
	QuizTakerID      string           `json:"quizTakerId"`
	SubmissionID     string           `json:"submissionId"`
	AttemptNumber    int              `json:"attemptNumber"`
	Status           SubmissionStatus `json:"status"`
	Score            float64          `json:"score"`
	Percentage       float64          `json:"percentage"`
	TimeTakenSeconds int64            `json:"timeTakenSeconds"`
}
