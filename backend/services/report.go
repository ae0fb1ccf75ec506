package services

import (
	"context"
	"math"

	"gorm.io/gorm"

	"quizplatform/backend/models"
	"quizplatform/backend/repository"
)

// QuizReport aggregates all submissions of a quiz. Percentages and times only
// count closed attempts.
func QuizReport(ctx context.Context, db *gorm.DB, quizID string) (*models.QuizReport, error) {
	quiz, err := repository.GetQuiz(ctx, db, quizID)
	if err != nil {
		return nil, err
	}
	subs, err := repository.ListSubmissions(ctx, db, repository.SubmissionFilter{QuizID: quizID})
	if err != nil {
		return nil, err
	}
	return BuildReport(quiz, subs), nil
}

func BuildReport(quiz *models.Quiz, subs []models.QuizSubmission) *models.QuizReport {
	report := &models.QuizReport{
		QuizID:      quiz.ID,
		QuizTitle:   quiz.Title,
		TotalPoints: quiz.TotalPoints,
		Attempts:    len(subs),
		ByStatus:    map[models.SubmissionStatus]int{},
		Takers:      make([]models.QuizTakerAttemptAnalytic, 0, len(subs)),
	}

	type slotAcc struct {
		n          int
		score      float64
		orderTotal int
	}
	slots := make(map[int]*slotAcc, models.QuestionSetsPerQuiz)

	var pctSum, timeSum float64
	for _, sub := range subs {
		report.ByStatus[sub.Status]++
		report.Takers = append(report.Takers, models.QuizTakerAttemptAnalytic{
			QuizTakerID:      sub.QuizTakerID,
			SubmissionID:     sub.ID,
			AttemptNumber:    sub.AttemptNumber,
			Status:           sub.Status,
			Score:            sub.Score,
			Percentage:       sub.Percentage,
			TimeTakenSeconds: sub.TimeTakenSeconds,
		})

		for _, qss := range sub.SlotSubmissions() {
			if !qss.IsFinal {
				continue
			}
			acc := slots[qss.QuestionSetOrder]
			if acc == nil {
				acc = &slotAcc{}
				slots[qss.QuestionSetOrder] = acc
			}
			acc.n++
			acc.score += qss.Score
			acc.orderTotal += qss.OrderAnswered
		}

		if sub.Status == models.SubmissionInProgress {
			continue
		}
		if report.Completed == 0 || sub.Percentage > report.HighestPercentage {
			report.HighestPercentage = sub.Percentage
		}
		if report.Completed == 0 || sub.Percentage < report.LowestPercentage {
			report.LowestPercentage = sub.Percentage
		}
		report.Completed++
		pctSum += sub.Percentage
		timeSum += float64(sub.TimeTakenSeconds)
	}
	if report.Completed > 0 {
		report.AveragePercentage = round2(pctSum / float64(report.Completed))
		report.AverageTimeTaken = round2(timeSum / float64(report.Completed))
	}

	for _, slot := range quiz.Slots() {
		stats := models.QuestionSetAnalytics{
			QuestionSetOrder: slot.QuestionSetOrder,
			Title:            slot.Title,
			TotalPoints:      slot.TotalPoints,
		}
		if acc := slots[slot.QuestionSetOrder]; acc != nil {
			stats.Submissions = acc.n
			stats.AverageScore = round2(acc.score / float64(acc.n))
			stats.AverageOrderAnswered = round2(float64(acc.orderTotal) / float64(acc.n))
		}
		report.QuestionSets = append(report.QuestionSets, stats)
	}
	return report
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
