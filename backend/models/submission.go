package models

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionInProgress           SubmissionStatus = "in-progress"
	SubmissionAutoGraded           SubmissionStatus = "auto-graded"
	SubmissionPendingManualGrading SubmissionStatus = "pending-manual-grading"
	SubmissionGraded               SubmissionStatus = "graded"
)

// Answer is one graded response, tagged with the slot it belongs to.
type Answer struct {
	QuestionID       string       `json:"questionId"`
	QuestionSetOrder int          `json:"questionSetOrder"`
	QuestionType     QuestionType `json:"questionType"`
	Answer           string       `json:"answer"`
	IsCorrect        *bool        `json:"isCorrect"`
	PointsAwarded    float64      `json:"pointsAwarded"`
	MaxPoints        float64      `json:"maxPoints"`
	ManuallyGraded   bool         `json:"manuallyGraded,omitempty"`
	Feedback         string       `json:"feedback,omitempty"`
}

// NeedsManualGrading is true for essays nobody has graded yet.
func (a Answer) NeedsManualGrading() bool {
	return a.QuestionType == QuestionEssay && !a.ManuallyGraded
}

type QuestionSetSubmission struct {
	QuestionSetOrder int       `json:"questionSetOrder"`
	Score            float64   `json:"score"`
	TotalPoints      float64   `json:"totalPoints"`
	SubmittedAt      time.Time `json:"submittedAt"`
	IsFinal          bool      `json:"isFinal"`
	// OrderAnswered is the actual completion position, set when the slot is finalised.
	OrderAnswered int `json:"orderAnswered"`
}

type QuizSubmission struct {
	Base
	QuizID                 string                                      `gorm:"type:varchar(36);not null;index" json:"quizId"`
	QuizTakerID            string                                      `gorm:"type:varchar(36);not null;index" json:"quizTakerId"`
	Answers                datatypes.JSONType[[]Answer]                `json:"answers"`
	QuestionSetSubmissions datatypes.JSONType[[]QuestionSetSubmission] `json:"questionSetSubmissions"`
	CustomOrder            datatypes.JSONType[[]int]                   `json:"customOrder"`
	Score                  float64                                     `json:"score"`
	TotalPoints            float64                                     `json:"totalPoints"`
	Percentage             float64                                     `json:"percentage"`
	Status                 SubmissionStatus                            `gorm:"type:varchar(32);not null;index" json:"status"`
	AttemptNumber          int                                         `json:"attemptNumber"`
	StartedAt              time.Time                                   `json:"startedAt"`
	SubmittedAt            *time.Time                                  `json:"submittedAt,omitempty"`
	TimeTakenSeconds       int64                                       `json:"timeTakenSeconds"`
	GradedBy               *string                                     `gorm:"type:varchar(36)" json:"gradedBy,omitempty"`
	GradedAt               *time.Time                                  `json:"gradedAt,omitempty"`
	Feedback               string                                      `json:"feedback,omitempty"`
	Version                int                                         `gorm:"not null" json:"version"`
}

func (s *QuizSubmission) CurrentVersion() int { return s.Version }
func (s *QuizSubmission) SetVersion(v int)    { s.Version = v }

func (s *QuizSubmission) AnswerList() []Answer {
	return s.Answers.Data()
}

func (s *QuizSubmission) SetAnswers(answers []Answer) {
	s.Answers = datatypes.NewJSONType(answers)
}

func (s *QuizSubmission) SetCustomOrder(order []int) {
	s.CustomOrder = datatypes.NewJSONType(append([]int(nil), order...))
}

func (s *QuizSubmission) SlotSubmissions() []QuestionSetSubmission {
	return s.QuestionSetSubmissions.Data()
}

func (s *QuizSubmission) SlotSubmission(order int) (QuestionSetSubmission, bool) {
	for _, qss := range s.SlotSubmissions() {
		if qss.QuestionSetOrder == order {
			return qss, true
		}
	}
	return QuestionSetSubmission{}, false
}

// PutSlotSubmission inserts or replaces the entry for its slot, keeping slot order.
func (s *QuizSubmission) PutSlotSubmission(qss QuestionSetSubmission) {
	list := s.SlotSubmissions()
	replaced := false
	for i := range list {
		if list[i].QuestionSetOrder == qss.QuestionSetOrder {
			list[i] = qss
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, qss)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].QuestionSetOrder < list[j].QuestionSetOrder })
	s.QuestionSetSubmissions = datatypes.NewJSONType(list)
}

func (s *QuizSubmission) IsSlotFinal(order int) bool {
	qss, ok := s.SlotSubmission(order)
	return ok && qss.IsFinal
}

func (s *QuizSubmission) FinalizedCount() int {
	n := 0
	for _, qss := range s.SlotSubmissions() {
		if qss.IsFinal {
			n++
		}
	}
	return n
}

// ReplaceSlotAnswers drops any stored answers of the slot before adding the new ones.
func (s *QuizSubmission) ReplaceSlotAnswers(order int, answers []Answer) {
	kept := make([]Answer, 0, len(s.AnswerList())+len(answers))
	for _, a := range s.AnswerList() {
		if a.QuestionSetOrder != order {
			kept = append(kept, a)
		}
	}
	for _, a := range answers {
		a.QuestionSetOrder = order
		kept = append(kept, a)
	}
	s.SetAnswers(kept)
}

func (s *QuizSubmission) SlotScore(order int) float64 {
	score := 0.0
	for _, a := range s.AnswerList() {
		if a.QuestionSetOrder == order {
			score += a.PointsAwarded
		}
	}
	return score
}

// Recalculate derives slot scores from answers and the overall score from slots.
// It only reads stored values, so calling it again never changes the totals.
func (s *QuizSubmission) Recalculate() {
	list := s.SlotSubmissions()
	overall := 0.0
	for i := range list {
		list[i].Score = round2(s.SlotScore(list[i].QuestionSetOrder))
		overall += list[i].Score
	}
	if len(list) > 0 {
		s.QuestionSetSubmissions = datatypes.NewJSONType(list)
	}
	s.Score = round2(overall)
	if s.TotalPoints > 0 {
		s.Percentage = round2(s.Score / s.TotalPoints * 100)
	} else {
		s.Percentage = 0
	}
}

func (s *QuizSubmission) HasUngradedEssays() bool {
	for _, a := range s.AnswerList() {
		if a.NeedsManualGrading() {
			return true
		}
	}
	return false
}

// ClosedStatus picks the status a finished submission lands in.
func (s *QuizSubmission) ClosedStatus() SubmissionStatus {
	if s.HasUngradedEssays() {
		return SubmissionPendingManualGrading
	}
	return SubmissionAutoGraded
}

func (s *QuizSubmission) Validate() error {
	list := s.SlotSubmissions()
	if len(list) > QuestionSetsPerQuiz {
		return fmt.Errorf("%w: more than %d question set submissions", ErrInvalidSubmission, QuestionSetsPerQuiz)
	}
	seen := make(map[int]bool, len(list))
	for _, qss := range list {
		if !ValidSlot(qss.QuestionSetOrder) {
			return fmt.Errorf("%w: question set order %d", ErrInvalidSubmission, qss.QuestionSetOrder)
		}
		if seen[qss.QuestionSetOrder] {
			return fmt.Errorf("%w: duplicate question set order %d", ErrInvalidSubmission, qss.QuestionSetOrder)
		}
		seen[qss.QuestionSetOrder] = true
	}
	for _, a := range s.AnswerList() {
		if !ValidSlot(a.QuestionSetOrder) {
			return fmt.Errorf("%w: answer %s has question set order %d", ErrInvalidSubmission, a.QuestionID, a.QuestionSetOrder)
		}
	}
	switch s.Status {
	case SubmissionInProgress, SubmissionAutoGraded, SubmissionPendingManualGrading, SubmissionGraded:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSubmission, s.Status)
	}
	return nil
}

func (s *QuizSubmission) BeforeSave(tx *gorm.DB) error {
	return s.Validate()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
