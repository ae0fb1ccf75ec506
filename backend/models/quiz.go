package models

import (
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionSetsPerQuiz is the fixed number of slots in a quiz.
const QuestionSetsPerQuiz = 4

type QuizMode string

const (
	QuizModeOpen     QuizMode = "open"
	QuizModeAssigned QuizMode = "assigned"
)

// QuizQuestionSet is a copy of a QuestionSet taken when the quiz was created.
type QuizQuestionSet struct {
	QuestionSetOrder int        `json:"questionSetOrder"`
	QuestionSetID    string     `json:"questionSetId"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Questions        []Question `json:"questions"`
	TotalPoints      float64    `json:"totalPoints"`
}

func NewQuizQuestionSet(order int, qs QuestionSet) QuizQuestionSet {
	questions := append([]Question(nil), qs.QuestionList()...)
	snap := QuizQuestionSet{
		QuestionSetOrder: order,
		QuestionSetID:    qs.ID,
		Title:            qs.Title,
		Description:      qs.Description,
		Questions:        questions,
	}
	snap.recalculate()
	return snap
}

func (s *QuizQuestionSet) recalculate() {
	total := 0.0
	for _, q := range s.Questions {
		total += q.Points
	}
	s.TotalPoints = total
}

func (s QuizQuestionSet) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type QuizSettings struct {
	DurationMinutes    int      `json:"durationMinutes"`
	AllowRetake        bool     `json:"allowRetake"`
	MaxAttempts        int      `json:"maxAttempts"`
	ShowCorrectAnswers bool     `json:"showCorrectAnswers"`
	ShowResults        bool     `json:"showResults"`
	Mode               QuizMode `gorm:"type:varchar(16);not null" json:"mode"`
}

type Quiz struct {
	Base
	Title        string                                `gorm:"not null" json:"title"`
	Description  string                                `json:"description"`
	QuestionSets datatypes.JSONType[[]QuizQuestionSet] `json:"questionSets"`
	Settings     QuizSettings                          `gorm:"embedded" json:"settings"`
	TotalPoints  float64                               `json:"totalPoints"`
	IsActive     bool                                  `json:"isActive"`
	CreatedBy    string                                `gorm:"type:varchar(36)" json:"createdBy"`
	Version      int                                   `gorm:"not null" json:"version"`
}

func (q *Quiz) CurrentVersion() int { return q.Version }
func (q *Quiz) SetVersion(v int)    { q.Version = v }

func (q *Quiz) Slots() []QuizQuestionSet {
	return q.QuestionSets.Data()
}

func (q *Quiz) SetSlots(slots []QuizQuestionSet) {
	q.QuestionSets = datatypes.NewJSONType(slots)
}

// Slot looks up a question set snapshot by its order (1-4).
func (q *Quiz) Slot(order int) (QuizQuestionSet, bool) {
	for _, s := range q.Slots() {
		if s.QuestionSetOrder == order {
			return s, true
		}
	}
	return QuizQuestionSet{}, false
}

func (q *Quiz) QuestionCount() int {
	n := 0
	for _, s := range q.Slots() {
		n += len(s.Questions)
	}
	return n
}

func ValidSlot(order int) bool {
	return order >= 1 && order <= QuestionSetsPerQuiz
}

// Recalculate checks the four-slot shape and recomputes point totals.
func (q *Quiz) Recalculate() error {
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidQuiz)
	}
	if q.Settings.Mode == "" {
		q.Settings.Mode = QuizModeAssigned
	}
	if q.Settings.Mode != QuizModeOpen && q.Settings.Mode != QuizModeAssigned {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidQuiz, q.Settings.Mode)
	}
	if q.Settings.DurationMinutes < 0 || q.Settings.MaxAttempts < 0 {
		return fmt.Errorf("%w: duration and max attempts must not be negative", ErrInvalidQuiz)
	}

	slots := q.Slots()
	if len(slots) != QuestionSetsPerQuiz {
		return fmt.Errorf("%w: a quiz needs exactly %d question sets, got %d", ErrInvalidQuiz, QuestionSetsPerQuiz, len(slots))
	}
	seen := make(map[int]bool, len(slots))
	total := 0.0
	for i := range slots {
		order := slots[i].QuestionSetOrder
		if !ValidSlot(order) || seen[order] {
			return fmt.Errorf("%w: question set orders must be 1-4 without repeats", ErrInvalidQuiz)
		}
		seen[order] = true
		slots[i].recalculate()
		total += slots[i].TotalPoints
	}
	q.SetSlots(slots)
	q.TotalPoints = total
	return nil
}

func (q *Quiz) BeforeSave(tx *gorm.DB) error {
	return q.Recalculate()
}

// PublicSlots returns the snapshots without answer keys.
func (q *Quiz) PublicSlots() []QuizQuestionSet {
	slots := q.Slots()
	out := make([]QuizQuestionSet, 0, len(slots))
	for _, s := range slots {
		questions := make([]Question, 0, len(s.Questions))
		for _, question := range s.Questions {
			questions = append(questions, question.Public())
		}
		s.Questions = questions
		out = append(out, s)
	}
	return out
}
