package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionSet struct {
	Base
	Title         string                         `gorm:"not null" json:"title"`
	Description   string                         `json:"description"`
	Questions     datatypes.JSONType[[]Question] `json:"questions"`
	QuestionCount int                            `json:"questionCount"`
	TotalPoints   float64                        `json:"totalPoints"`
	Version       int                            `gorm:"not null" json:"version"`
}

func (qs *QuestionSet) CurrentVersion() int { return qs.Version }
func (qs *QuestionSet) SetVersion(v int)    { qs.Version = v }

func (qs *QuestionSet) QuestionList() []Question {
	return qs.Questions.Data()
}

func (qs *QuestionSet) SetQuestions(questions []Question) {
	qs.Questions = datatypes.NewJSONType(questions)
}

// AddQuestion assigns an ID and trailing order when missing.
func (qs *QuestionSet) AddQuestion(q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	questions := qs.QuestionList()
	if q.Order == 0 {
		q.Order = len(questions) + 1
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	qs.SetQuestions(append(questions, q))
	return q, nil
}

func (qs *QuestionSet) ReplaceQuestion(q Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	questions := qs.QuestionList()
	for i := range questions {
		if questions[i].ID == q.ID {
			questions[i] = q
			qs.SetQuestions(questions)
			return nil
		}
	}
	return ErrQuestionNotFound
}

func (qs *QuestionSet) RemoveQuestion(id string) error {
	questions := qs.QuestionList()
	for i := range questions {
		if questions[i].ID == id {
			qs.SetQuestions(append(questions[:i:i], questions[i+1:]...))
			return nil
		}
	}
	return ErrQuestionNotFound
}

// Recalculate refreshes the aggregate count and point total.
func (qs *QuestionSet) Recalculate() error {
	if strings.TrimSpace(qs.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidQuestion)
	}
	questions := qs.QuestionList()
	ids := make(map[string]bool, len(questions))
	total := 0.0
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
		if ids[questions[i].ID] {
			return fmt.Errorf("%w: duplicate question id %s", ErrInvalidQuestion, questions[i].ID)
		}
		ids[questions[i].ID] = true
		if err := questions[i].Validate(); err != nil {
			return err
		}
		total += questions[i].Points
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })
	qs.SetQuestions(questions)
	qs.QuestionCount = len(questions)
	qs.TotalPoints = total
	return nil
}

func (qs *QuestionSet) BeforeSave(tx *gorm.DB) error {
	return qs.Recalculate()
}
