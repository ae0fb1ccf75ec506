package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AccountType string

const (
	AccountPremium AccountType = "premium"
	AccountRegular AccountType = "regular"
)

// QuizTakenSummary is appended to a taker's history when a quiz closes out.
type QuizTakenSummary struct {
	QuizID           string           `json:"quizId"`
	QuizTitle        string           `json:"quizTitle"`
	SubmissionID     string           `json:"submissionId"`
	Score            float64          `json:"score"`
	TotalPoints      float64          `json:"totalPoints"`
	Percentage       float64          `json:"percentage"`
	Status           SubmissionStatus `json:"status"`
	TimeTakenSeconds int64            `json:"timeTakenSeconds"`
	CompletedAt      time.Time        `json:"completedAt"`
}

// QuizTaker owns its assignments and their progress; the whole aggregate is
// written on every change.
type QuizTaker struct {
	Base
	Email                  string                                      `gorm:"uniqueIndex;not null" json:"email"`
	Name                   string                                      `json:"name"`
	AccountType            AccountType                                 `gorm:"type:varchar(16);not null" json:"accountType"`
	IsActive               bool                                        `json:"isActive"`
	AccessCode             *string                                     `gorm:"uniqueIndex" json:"accessCode,omitempty"`
	QuestionSetCombination datatypes.JSONType[[]string]                `json:"questionSetCombination"`
	AssignedQuizzes        datatypes.JSONType[map[string]AssignedQuiz] `json:"assignedQuizzes"`
	QuizzesTaken           datatypes.JSONType[[]QuizTakenSummary]      `json:"quizzesTaken"`
	Version                int                                         `gorm:"not null" json:"version"`
}

func (t *QuizTaker) CurrentVersion() int { return t.Version }
func (t *QuizTaker) SetVersion(v int)    { t.Version = v }

func (t *QuizTaker) IsPremium() bool { return t.AccountType == AccountPremium }

func (t *QuizTaker) Assignments() map[string]AssignedQuiz {
	m := t.AssignedQuizzes.Data()
	if m == nil {
		m = map[string]AssignedQuiz{}
	}
	return m
}

func (t *QuizTaker) Assignment(quizID string) (AssignedQuiz, bool) {
	a, ok := t.Assignments()[quizID]
	return a, ok
}

func (t *QuizTaker) PutAssignment(a AssignedQuiz) {
	m := t.Assignments()
	m[a.QuizID] = a
	t.AssignedQuizzes = datatypes.NewJSONType(m)
}

// Assign adds a pending assignment. Premium only; completed assignments stay closed.
func (t *QuizTaker) Assign(quizID string, now time.Time) (AssignedQuiz, error) {
	if !t.IsPremium() {
		return AssignedQuiz{}, ErrRegularAssignment
	}
	if existing, ok := t.Assignment(quizID); ok {
		if existing.Status == AssignmentCompleted {
			return AssignedQuiz{}, ErrQuizAlreadyCompleted
		}
		return AssignedQuiz{}, ErrQuizAlreadyAssigned
	}
	a := NewAssignedQuiz(quizID, now)
	t.PutAssignment(a)
	return a, nil
}

func (t *QuizTaker) Unassign(quizID string) error {
	m := t.Assignments()
	a, ok := m[quizID]
	if !ok {
		return ErrQuizNotAssigned
	}
	if a.Status == AssignmentCompleted {
		return ErrQuizAlreadyCompleted
	}
	delete(m, quizID)
	t.AssignedQuizzes = datatypes.NewJSONType(m)
	return nil
}

func (t *QuizTaker) History() []QuizTakenSummary {
	return t.QuizzesTaken.Data()
}

func (t *QuizTaker) AppendHistory(s QuizTakenSummary) {
	t.QuizzesTaken = datatypes.NewJSONType(append(t.History(), s))
}

// SyncHistory refreshes the summary of a regraded submission.
func (t *QuizTaker) SyncHistory(sub *QuizSubmission) bool {
	history := t.History()
	for i := range history {
		if history[i].SubmissionID == sub.ID {
			history[i].Score = sub.Score
			history[i].TotalPoints = sub.TotalPoints
			history[i].Percentage = sub.Percentage
			history[i].Status = sub.Status
			t.QuizzesTaken = datatypes.NewJSONType(history)
			return true
		}
	}
	return false
}

func (t *QuizTaker) Combination() []string {
	return t.QuestionSetCombination.Data()
}

func (t *QuizTaker) Validate() error {
	if _, err := mail.ParseAddress(t.Email); err != nil {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidQuizTaker, t.Email)
	}
	switch t.AccountType {
	case AccountPremium:
		if t.AccessCode == nil || strings.TrimSpace(*t.AccessCode) == "" {
			return ErrPremiumAccessCode
		}
	case AccountRegular:
		if len(t.Assignments()) > 0 {
			return ErrRegularAssignment
		}
	default:
		return fmt.Errorf("%w: unknown account type %q", ErrInvalidQuizTaker, t.AccountType)
	}

	combo := t.Combination()
	if len(combo) == 0 {
		return nil
	}
	if len(combo) != QuestionSetsPerQuiz {
		return fmt.Errorf("%w: question set combination needs exactly %d entries", ErrInvalidQuizTaker, QuestionSetsPerQuiz)
	}
	seen := make(map[string]bool, len(combo))
	for _, id := range combo {
		if id == "" || seen[id] {
			return ErrDuplicateQuestionSetRef
		}
		seen[id] = true
	}
	return nil
}

func (t *QuizTaker) BeforeSave(tx *gorm.DB) error {
	t.Email = strings.ToLower(strings.TrimSpace(t.Email))
	return t.Validate()
}
