package models

import (
	"fmt"
	"time"
)

type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInProgress AssignmentStatus = "in-progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not-started"
	ProgressInProgress ProgressStatus = "in-progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// QuestionSetProgress tracks one slot of an assignment.
type QuestionSetProgress struct {
	QuestionSetOrder    int            `json:"questionSetOrder"`
	CustomOrderPosition int            `json:"customOrderPosition"`
	Status              ProgressStatus `json:"status"`
	StartedAt           *time.Time     `json:"startedAt,omitempty"`
	CompletedAt         *time.Time     `json:"completedAt,omitempty"`
	Score               float64        `json:"score"`
	TotalPoints         float64        `json:"totalPoints"`
}

// AssignedQuiz is owned by its premium QuizTaker and saved with it.
type AssignedQuiz struct {
	QuizID             string                      `json:"quizId"`
	Status             AssignmentStatus            `json:"status"`
	AssignedAt         time.Time                   `json:"assignedAt"`
	StartedAt          *time.Time                  `json:"startedAt,omitempty"`
	CompletedAt        *time.Time                  `json:"completedAt,omitempty"`
	SubmissionID       *string                     `json:"submissionId,omitempty"`
	CustomOrder        []int                       `json:"customOrder"`
	Progress           map[int]QuestionSetProgress `json:"progress"`
	CurrentQuestionSet int                         `json:"currentQuestionSet"`
}

func NewAssignedQuiz(quizID string, now time.Time) AssignedQuiz {
	return AssignedQuiz{
		QuizID:      quizID,
		Status:      AssignmentPending,
		AssignedAt:  now,
		CustomOrder: DefaultCustomOrder(),
	}
}

func DefaultCustomOrder() []int {
	return []int{1, 2, 3, 4}
}

// ValidateCustomOrder requires a permutation of 1..4.
func ValidateCustomOrder(order []int) error {
	if len(order) != QuestionSetsPerQuiz {
		return ErrInvalidCustomOrder
	}
	seen := make(map[int]bool, len(order))
	for _, o := range order {
		if !ValidSlot(o) || seen[o] {
			return ErrInvalidCustomOrder
		}
		seen[o] = true
	}
	return nil
}

// EnsureProgress creates the four slot records once; later calls are no-ops.
func (a *AssignedQuiz) EnsureProgress() {
	if ValidateCustomOrder(a.CustomOrder) != nil {
		a.CustomOrder = DefaultCustomOrder()
	}
	if a.Progress == nil {
		a.Progress = make(map[int]QuestionSetProgress, QuestionSetsPerQuiz)
	}
	for pos, slot := range a.CustomOrder {
		if _, ok := a.Progress[slot]; ok {
			continue
		}
		a.Progress[slot] = QuestionSetProgress{
			QuestionSetOrder:    slot,
			CustomOrderPosition: pos + 1,
			Status:              ProgressNotStarted,
		}
	}
}

// Start moves a pending assignment to in-progress. Starting twice is allowed.
func (a *AssignedQuiz) Start(now time.Time) error {
	switch a.Status {
	case AssignmentCompleted:
		return ErrQuizAlreadyCompleted
	case AssignmentPending, "":
		a.Status = AssignmentInProgress
		a.StartedAt = &now
	}
	a.EnsureProgress()
	if a.CurrentQuestionSet == 0 {
		a.CurrentQuestionSet = a.nextOutstanding()
	}
	return nil
}

// StartQuestionSet moves a slot from not-started to in-progress, starting the
// assignment itself when needed.
func (a *AssignedQuiz) StartQuestionSet(slot int, now time.Time) error {
	if !ValidSlot(slot) {
		return ErrInvalidQuestionSet
	}
	if err := a.Start(now); err != nil {
		return err
	}
	p := a.Progress[slot]
	switch p.Status {
	case ProgressCompleted:
		return fmt.Errorf("%w: question set %d", ErrQuestionSetCompleted, slot)
	case ProgressNotStarted:
		p.Status = ProgressInProgress
		p.StartedAt = &now
		a.Progress[slot] = p
	}
	a.CurrentQuestionSet = slot
	return nil
}

// CheckSubmittable reports whether answers for slot may be stored.
func (a *AssignedQuiz) CheckSubmittable(slot int) error {
	if !ValidSlot(slot) {
		return ErrInvalidQuestionSet
	}
	switch a.Status {
	case AssignmentCompleted:
		return ErrQuizAlreadyCompleted
	case AssignmentInProgress:
	default:
		return ErrQuizNotStarted
	}
	a.EnsureProgress()
	switch a.Progress[slot].Status {
	case ProgressCompleted:
		return fmt.Errorf("%w: question set %d", ErrQuestionSetCompleted, slot)
	case ProgressNotStarted:
		return fmt.Errorf("%w: question set %d", ErrQuestionSetNotStarted, slot)
	}
	return nil
}

// RecordScore stores the running score of an in-progress slot.
func (a *AssignedQuiz) RecordScore(slot int, score, total float64) error {
	if err := a.CheckSubmittable(slot); err != nil {
		return err
	}
	p := a.Progress[slot]
	p.Score = score
	p.TotalPoints = total
	a.Progress[slot] = p
	return nil
}

// CompleteQuestionSet finalises a slot. Completed slots never change again.
func (a *AssignedQuiz) CompleteQuestionSet(slot int, score, total float64, now time.Time) error {
	if err := a.CheckSubmittable(slot); err != nil {
		return err
	}
	p := a.Progress[slot]
	p.Status = ProgressCompleted
	p.CompletedAt = &now
	p.Score = score
	p.TotalPoints = total
	a.Progress[slot] = p
	a.CurrentQuestionSet = a.nextOutstanding()
	return nil
}

// SetCustomOrder changes the traversal order while no slot is completed.
func (a *AssignedQuiz) SetCustomOrder(order []int) error {
	if err := ValidateCustomOrder(order); err != nil {
		return err
	}
	if a.Status == AssignmentCompleted {
		return ErrQuizAlreadyCompleted
	}
	if a.CompletedCount() > 0 {
		return ErrOrderLocked
	}
	a.CustomOrder = append([]int(nil), order...)
	a.EnsureProgress()
	for pos, slot := range a.CustomOrder {
		p := a.Progress[slot]
		p.CustomOrderPosition = pos + 1
		a.Progress[slot] = p
	}
	if a.Status == AssignmentInProgress && a.Progress[a.CurrentQuestionSet].Status != ProgressInProgress {
		a.CurrentQuestionSet = a.nextOutstanding()
	}
	return nil
}

func (a *AssignedQuiz) CompletedCount() int {
	n := 0
	for _, p := range a.Progress {
		if p.Status == ProgressCompleted {
			n++
		}
	}
	return n
}

// Complete closes the assignment.
func (a *AssignedQuiz) Complete(submissionID string, now time.Time) {
	a.Status = AssignmentCompleted
	a.CompletedAt = &now
	a.SubmissionID = &submissionID
	a.CurrentQuestionSet = 0
}

func (a *AssignedQuiz) nextOutstanding() int {
	for _, slot := range a.CustomOrder {
		if a.Progress[slot].Status != ProgressCompleted {
			return slot
		}
	}
	return 0
}
