package models

import (
	"fmt"
	"strings"
	"unicode"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionFillInTheBlank QuestionType = "fill-in-the-blank"
	QuestionEssay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionFillInTheBlank, QuestionEssay:
		return true
	}
	return false
}

// Question is stored inside question sets and copied into quiz snapshots.
// For multiple-choice questions CorrectAnswer holds the option label ("A", "B", ...)
// and Options hold the full "A. text" strings.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Points        float64      `json:"points"`
	Order         int          `json:"order"`
}

// OptionLabel returns the leading label of an option such as "A. Paris" or "b) Lyon".
func OptionLabel(option string) string {
	s := strings.TrimSpace(option)
	if s == "" {
		return ""
	}
	r := []rune(s)
	if !unicode.IsLetter(r[0]) {
		return ""
	}
	if len(r) == 1 {
		return strings.ToUpper(string(r[0]))
	}
	switch r[1] {
	case '.', ')', ':', ' ':
		return strings.ToUpper(string(r[0]))
	}
	return ""
}

// CorrectOption returns the option whose label matches CorrectAnswer.
func (q Question) CorrectOption() (string, bool) {
	want := strings.ToUpper(strings.TrimSpace(q.CorrectAnswer))
	if want == "" {
		return "", false
	}
	for _, opt := range q.Options {
		if OptionLabel(opt) == want {
			return opt, true
		}
	}
	return "", false
}

func (q Question) Validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidQuestion, q.Type)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidQuestion)
	}
	if q.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", ErrInvalidQuestion)
	}

	switch q.Type {
	case QuestionMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: multiple-choice needs at least 2 options", ErrInvalidQuestion)
		}
		seen := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			label := OptionLabel(opt)
			if label == "" {
				return fmt.Errorf("%w: option %q has no label", ErrInvalidQuestion, opt)
			}
			if seen[label] {
				return fmt.Errorf("%w: duplicate option label %q", ErrInvalidQuestion, label)
			}
			seen[label] = true
		}
		if _, ok := q.CorrectOption(); !ok {
			return fmt.Errorf("%w: correct answer %q matches no option", ErrInvalidQuestion, q.CorrectAnswer)
		}
	case QuestionTrueFalse:
		ca := strings.ToLower(strings.TrimSpace(q.CorrectAnswer))
		if ca != "true" && ca != "false" {
			return fmt.Errorf("%w: true-false answer must be true or false", ErrInvalidQuestion)
		}
	case QuestionFillInTheBlank:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return fmt.Errorf("%w: fill-in-the-blank needs a correct answer", ErrInvalidQuestion)
		}
	}
	return nil
}

// Public strips the answer key.
func (q Question) Public() Question {
	q.CorrectAnswer = ""
	return q
}
