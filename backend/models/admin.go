package models

type Admin struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `json:"name"`
	PasswordHash string `gorm:"not null" json:"-"`
}

// All returns every persisted model for migrations.
func All() []interface{} {
	return []interface{}{
		&Admin{},
		&QuestionSet{},
		&Quiz{},
		&QuizTaker{},
		&QuizSubmission{},
	}
}
