package models

import "errors"

// Not found.
var (
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrQuizTakerNotFound   = errors.New("quiz taker not found")
	ErrQuestionSetNotFound = errors.New("question set not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrAdminNotFound       = errors.New("admin not found")
)

// Validation and state preconditions.
var (
	ErrInvalidQuestion         = errors.New("invalid question")
	ErrInvalidQuestionSet      = errors.New("question set order must be between 1 and 4")
	ErrInvalidCustomOrder      = errors.New("custom order must contain each question set order 1-4 exactly once")
	ErrInvalidQuiz             = errors.New("invalid quiz")
	ErrInvalidQuizTaker        = errors.New("invalid quiz taker")
	ErrInvalidSubmission       = errors.New("invalid submission")
	ErrInvalidAnswer           = errors.New("invalid answer")
	ErrInvalidPoints           = errors.New("points awarded out of range")
	ErrPremiumAccessCode       = errors.New("premium quiz takers require an access code")
	ErrRegularAssignment       = errors.New("quizzes can only be assigned to premium quiz takers")
	ErrQuizNotAssigned         = errors.New("quiz is not assigned to this quiz taker")
	ErrQuizAlreadyAssigned     = errors.New("quiz is already assigned to this quiz taker")
	ErrQuizAlreadyCompleted    = errors.New("quiz already completed")
	ErrQuizNotStarted          = errors.New("quiz not started")
	ErrQuestionSetCompleted    = errors.New("question set already completed")
	ErrQuestionSetNotStarted   = errors.New("question set not started")
	ErrOrderLocked             = errors.New("custom order cannot change after a question set is completed")
	ErrSubmissionStillOpen     = errors.New("submission is still in progress")
	ErrQuizNotOpen             = errors.New("quiz is not open to regular quiz takers")
	ErrQuizInactive            = errors.New("quiz is not active")
	ErrAttemptsExhausted       = errors.New("no attempts left for this quiz")
	ErrAccountInactive         = errors.New("quiz taker account is inactive")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrQuestionSetInUse        = errors.New("question set is referenced by a quiz taker combination")
	ErrDuplicateQuestionSetRef = errors.New("question sets must be distinct")
)

// Concurrency.
var (
	// ErrWriteConflict marks a lost optimistic-concurrency race inside one transaction.
	ErrWriteConflict = errors.New("write conflict")
	// ErrSubmissionConflict is returned once the commit retries are exhausted.
	ErrSubmissionConflict = errors.New("conflict while saving submission, please retry")
)
