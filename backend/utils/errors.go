package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"quizplatform/backend/models"
)

var statusByError = []struct {
	err    error
	status int
}{
	{models.ErrQuizNotFound, fiber.StatusNotFound},
	{models.ErrQuizTakerNotFound, fiber.StatusNotFound},
	{models.ErrQuestionSetNotFound, fiber.StatusNotFound},
	{models.ErrQuestionNotFound, fiber.StatusNotFound},
	{models.ErrSubmissionNotFound, fiber.StatusNotFound},
	{models.ErrAdminNotFound, fiber.StatusNotFound},
	{gorm.ErrRecordNotFound, fiber.StatusNotFound},

	{models.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{models.ErrAccountInactive, fiber.StatusForbidden},
	{models.ErrQuizNotAssigned, fiber.StatusForbidden},
	{models.ErrQuizNotOpen, fiber.StatusForbidden},
	{models.ErrQuizInactive, fiber.StatusForbidden},

	{models.ErrSubmissionConflict, fiber.StatusConflict},
	{models.ErrWriteConflict, fiber.StatusConflict},
	{models.ErrQuestionSetInUse, fiber.StatusConflict},
	{gorm.ErrDuplicatedKey, fiber.StatusConflict},

	{models.ErrInvalidQuestion, fiber.StatusBadRequest},
	{models.ErrInvalidQuestionSet, fiber.StatusBadRequest},
	{models.ErrInvalidCustomOrder, fiber.StatusBadRequest},
	{models.ErrInvalidQuiz, fiber.StatusBadRequest},
	{models.ErrInvalidQuizTaker, fiber.StatusBadRequest},
	{models.ErrInvalidSubmission, fiber.StatusBadRequest},
	{models.ErrInvalidAnswer, fiber.StatusBadRequest},
	{models.ErrInvalidPoints, fiber.StatusBadRequest},
	{models.ErrPremiumAccessCode, fiber.StatusBadRequest},
	{models.ErrRegularAssignment, fiber.StatusBadRequest},
	{models.ErrQuizAlreadyAssigned, fiber.StatusBadRequest},
	{models.ErrQuizAlreadyCompleted, fiber.StatusBadRequest},
	{models.ErrQuizNotStarted, fiber.StatusBadRequest},
	{models.ErrQuestionSetCompleted, fiber.StatusBadRequest},
	{models.ErrQuestionSetNotStarted, fiber.StatusBadRequest},
	{models.ErrOrderLocked, fiber.StatusBadRequest},
	{models.ErrSubmissionStillOpen, fiber.StatusBadRequest},
	{models.ErrAttemptsExhausted, fiber.StatusBadRequest},
	{models.ErrDuplicateQuestionSetRef, fiber.StatusBadRequest},
}

// StatusFor maps a domain error to its HTTP status; anything unknown is a 500.
func StatusFor(err error) int {
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code
	}
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return fiber.StatusInternalServerError
}

// HandleError writes err in the standard error envelope. The message is passed
// through as is, including for 500s.
func HandleError(c *fiber.Ctx, err error) error {
	return Error(c, StatusFor(err), err)
}

// ErrorHandler is the fiber app error handler, so errors returned from handlers
// and middleware share the same envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return HandleError(c, err)
}
