package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"quizplatform/backend/config"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
	"quizplatform/backend/services"
	"quizplatform/backend/utils"
)

type SubmissionsController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Grading *services.GradingService
}

func NewSubmissionsController(db *gorm.DB, cfg *config.Config, grading *services.GradingService) *SubmissionsController {
	return &SubmissionsController{DB: db, Cfg: cfg, Grading: grading}
}

func (sc *SubmissionsController) GetSubmissions(c *fiber.Ctx) error {
	status := models.SubmissionStatus(c.Query("status"))
	switch status {
	case "", models.SubmissionInProgress, models.SubmissionAutoGraded,
		models.SubmissionPendingManualGrading, models.SubmissionGraded:
	default:
		return utils.BadRequest(c, "unknown status "+string(status))
	}

	subs, err := repository.ListSubmissions(c.UserContext(), sc.DB, repository.SubmissionFilter{
		QuizID:      c.Query("quizId"),
		QuizTakerID: c.Query("quizTakerId"),
		Status:      status,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, subs)
}

func (sc *SubmissionsController) GetSubmission(c *fiber.Ctx) error {
	sub, err := repository.GetSubmission(c.UserContext(), sc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, sub)
}

type gradeInput struct {
	Grades   []services.ManualGrade `json:"grades" validate:"required,min=1,dive"`
	Feedback string                 `json:"feedback"`
}

func (sc *SubmissionsController) GradeSubmission(c *fiber.Ctx) error {
	var input gradeInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	principal, _ := utils.CurrentPrincipal(c)

	sub, err := sc.Grading.GradeSubmission(c.UserContext(), services.GradeInput{
		SubmissionID: c.Params("id"),
		GraderID:     principal.ID,
		Grades:       input.Grades,
		Feedback:     input.Feedback,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, sub)
}

// Regrade re-runs automatic grading against the quiz snapshot.
func (sc *SubmissionsController) Regrade(c *fiber.Ctx) error {
	sub, err := sc.Grading.Regrade(c.UserContext(), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, sub)
}
