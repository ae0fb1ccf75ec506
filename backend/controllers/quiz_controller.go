package controllers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"quizplatform/backend/cache"
	"quizplatform/backend/config"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
	"quizplatform/backend/services"
	"quizplatform/backend/utils"
)

// QuizController serves the quiz taker side of the API. Every route runs behind
// QuizTakerMiddleware, so the principal is an active quiz taker.
type QuizController struct {
	DB          *gorm.DB
	Cfg         *config.Config
	Submissions *services.SubmissionService
	Cache       cache.Cache
	Logger      *log.Logger
}

func NewQuizController(db *gorm.DB, cfg *config.Config, submissions *services.SubmissionService, c cache.Cache, logger *log.Logger) *QuizController {
	return &QuizController{DB: db, Cfg: cfg, Submissions: submissions, Cache: c, Logger: logger}
}

// QuizView is a quiz as quiz takers see it, without answer keys.
type QuizView struct {
	ID            string                   `json:"id"`
	Title         string                   `json:"title"`
	Description   string                   `json:"description"`
	Settings      models.QuizSettings      `json:"settings"`
	TotalPoints   float64                  `json:"totalPoints"`
	QuestionCount int                      `json:"questionCount"`
	IsActive      bool                     `json:"isActive"`
	QuestionSets  []models.QuizQuestionSet `json:"questionSets"`
}

func newQuizView(quiz *models.Quiz) QuizView {
	return QuizView{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   quiz.Description,
		Settings:      quiz.Settings,
		TotalPoints:   quiz.TotalPoints,
		QuestionCount: quiz.QuestionCount(),
		IsActive:      quiz.IsActive,
		QuestionSets:  quiz.PublicSlots(),
	}
}

func (qc *QuizController) currentTaker(c *fiber.Ctx) (*models.QuizTaker, error) {
	principal, ok := utils.CurrentPrincipal(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return repository.GetQuizTaker(c.UserContext(), qc.DB, principal.ID)
}

func (qc *QuizController) GetProfile(c *fiber.Ctx) error {
	taker, err := qc.currentTaker(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, fiber.Map{
		"id":              taker.ID,
		"email":           taker.Email,
		"name":            taker.Name,
		"accountType":     taker.AccountType,
		"assignedQuizzes": taker.Assignments(),
		"quizzesTaken":    taker.History(),
	})
}

type availableQuiz struct {
	ID            string                  `json:"id"`
	Title         string                  `json:"title"`
	Description   string                  `json:"description"`
	TotalPoints   float64                 `json:"totalPoints"`
	QuestionCount int                     `json:"questionCount"`
	Settings      models.QuizSettings     `json:"settings"`
	Status        models.AssignmentStatus `json:"status,omitempty"`
	Assignment    *models.AssignedQuiz    `json:"assignment,omitempty"`
}

// GetAvailableQuizzes lists assigned quizzes for premium takers and active open
// quizzes for regular ones.
func (qc *QuizController) GetAvailableQuizzes(c *fiber.Ctx) error {
	taker, err := qc.currentTaker(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	ctx := c.UserContext()

	result := []availableQuiz{}
	if !taker.IsPremium() {
		quizzes, err := repository.ListOpenQuizzes(ctx, qc.DB)
		if err != nil {
			return utils.HandleError(c, err)
		}
		for i := range quizzes {
			result = append(result, toAvailable(&quizzes[i], nil))
		}
		return utils.OK(c, result)
	}

	assignments := taker.Assignments()
	ids := make([]string, 0, len(assignments))
	for id := range assignments {
		ids = append(ids, id)
	}
	quizzes, err := repository.ListQuizzesByIDs(ctx, qc.DB, ids)
	if err != nil {
		return utils.HandleError(c, err)
	}
	for i := range quizzes {
		if !quizzes[i].IsActive {
			continue
		}
		a := assignments[quizzes[i].ID]
		result = append(result, toAvailable(&quizzes[i], &a))
	}
	return utils.OK(c, result)
}

func toAvailable(quiz *models.Quiz, a *models.AssignedQuiz) availableQuiz {
	item := availableQuiz{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   quiz.Description,
		TotalPoints:   quiz.TotalPoints,
		QuestionCount: quiz.QuestionCount(),
		Settings:      quiz.Settings,
		Assignment:    a,
	}
	if a != nil {
		item.Status = a.Status
	}
	return item
}

// GetQuiz returns the quiz without answer keys. The view is cached; access is
// checked against the caller on every request.
func (qc *QuizController) GetQuiz(c *fiber.Ctx) error {
	taker, err := qc.currentTaker(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	ctx := c.UserContext()
	quizID := c.Params("id")

	view, err := cache.GetOrLoad(ctx, qc.Cache, qc.Logger, cache.QuizKey(quizID), qc.Cfg.CacheTTL, func() (QuizView, error) {
		quiz, err := repository.GetQuiz(ctx, qc.DB, quizID)
		if err != nil {
			return QuizView{}, err
		}
		return newQuizView(quiz), nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	if !view.IsActive {
		return utils.HandleError(c, models.ErrQuizInactive)
	}
	if taker.IsPremium() {
		if _, ok := taker.Assignment(view.ID); !ok {
			return utils.HandleError(c, models.ErrQuizNotAssigned)
		}
	} else if view.Settings.Mode != models.QuizModeOpen {
		return utils.HandleError(c, models.ErrQuizNotOpen)
	}
	return utils.OK(c, view)
}

func (qc *QuizController) StartQuiz(c *fiber.Ctx) error {
	principal, _ := utils.CurrentPrincipal(c)
	assignment, err := qc.Submissions.StartQuiz(c.UserContext(), c.Params("id"), principal.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, fiber.Map{
		"quizId":     c.Params("id"),
		"startedAt":  startedAt(assignment),
		"assignment": assignment,
	})
}

type customOrderInput struct {
	Order []int `json:"order" validate:"len=4,dive,min=1,max=4"`
}

func (qc *QuizController) SetCustomOrder(c *fiber.Ctx) error {
	var input customOrderInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	principal, _ := utils.CurrentPrincipal(c)
	assignment, err := qc.Submissions.SetCustomOrder(c.UserContext(), c.Params("id"), principal.ID, input.Order)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, assignment)
}

func (qc *QuizController) StartQuestionSet(c *fiber.Ctx) error {
	order, err := c.ParamsInt("order")
	if err != nil {
		return utils.HandleError(c, models.ErrInvalidQuestionSet)
	}
	principal, _ := utils.CurrentPrincipal(c)
	assignment, err := qc.Submissions.StartQuestionSet(c.UserContext(), c.Params("id"), principal.ID, order)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, fiber.Map{
		"quizId":           c.Params("id"),
		"questionSetOrder": order,
		"assignment":       assignment,
	})
}

type submitInput struct {
	QuestionSetOrder  int                    `json:"questionSetOrder" validate:"required,min=1,max=4"`
	Answers           []services.AnswerInput `json:"answers" validate:"required,min=1,dive"`
	IsFinalSubmission bool                   `json:"isFinalSubmission"`
}

// Submit grades the answers of one question set and stores them in the open
// submission. A final submission of the last outstanding set closes the quiz.
func (qc *QuizController) Submit(c *fiber.Ctx) error {
	var input submitInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	principal, _ := utils.CurrentPrincipal(c)

	result, err := qc.Submissions.Submit(c.UserContext(), services.SubmitInput{
		QuizID:            c.Params("id"),
		QuizTakerID:       principal.ID,
		QuestionSetOrder:  input.QuestionSetOrder,
		Answers:           input.Answers,
		IsFinalSubmission: input.IsFinalSubmission,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, fiber.Map{"submission": result})
}

// GetResult returns the caller's latest attempt of the quiz.
func (qc *QuizController) GetResult(c *fiber.Ctx) error {
	principal, _ := utils.CurrentPrincipal(c)
	ctx := c.UserContext()

	sub, err := repository.LatestSubmission(ctx, qc.DB, c.Params("id"), principal.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	quiz, err := repository.GetQuiz(ctx, qc.DB, sub.QuizID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, services.BuildResult(quiz, sub))
}

func startedAt(a *models.AssignedQuiz) *time.Time {
	if a == nil {
		return nil
	}
	return a.StartedAt
}
