package controllers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"quizplatform/backend/cache"
	"quizplatform/backend/config"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
	"quizplatform/backend/services"
	"quizplatform/backend/utils"
)

type QuizzesController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Cache  cache.Cache
	Logger *log.Logger
}

func NewQuizzesController(db *gorm.DB, cfg *config.Config, c cache.Cache, logger *log.Logger) *QuizzesController {
	return &QuizzesController{DB: db, Cfg: cfg, Cache: c, Logger: logger}
}

type quizSettingsInput struct {
	DurationMinutes    *int             `json:"durationMinutes" validate:"omitempty,gte=0"`
	AllowRetake        *bool            `json:"allowRetake"`
	MaxAttempts        *int             `json:"maxAttempts" validate:"omitempty,gte=0"`
	ShowCorrectAnswers *bool            `json:"showCorrectAnswers"`
	ShowResults        *bool            `json:"showResults"`
	Mode               *models.QuizMode `json:"mode" validate:"omitempty,oneof=open assigned"`
	IsActive           *bool            `json:"isActive"`
}

func (in quizSettingsInput) apply(quiz *models.Quiz) {
	s := &quiz.Settings
	if in.DurationMinutes != nil {
		s.DurationMinutes = *in.DurationMinutes
	}
	if in.AllowRetake != nil {
		s.AllowRetake = *in.AllowRetake
	}
	if in.MaxAttempts != nil {
		s.MaxAttempts = *in.MaxAttempts
	}
	if in.ShowCorrectAnswers != nil {
		s.ShowCorrectAnswers = *in.ShowCorrectAnswers
	}
	if in.ShowResults != nil {
		s.ShowResults = *in.ShowResults
	}
	if in.Mode != nil {
		s.Mode = *in.Mode
	}
	if in.IsActive != nil {
		quiz.IsActive = *in.IsActive
	}
}

type createQuizInput struct {
	Title          string            `json:"title" validate:"required,max=200"`
	Description    string            `json:"description"`
	QuestionSetIDs []string          `json:"questionSetIds" validate:"len=4,dive,required"`
	Settings       quizSettingsInput `json:"settings"`
}

// CreateQuiz snapshots four distinct question sets into slots 1-4 in the given order.
func (qc *QuizzesController) CreateQuiz(c *fiber.Ctx) error {
	var input createQuizInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	ctx := c.UserContext()

	seen := make(map[string]bool, len(input.QuestionSetIDs))
	slots := make([]models.QuizQuestionSet, 0, models.QuestionSetsPerQuiz)
	for i, id := range input.QuestionSetIDs {
		if seen[id] {
			return utils.HandleError(c, models.ErrDuplicateQuestionSetRef)
		}
		seen[id] = true

		qs, err := repository.GetQuestionSet(ctx, qc.DB, id)
		if err != nil {
			return utils.HandleError(c, fmt.Errorf("question set %s: %w", id, err))
		}
		slots = append(slots, models.NewQuizQuestionSet(i+1, *qs))
	}

	quiz := &models.Quiz{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		IsActive:    true,
		Settings: models.QuizSettings{
			AllowRetake: false,
			MaxAttempts: 1,
			ShowResults: true,
			Mode:        models.QuizModeAssigned,
		},
	}
	input.Settings.apply(quiz)
	quiz.SetSlots(slots)
	if principal, ok := utils.CurrentPrincipal(c); ok {
		quiz.CreatedBy = principal.ID
	}

	if err := repository.Create(ctx, qc.DB, quiz); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, quiz)
}

func (qc *QuizzesController) GetQuizzes(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	query := qc.DB.WithContext(c.UserContext()).Model(&models.Quiz{})
	if mode := c.Query("mode"); mode != "" {
		query = query.Where("mode = ?", mode)
	}
	if active := c.Query("isActive"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var quizzes []models.Quiz
	total, err := paginate(query, page, pageSize, &quizzes)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Paginate(c, quizzes, total, page, pageSize)
}

func (qc *QuizzesController) GetQuiz(c *fiber.Ctx) error {
	quiz, err := repository.GetQuiz(c.UserContext(), qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, quiz)
}

type updateQuizInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	quizSettingsInput
}

// UpdateQuizSettings changes title, description and settings. The question set
// snapshots never change after creation.
func (qc *QuizzesController) UpdateQuizSettings(c *fiber.Ctx) error {
	var input updateQuizInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	ctx := c.UserContext()

	quiz, err := repository.GetQuiz(ctx, qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	if input.Title != nil {
		quiz.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		quiz.Description = *input.Description
	}
	input.quizSettingsInput.apply(quiz)

	if err := repository.SaveVersioned(ctx, qc.DB, quiz); err != nil {
		return utils.HandleError(c, err)
	}
	qc.invalidate(ctx, quiz.ID)
	return utils.OK(c, quiz)
}

func (qc *QuizzesController) DeleteQuiz(c *fiber.Ctx) error {
	ctx := c.UserContext()
	quiz, err := repository.GetQuiz(ctx, qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := qc.DB.WithContext(ctx).Delete(quiz).Error; err != nil {
		return utils.HandleError(c, err)
	}
	qc.invalidate(ctx, quiz.ID)
	return utils.NoContent(c)
}

func (qc *QuizzesController) GetQuizReport(c *fiber.Ctx) error {
	report, err := services.QuizReport(c.UserContext(), qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, report)
}

func (qc *QuizzesController) invalidate(ctx context.Context, quizID string) {
	if err := qc.Cache.Delete(ctx, cache.QuizKey(quizID)); err != nil {
		qc.Logger.Printf("Cache delete %s: %v", quizID, err)
	}
}
