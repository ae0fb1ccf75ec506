package controllers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"quizplatform/backend/config"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
	"quizplatform/backend/utils"
)

type QuestionSetsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewQuestionSetsController(db *gorm.DB, cfg *config.Config) *QuestionSetsController {
	return &QuestionSetsController{DB: db, Cfg: cfg}
}

type questionInput struct {
	Type          models.QuestionType `json:"type" validate:"required,oneof=multiple-choice true-false fill-in-the-blank essay"`
	Text          string              `json:"text" validate:"required"`
	Options       []string            `json:"options"`
	CorrectAnswer string              `json:"correctAnswer"`
	Points        float64             `json:"points" validate:"gte=0"`
	Order         int                 `json:"order" validate:"gte=0"`
}

func (in questionInput) toQuestion() models.Question {
	return models.Question{
		Type:          in.Type,
		Text:          strings.TrimSpace(in.Text),
		Options:       in.Options,
		CorrectAnswer: strings.TrimSpace(in.CorrectAnswer),
		Points:        in.Points,
		Order:         in.Order,
	}
}

type questionSetInput struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description"`
	Questions   []questionInput `json:"questions" validate:"dive"`
}

func (qc *QuestionSetsController) CreateQuestionSet(c *fiber.Ctx) error {
	var input questionSetInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	qs := &models.QuestionSet{Title: input.Title, Description: input.Description}
	qs.SetQuestions([]models.Question{})
	for _, q := range input.Questions {
		if _, err := qs.AddQuestion(q.toQuestion()); err != nil {
			return utils.HandleError(c, err)
		}
	}
	if err := repository.Create(c.UserContext(), qc.DB, qs); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, qs)
}

func (qc *QuestionSetsController) GetQuestionSets(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	query := qc.DB.WithContext(c.UserContext()).Model(&models.QuestionSet{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var sets []models.QuestionSet
	total, err := paginate(query, page, pageSize, &sets)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Paginate(c, sets, total, page, pageSize)
}

func (qc *QuestionSetsController) GetQuestionSet(c *fiber.Ctx) error {
	qs, err := repository.GetQuestionSet(c.UserContext(), qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, qs)
}

// UpdateQuestionSet replaces title and description, and the questions when given.
// Quizzes keep the snapshot they were created with.
func (qc *QuestionSetsController) UpdateQuestionSet(c *fiber.Ctx) error {
	var input questionSetInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	qs, err := repository.GetQuestionSet(c.UserContext(), qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	qs.Title = input.Title
	qs.Description = input.Description
	if input.Questions != nil {
		qs.SetQuestions([]models.Question{})
		for _, q := range input.Questions {
			if _, err := qs.AddQuestion(q.toQuestion()); err != nil {
				return utils.HandleError(c, err)
			}
		}
	}
	if err := repository.SaveVersioned(c.UserContext(), qc.DB, qs); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, qs)
}

func (qc *QuestionSetsController) DeleteQuestionSet(c *fiber.Ctx) error {
	ctx := c.UserContext()
	qs, err := repository.GetQuestionSet(ctx, qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	inUse, err := repository.QuestionSetInCombination(ctx, qc.DB, qs.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if inUse {
		return utils.HandleError(c, models.ErrQuestionSetInUse)
	}
	if err := qc.DB.WithContext(ctx).Delete(qs).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

func (qc *QuestionSetsController) AddQuestion(c *fiber.Ctx) error {
	var input questionInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	qs, err := repository.GetQuestionSet(c.UserContext(), qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	question, err := qs.AddQuestion(input.toQuestion())
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := repository.SaveVersioned(c.UserContext(), qc.DB, qs); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, question)
}

func (qc *QuestionSetsController) UpdateQuestion(c *fiber.Ctx) error {
	var input questionInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	qs, err := repository.GetQuestionSet(c.UserContext(), qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	question := input.toQuestion()
	question.ID = c.Params("questionId")
	if question.Order == 0 {
		for _, existing := range qs.QuestionList() {
			if existing.ID == question.ID {
				question.Order = existing.Order
			}
		}
	}
	if err := qs.ReplaceQuestion(question); err != nil {
		return utils.HandleError(c, err)
	}
	if err := repository.SaveVersioned(c.UserContext(), qc.DB, qs); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, question)
}

func (qc *QuestionSetsController) DeleteQuestion(c *fiber.Ctx) error {
	qs, err := repository.GetQuestionSet(c.UserContext(), qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := qs.RemoveQuestion(c.Params("questionId")); err != nil {
		return utils.HandleError(c, err)
	}
	if err := repository.SaveVersioned(c.UserContext(), qc.DB, qs); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

// ImportQuestions appends questions from an uploaded CSV file with the columns
// type, text, options, correctAnswer, points. Options are separated by "|".
// One bad row rejects the whole file.
func (qc *QuestionSetsController) ImportQuestions(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "CSV file is required in the \"file\" field")
	}
	f, err := file.Open()
	if err != nil {
		return utils.HandleError(c, err)
	}
	defer f.Close()

	rows, err := utils.ReadCSV(f, "type", "text")
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	qs, err := repository.GetQuestionSet(c.UserContext(), qc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	for i, row := range rows {
		question, err := questionFromRow(row)
		if err == nil {
			_, err = qs.AddQuestion(question)
		}
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, fmt.Errorf("row %d: %w", i+2, err))
		}
	}
	if err := repository.SaveVersioned(c.UserContext(), qc.DB, qs); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, fiber.Map{
		"imported":    len(rows),
		"questionSet": qs,
	})
}

func questionFromRow(row map[string]string) (models.Question, error) {
	q := models.Question{
		Type:          models.QuestionType(strings.ToLower(row["type"])),
		Text:          row["text"],
		CorrectAnswer: row["correctanswer"],
	}
	if raw := row["options"]; raw != "" {
		for _, opt := range strings.Split(raw, "|") {
			if opt = strings.TrimSpace(opt); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
	}
	if raw := row["points"]; raw != "" {
		points, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, fmt.Errorf("%w: points %q is not a number", models.ErrInvalidQuestion, raw)
		}
		q.Points = points
	} else {
		q.Points = 1
	}
	return q, nil
}
