package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"quizplatform/backend/config"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
	"quizplatform/backend/services"
	"quizplatform/backend/utils"
)

type QuizTakersController struct {
	DB          *gorm.DB
	Cfg         *config.Config
	Coordinator *services.Coordinator
	Mailer      utils.Mailer
	Logger      *log.Logger
}

func NewQuizTakersController(db *gorm.DB, cfg *config.Config, coordinator *services.Coordinator, mailer utils.Mailer, logger *log.Logger) *QuizTakersController {
	return &QuizTakersController{DB: db, Cfg: cfg, Coordinator: coordinator, Mailer: mailer, Logger: logger}
}

type quizTakerInput struct {
	Email                  string             `json:"email" validate:"required,email"`
	Name                   string             `json:"name" validate:"max=200"`
	AccountType            models.AccountType `json:"accountType" validate:"required,oneof=premium regular"`
	IsActive               *bool              `json:"isActive"`
	QuestionSetCombination []string           `json:"questionSetCombination" validate:"omitempty,len=4,dive,required"`
}

type updateQuizTakerInput struct {
	Name                   *string             `json:"name" validate:"omitempty,max=200"`
	AccountType            *models.AccountType `json:"accountType" validate:"omitempty,oneof=premium regular"`
	IsActive               *bool               `json:"isActive"`
	QuestionSetCombination []string            `json:"questionSetCombination" validate:"omitempty,len=4,dive,required"`
}

// newAccessCode returns a random 12 character code. Uniqueness is enforced by the
// access_code index.
func newAccessCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func (tc *QuizTakersController) checkCombination(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := repository.GetQuestionSet(ctx, tc.DB, id); err != nil {
			return fmt.Errorf("question set %s: %w", id, err)
		}
	}
	return nil
}

func (tc *QuizTakersController) notify(taker *models.QuizTaker) {
	if !taker.IsPremium() || taker.AccessCode == nil {
		return
	}
	utils.SendAsync(tc.Mailer, tc.Logger, utils.AccessCodeMessage(taker.Email, taker.Name, *taker.AccessCode))
}

func (tc *QuizTakersController) create(ctx context.Context, input quizTakerInput) (*models.QuizTaker, error) {
	taker := &models.QuizTaker{
		Email:       input.Email,
		Name:        strings.TrimSpace(input.Name),
		AccountType: input.AccountType,
		IsActive:    true,
	}
	if input.IsActive != nil {
		taker.IsActive = *input.IsActive
	}
	if taker.IsPremium() {
		code := newAccessCode()
		taker.AccessCode = &code
	}
	if len(input.QuestionSetCombination) > 0 {
		if err := tc.checkCombination(ctx, input.QuestionSetCombination); err != nil {
			return nil, err
		}
		taker.QuestionSetCombination = datatypes.NewJSONType(input.QuestionSetCombination)
	}
	if err := repository.Create(ctx, tc.DB, taker); err != nil {
		return nil, err
	}
	tc.notify(taker)
	return taker, nil
}

// CreateQuizTaker creates an account. Premium accounts get an access code that is
// mailed to them in the background; a failed mail is only logged.
func (tc *QuizTakersController) CreateQuizTaker(c *fiber.Ctx) error {
	var input quizTakerInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	taker, err := tc.create(c.UserContext(), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, taker)
}

func (tc *QuizTakersController) GetQuizTakers(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	query := tc.DB.WithContext(c.UserContext()).Model(&models.QuizTaker{})
	if accountType := c.Query("accountType"); accountType != "" {
		query = query.Where("account_type = ?", accountType)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("email LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var takers []models.QuizTaker
	total, err := paginate(query, page, pageSize, &takers)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Paginate(c, takers, total, page, pageSize)
}

func (tc *QuizTakersController) GetQuizTaker(c *fiber.Ctx) error {
	taker, err := repository.GetQuizTaker(c.UserContext(), tc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, taker)
}

func (tc *QuizTakersController) UpdateQuizTaker(c *fiber.Ctx) error {
	var input updateQuizTakerInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	ctx := c.UserContext()
	if len(input.QuestionSetCombination) > 0 {
		if err := tc.checkCombination(ctx, input.QuestionSetCombination); err != nil {
			return utils.HandleError(c, err)
		}
	}

	var updated *models.QuizTaker
	becamePremium := false
	err := tc.Coordinator.Run(ctx, func(tx *gorm.DB) error {
		taker, err := repository.GetQuizTaker(ctx, tx, c.Params("id"))
		if err != nil {
			return err
		}
		becamePremium = false
		if input.Name != nil {
			taker.Name = strings.TrimSpace(*input.Name)
		}
		if input.IsActive != nil {
			taker.IsActive = *input.IsActive
		}
		if input.AccountType != nil && *input.AccountType != taker.AccountType {
			taker.AccountType = *input.AccountType
			if taker.IsPremium() {
				code := newAccessCode()
				taker.AccessCode = &code
				becamePremium = true
			} else {
				taker.AccessCode = nil
			}
		}
		if input.QuestionSetCombination != nil {
			taker.QuestionSetCombination = datatypes.NewJSONType(input.QuestionSetCombination)
		}
		if err := repository.SaveVersioned(ctx, tx, taker); err != nil {
			return err
		}
		updated = taker
		return nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	if becamePremium {
		tc.notify(updated)
	}
	return utils.OK(c, updated)
}

func (tc *QuizTakersController) DeleteQuizTaker(c *fiber.Ctx) error {
	ctx := c.UserContext()
	taker, err := repository.GetQuizTaker(ctx, tc.DB, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := tc.DB.WithContext(ctx).Delete(taker).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

type importFailure struct {
	Row   int    `json:"row"`
	Email string `json:"email"`
	Error string `json:"error"`
}

// ImportQuizTakers creates accounts from a CSV file with the columns email, name,
// accountType. Rows are independent: failures are reported and the rest are kept.
func (tc *QuizTakersController) ImportQuizTakers(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "CSV file is required in the \"file\" field")
	}
	f, err := file.Open()
	if err != nil {
		return utils.HandleError(c, err)
	}
	defer f.Close()

	rows, err := utils.ReadCSV(f, "email")
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ctx := c.UserContext()
	created := make([]*models.QuizTaker, 0, len(rows))
	failed := []importFailure{}
	for i, row := range rows {
		input := quizTakerInput{
			Email:       row["email"],
			Name:        row["name"],
			AccountType: models.AccountType(strings.ToLower(row["accounttype"])),
		}
		if input.AccountType == "" {
			input.AccountType = models.AccountRegular
		}
		if errs := utils.ValidateStruct(input); errs != nil {
			failed = append(failed, importFailure{Row: i + 2, Email: input.Email, Error: fmt.Sprintf("invalid fields: %v", errs)})
			continue
		}
		taker, err := tc.create(ctx, input)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				msg = "email is already registered"
			}
			failed = append(failed, importFailure{Row: i + 2, Email: input.Email, Error: msg})
			continue
		}
		created = append(created, taker)
	}

	return utils.OK(c, fiber.Map{
		"created": created,
		"failed":  failed,
	})
}

type assignInput struct {
	QuizID string `json:"quizId" validate:"required"`
}

// AssignQuiz adds a pending assignment to a premium quiz taker.
func (tc *QuizTakersController) AssignQuiz(c *fiber.Ctx) error {
	var input assignInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	ctx := c.UserContext()

	var assignment models.AssignedQuiz
	err := tc.Coordinator.Run(ctx, func(tx *gorm.DB) error {
		taker, err := repository.GetQuizTaker(ctx, tx, c.Params("id"))
		if err != nil {
			return err
		}
		if _, err := repository.GetQuiz(ctx, tx, input.QuizID); err != nil {
			return err
		}
		assignment, err = taker.Assign(input.QuizID, time.Now().UTC())
		if err != nil {
			return err
		}
		return repository.SaveVersioned(ctx, tx, taker)
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, assignment)
}

// UnassignQuiz removes an assignment that has not been completed, together with
// its open submission if there is one.
func (tc *QuizTakersController) UnassignQuiz(c *fiber.Ctx) error {
	ctx := c.UserContext()
	err := tc.Coordinator.Run(ctx, func(tx *gorm.DB) error {
		taker, err := repository.GetQuizTaker(ctx, tx, c.Params("id"))
		if err != nil {
			return err
		}
		quizID := c.Params("quizId")
		if err := taker.Unassign(quizID); err != nil {
			return err
		}
		// an attempt that was under way goes with the assignment
		open, err := repository.FindOpenSubmission(ctx, tx, quizID, taker.ID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := tx.Delete(open).Error; err != nil {
				return err
			}
		}
		return repository.SaveVersioned(ctx, tx, taker)
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}
