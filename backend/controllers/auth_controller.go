package controllers

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"quizplatform/backend/config"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
	"quizplatform/backend/utils"
)

type AuthController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAuthController(db *gorm.DB, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Cfg: cfg}
}

type adminLoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type quizTakerLoginInput struct {
	Email      string `json:"email" validate:"required,email"`
	AccessCode string `json:"accessCode"`
}

type registerInput struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=200"`
}

// [+] AdminLogin godoc
// @Summary Admin login
// @Description Authenticate an admin and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body adminLoginInput true "Login credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/admin/login [post]
func (ac *AuthController) AdminLogin(c *fiber.Ctx) error {
	var input adminLoginInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	admin, err := repository.GetAdminByEmail(c.UserContext(), ac.DB, strings.ToLower(strings.TrimSpace(input.Email)))
	if errors.Is(err, models.ErrAdminNotFound) {
		return utils.HandleError(c, models.ErrInvalidCredentials)
	}
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(input.Password)); err != nil {
		return utils.HandleError(c, models.ErrInvalidCredentials)
	}

	token, err := utils.GenerateJWTToken(admin.ID, utils.RoleAdmin, ac.Cfg)
	if err != nil {
		return utils.HandleError(c, err)
	}

	return utils.OK(c, fiber.Map{
		"token": token,
		"admin": fiber.Map{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}

// [+] QuizTakerLogin godoc
// @Summary Quiz taker login
// @Description Premium quiz takers log in with email and access code, regular ones with email only
// @Tags auth
// @Accept json
// @Produce json
// @Param request body quizTakerLoginInput true "Login credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /auth/quiztaker/login [post]
func (ac *AuthController) QuizTakerLogin(c *fiber.Ctx) error {
	var input quizTakerLoginInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	taker, err := repository.GetQuizTakerByEmail(c.UserContext(), ac.DB, strings.ToLower(strings.TrimSpace(input.Email)))
	if errors.Is(err, models.ErrQuizTakerNotFound) {
		return utils.HandleError(c, models.ErrInvalidCredentials)
	}
	if err != nil {
		return utils.HandleError(c, err)
	}

	if taker.IsPremium() {
		code := strings.TrimSpace(input.AccessCode)
		if taker.AccessCode == nil || code == "" ||
			subtle.ConstantTimeCompare([]byte(*taker.AccessCode), []byte(code)) != 1 {
			return utils.HandleError(c, models.ErrInvalidCredentials)
		}
	}
	if !taker.IsActive {
		return utils.HandleError(c, models.ErrAccountInactive)
	}

	return ac.respondWithToken(c, fiber.StatusOK, taker)
}

// [+] Register godoc
// @Summary Register a regular quiz taker
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerInput true "Registration data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/quiztaker/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input registerInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	taker := &models.QuizTaker{
		Email:       input.Email,
		Name:        strings.TrimSpace(input.Name),
		AccountType: models.AccountRegular,
		IsActive:    true,
	}
	if err := repository.Create(c.UserContext(), ac.DB, taker); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Error(c, fiber.StatusConflict, errors.New("email is already registered"))
		}
		return utils.HandleError(c, err)
	}

	return ac.respondWithToken(c, fiber.StatusCreated, taker)
}

func (ac *AuthController) respondWithToken(c *fiber.Ctx, status int, taker *models.QuizTaker) error {
	token, err := utils.GenerateJWTToken(taker.ID, utils.RoleQuizTaker, ac.Cfg)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, status, fiber.Map{
		"token": token,
		"quizTaker": fiber.Map{
			"id":          taker.ID,
			"email":       taker.Email,
			"name":        taker.Name,
			"accountType": taker.AccountType,
		},
	})
}
