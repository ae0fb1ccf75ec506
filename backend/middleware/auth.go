package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"quizplatform/backend/config"
	"quizplatform/backend/models"
	"quizplatform/backend/repository"
	"quizplatform/backend/utils"
)

// AuthMiddleware проверяет токен и сохраняет principal в контексте запроса.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := utils.ExtractPrincipal(c, cfg)
		if err != nil {
			return utils.HandleError(c, err)
		}
		utils.SetPrincipal(c, principal)
		return c.Next()
	}
}

// AdminMiddleware пропускает только администраторов. Must run after AuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := utils.CurrentPrincipal(c)
		if !ok {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if principal.Role != utils.RoleAdmin {
			return utils.Forbidden(c, "Forbidden - Admin access required")
		}
		return c.Next()
	}
}

// QuizTakerMiddleware пропускает только активных участников.
func QuizTakerMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := utils.CurrentPrincipal(c)
		if !ok {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if principal.Role != utils.RoleQuizTaker {
			return utils.Forbidden(c, "Forbidden - Quiz taker access required")
		}

		taker, err := repository.GetQuizTaker(c.UserContext(), db, principal.ID)
		if errors.Is(err, models.ErrQuizTakerNotFound) {
			return utils.Unauthorized(c, "Unknown quiz taker")
		}
		if err != nil {
			return utils.HandleError(c, err)
		}
		if !taker.IsActive {
			return utils.HandleError(c, models.ErrAccountInactive)
		}
		return c.Next()
	}
}

// LoginRateLimit ограничивает число попыток входа с одного IP в минуту.
// A non-positive limit disables it.
func LoginRateLimit(cfg *config.Config) fiber.Handler {
	if cfg.LoginRateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        cfg.LoginRateLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "login:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Error(c, fiber.StatusTooManyRequests, errors.New("too many login attempts, try again later"))
		},
	})
}
