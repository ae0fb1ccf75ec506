package utils

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"quizplatform/backend/config"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleQuizTaker Role = "quiztaker"
)

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	ID   string
	Role Role
}

type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

func GenerateJWTToken(id string, role Role, cfg *config.Config) (string, error) {
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func ParseToken(tokenString string, cfg *config.Config) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}
	if claims.Subject == "" || (claims.Role != RoleAdmin && claims.Role != RoleQuizTaker) {
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	return Principal{ID: claims.Subject, Role: claims.Role}, nil
}

// ExtractPrincipal reads the Authorization header. Both "Bearer <token>" and a
// bare token are accepted.
func ExtractPrincipal(c *fiber.Ctx, cfg *config.Config) (Principal, error) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	return ParseToken(header, cfg)
}

const principalKey = "principal"

func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(principalKey, p)
}

// CurrentPrincipal returns what the auth middleware stored for this request.
func CurrentPrincipal(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(principalKey).(Principal)
	return p, ok
}
