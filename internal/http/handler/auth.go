package handler

import (
	"database/sql"
	"os"
	"strings"
	"time"

	"backend-huella/internal/config"
	"backend-huella/internal/http/middleware"
	"backend-huella/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email y contraseña son obligatorios",
		})
	}

	// reCAPTCHA solo si está configurado
	if os.Getenv("RECAPTCHA_SECRET_KEY") != "" {
		if req.RecaptchaToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Token reCAPTCHA inválido",
			})
		}

		ok, score, err := config.VerifyRecaptcha(req.RecaptchaToken)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "No se pudo verificar reCAPTCHA",
			})
		}

		if !ok || score < 0.5 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Actividad sospechosa detectada",
			})
		}
	}

	var user models.User
	query := `SELECT id, nombre, email, password, rol, bloqueado, created_at, updated_at
	          FROM usuarios WHERE email = ?`
	err := config.DB.QueryRow(query, req.Email).Scan(
		&user.ID,
		&user.Nombre,
		&user.Email,
		&user.Password,
		&user.Rol,
		&user.Bloqueado,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Email o contraseña incorrectos",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	if user.Bloqueado == "y" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Su cuenta ha sido bloqueada",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Email o contraseña incorrectos",
		})
	}

	token, err := config.GenerateToken(user.ID, user.Nombre, user.Email, user.Rol)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"user":    models.ToUserResponse(user),
		"message": "¡Bienvenido de nuevo, " + user.Nombre + "!",
	})
}

// Logout revoca el jti del token en Redis por el tiempo de vida que le
// quede; el middleware JWT rechaza los jti revocados.
func Logout(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Formato de autorización inválido",
		})
	}

	claims, err := config.ValidateToken(tokenParts[1])
	if err != nil || claims.ID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Token inválido o expirado",
		})
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl > 0 {
		config.Redis.Set(config.Ctx, middleware.BlacklistPrefix+claims.ID, "1", ttl)
	}

	return c.JSON(fiber.Map{
		"message": "Sesión cerrada correctamente",
	})
}
