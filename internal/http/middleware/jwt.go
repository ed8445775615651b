package middleware

import (
	"strings"

	"backend-huella/internal/config"

	"github.com/gofiber/fiber/v2"
)

// BlacklistPrefix es la clave Redis donde logout guarda los jti
// revocados (con TTL igual a la vida restante del token).
const BlacklistPrefix = "huella:jwt:blacklist:"

func JWTAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Falta el encabezado Authorization",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Formato de autorización inválido",
			})
		}

		claims, err := config.ValidateToken(tokenParts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token inválido o expirado",
			})
		}

		// Token revocado por logout
		if claims.ID != "" {
			revoked, err := config.Redis.Exists(config.Ctx, BlacklistPrefix+claims.ID).Result()
			if err == nil && revoked > 0 {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Sesión cerrada, inicie sesión de nuevo",
				})
			}
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("nombre", claims.Nombre)
		c.Locals("email", claims.Email)
		c.Locals("rol", claims.Rol)
		c.Locals("jti", claims.ID)

		return c.Next()
	}
}

func RoleAuth(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rol := c.Locals("rol").(string)

		for _, allowedRole := range allowedRoles {
			if rol == allowedRole {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "No tiene acceso a este recurso",
		})
	}
}
