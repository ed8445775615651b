package handler

import (
	"database/sql"
	"strconv"
	"strings"

	"backend-huella/internal/config"
	"backend-huella/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const usuarioSelect = `
	SELECT id, nombre, email, rol, bloqueado, created_at, updated_at
	FROM usuarios
`

func validUserRol(rol string) bool {
	return rol == models.RolUsuarioAdministrador || rol == models.RolUsuarioGuardia
}

func scanUsuario(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Nombre,
		&u.Email,
		&u.Rol,
		&u.Bloqueado,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// GetUserByID - Consulta un usuario por ID
func GetUserByID(c *fiber.Ctx) error {
	id := c.Params("id")

	u, err := scanUsuario(config.DB.QueryRow(usuarioSelect+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Usuario no encontrado",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar el usuario",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.ToUserResponse(u),
	})
}

// GetAllUsers - Lista todos los usuarios del sistema
func GetAllUsers(c *fiber.Ctx) error {
	bloqueado := c.Query("bloqueado")
	search := c.Query("search")

	query := usuarioSelect + " WHERE 1=1"
	args := []interface{}{}

	if bloqueado != "" {
		query += " AND bloqueado = ?"
		args = append(args, bloqueado)
	}

	if search != "" {
		search = "%" + strings.TrimSpace(search) + "%"
		query += " AND (email LIKE ? OR nombre LIKE ?)"
		args = append(args, search, search)
	}

	query += " ORDER BY created_at DESC"

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar los usuarios",
		})
	}
	defer rows.Close()

	users := []models.UserResponse{}
	for rows.Next() {
		var u models.User
		err := rows.Scan(
			&u.ID,
			&u.Nombre,
			&u.Email,
			&u.Rol,
			&u.Bloqueado,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
		if err != nil {
			continue
		}
		users = append(users, models.ToUserResponse(u))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
	})
}

// CreateUser - Crea un usuario del sistema (guardia o administrador)
func CreateUser(c *fiber.Ctx) error {
	var req struct {
		Nombre    string `json:"nombre"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Rol       string `json:"rol"`
		Bloqueado string `json:"bloqueado"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Nombre == "" || req.Email == "" || req.Password == "" || req.Rol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nombre, email, password y rol son obligatorios",
		})
	}

	if !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Formato de email inválido",
		})
	}

	req.Rol = strings.ToUpper(req.Rol)
	if !validUserRol(req.Rol) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rol debe ser ADMINISTRADOR o GUARDIA",
		})
	}

	if len(req.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "La contraseña debe tener mínimo 6 caracteres",
		})
	}

	if req.Bloqueado == "" {
		req.Bloqueado = "n"
	}

	if req.Bloqueado != "y" && req.Bloqueado != "n" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bloqueado debe ser 'y' o 'n'",
		})
	}

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM usuarios WHERE email = ?", req.Email).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo validar el email",
		})
	}

	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "El email ya está en uso",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo encriptar la contraseña",
		})
	}

	query := "INSERT INTO usuarios (nombre, email, password, rol, bloqueado, created_at, updated_at) VALUES (?, ?, ?, ?, ?, NOW(), NOW())"
	result, err := config.DB.Exec(query, req.Nombre, req.Email, string(hashedPassword), req.Rol, req.Bloqueado)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo crear el usuario",
		})
	}

	id, _ := result.LastInsertId()
	u, _ := scanUsuario(config.DB.QueryRow(usuarioSelect+" WHERE id = ?", id))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Usuario creado correctamente",
		"data":    models.ToUserResponse(u),
	})
}

// UpdateUser - Actualización parcial de un usuario
func UpdateUser(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		Nombre    string `json:"nombre"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Rol       string `json:"rol"`
		Bloqueado string `json:"bloqueado"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var exists int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM usuarios WHERE id = ?", id).Scan(&exists)
	if err != nil || exists == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Usuario no encontrado",
		})
	}

	query := "UPDATE usuarios SET "
	args := []interface{}{}
	updates := []string{}

	if req.Nombre != "" {
		updates = append(updates, "nombre = ?")
		args = append(args, req.Nombre)
	}

	if req.Email != "" {
		if !strings.Contains(req.Email, "@") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Formato de email inválido",
			})
		}

		var count int
		config.DB.QueryRow("SELECT COUNT(*) FROM usuarios WHERE email = ? AND id != ?", req.Email, id).Scan(&count)
		if count > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "El email ya está en uso",
			})
		}

		updates = append(updates, "email = ?")
		args = append(args, req.Email)
	}

	if req.Password != "" {
		if len(req.Password) < 6 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "La contraseña debe tener mínimo 6 caracteres",
			})
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "No se pudo encriptar la contraseña",
			})
		}
		updates = append(updates, "password = ?")
		args = append(args, string(hashedPassword))
	}

	if req.Rol != "" {
		req.Rol = strings.ToUpper(req.Rol)
		if !validUserRol(req.Rol) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Rol debe ser ADMINISTRADOR o GUARDIA",
			})
		}
		updates = append(updates, "rol = ?")
		args = append(args, req.Rol)
	}

	if req.Bloqueado != "" {
		if req.Bloqueado != "y" && req.Bloqueado != "n" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "bloqueado debe ser 'y' o 'n'",
			})
		}
		updates = append(updates, "bloqueado = ?")
		args = append(args, req.Bloqueado)
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No hay datos para actualizar",
		})
	}

	query += strings.Join(updates, ", ") + ", updated_at = NOW() WHERE id = ?"
	args = append(args, id)

	_, err = config.DB.Exec(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo actualizar el usuario",
		})
	}

	u, _ := scanUsuario(config.DB.QueryRow(usuarioSelect+" WHERE id = ?", id))

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Usuario actualizado correctamente",
		"data":    models.ToUserResponse(u),
	})
}

// HardDeleteUser - Elimina un usuario de forma permanente
func HardDeleteUser(c *fiber.Ctx) error {
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)

	var adminCount int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM usuarios WHERE rol = 'ADMINISTRADOR'").Scan(&adminCount)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo validar el usuario",
		})
	}

	var userRol string
	err = config.DB.QueryRow("SELECT rol FROM usuarios WHERE id = ?", id).Scan(&userRol)
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Usuario no encontrado",
		})
	}

	// No dejar el sistema sin administradores
	if adminCount == 1 && userRol == models.RolUsuarioAdministrador {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No se puede eliminar el último administrador",
		})
	}

	result, err := config.DB.Exec("DELETE FROM usuarios WHERE id = ?", id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo eliminar el usuario",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Usuario no encontrado",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Usuario eliminado permanentemente",
	})
}
