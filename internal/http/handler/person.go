package handler

import (
	"database/sql"
	"strings"

	"backend-huella/internal/config"
	"backend-huella/internal/models"

	"github.com/gofiber/fiber/v2"
)

const personaSelect = `
	SELECT id, nombre, apellido, documento, rol, estado, codigo_qr, qr_expiracion, created_at, updated_at
	FROM personas
`

func validPersonRol(rol string) bool {
	switch rol {
	case models.RolVisitante, models.RolEstudiante, models.RolProfesor, models.RolAdministrativo:
		return true
	}
	return false
}

// GetPersonByID - Consulta una persona por ID
func GetPersonByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var p models.Person
	err := config.DB.QueryRow(personaSelect+" WHERE id = ?", id).Scan(
		&p.ID,
		&p.Nombre,
		&p.Apellido,
		&p.Documento,
		&p.Rol,
		&p.Estado,
		&p.CodigoQR,
		&p.QRExpiracion,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Persona no encontrada",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar la persona",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.ToPersonResponse(p),
	})
}

func scanPersonRows(rows *sql.Rows) []models.PersonResponse {
	personas := []models.PersonResponse{}
	for rows.Next() {
		var p models.Person
		err := rows.Scan(
			&p.ID,
			&p.Nombre,
			&p.Apellido,
			&p.Documento,
			&p.Rol,
			&p.Estado,
			&p.CodigoQR,
			&p.QRExpiracion,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			continue
		}
		personas = append(personas, models.ToPersonResponse(p))
	}
	return personas
}

func buildPersonFilters(c *fiber.Ctx, query string) (string, []interface{}) {
	args := []interface{}{}

	if rol := strings.ToUpper(c.Query("rol")); rol != "" && validPersonRol(rol) {
		query += " AND rol = ?"
		args = append(args, rol)
	}

	if estado := strings.ToUpper(c.Query("estado")); estado == models.EstadoActivo || estado == models.EstadoInactivo {
		query += " AND estado = ?"
		args = append(args, estado)
	}

	if search := c.Query("search"); search != "" {
		search = "%" + strings.TrimSpace(search) + "%"
		query += " AND (nombre LIKE ? OR apellido LIKE ? OR documento LIKE ?)"
		args = append(args, search, search, search)
	}

	return query, args
}

// GetAllPersons - Lista personas con filtros opcionales
func GetAllPersons(c *fiber.Ctx) error {
	query, args := buildPersonFilters(c, personaSelect+" WHERE 1=1")
	query += " ORDER BY created_at DESC"

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar las personas",
		})
	}
	defer rows.Close()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    scanPersonRows(rows),
	})
}

// GetAllPersonsPagination - Lista personas con paginación
func GetAllPersonsPagination(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	offset := (page - 1) * limit

	countQuery, countArgs := buildPersonFilters(c, "SELECT COUNT(*) FROM personas WHERE 1=1")

	var totalData int
	err := config.DB.QueryRow(countQuery, countArgs...).Scan(&totalData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo contar las personas",
		})
	}

	query, args := buildPersonFilters(c, personaSelect+" WHERE 1=1")
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar las personas",
		})
	}
	defer rows.Close()

	totalPages := (totalData + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    scanPersonRows(rows),
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_data":  totalData,
			"total_pages": totalPages,
		},
	})
}

// CreatePerson - Registra una persona nueva
func CreatePerson(c *fiber.Ctx) error {
	var req models.CreatePersonRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Nombre == "" || req.Apellido == "" || req.Documento == "" || req.Rol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nombre, apellido, documento y rol son obligatorios",
		})
	}

	req.Rol = strings.ToUpper(req.Rol)
	if !validPersonRol(req.Rol) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rol debe ser VISITANTE, ESTUDIANTE, PROFESOR o ADMINISTRATIVO",
		})
	}

	if req.Estado == "" {
		req.Estado = models.EstadoActivo
	}
	req.Estado = strings.ToUpper(req.Estado)
	if req.Estado != models.EstadoActivo && req.Estado != models.EstadoInactivo {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Estado debe ser ACTIVO o INACTIVO",
		})
	}

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM personas WHERE documento = ?", req.Documento).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo validar el documento",
		})
	}

	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Ya existe una persona con ese documento",
		})
	}

	query := `
		INSERT INTO personas (nombre, apellido, documento, rol, estado, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NOW(), NOW())
	`
	result, err := config.DB.Exec(query, req.Nombre, req.Apellido, req.Documento, req.Rol, req.Estado)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo crear la persona",
		})
	}

	id, _ := result.LastInsertId()

	var p models.Person
	config.DB.QueryRow(personaSelect+" WHERE id = ?", id).Scan(
		&p.ID,
		&p.Nombre,
		&p.Apellido,
		&p.Documento,
		&p.Rol,
		&p.Estado,
		&p.CodigoQR,
		&p.QRExpiracion,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Persona registrada correctamente",
		"data":    models.ToPersonResponse(p),
	})
}

// UpdatePerson - Actualización parcial de una persona
func UpdatePerson(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.UpdatePersonRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var exists int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM personas WHERE id = ?", id).Scan(&exists)
	if err != nil || exists == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Persona no encontrada",
		})
	}

	query := "UPDATE personas SET "
	args := []interface{}{}
	updates := []string{}

	if req.Nombre != "" {
		updates = append(updates, "nombre = ?")
		args = append(args, req.Nombre)
	}

	if req.Apellido != "" {
		updates = append(updates, "apellido = ?")
		args = append(args, req.Apellido)
	}

	if req.Documento != "" {
		var count int
		config.DB.QueryRow("SELECT COUNT(*) FROM personas WHERE documento = ? AND id != ?", req.Documento, id).Scan(&count)
		if count > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Ya existe una persona con ese documento",
			})
		}

		updates = append(updates, "documento = ?")
		args = append(args, req.Documento)
	}

	if req.Rol != "" {
		req.Rol = strings.ToUpper(req.Rol)
		if !validPersonRol(req.Rol) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Rol debe ser VISITANTE, ESTUDIANTE, PROFESOR o ADMINISTRATIVO",
			})
		}
		updates = append(updates, "rol = ?")
		args = append(args, req.Rol)
	}

	if req.Estado != "" {
		req.Estado = strings.ToUpper(req.Estado)
		if req.Estado != models.EstadoActivo && req.Estado != models.EstadoInactivo {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Estado debe ser ACTIVO o INACTIVO",
			})
		}
		updates = append(updates, "estado = ?")
		args = append(args, req.Estado)
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
			"error": "No se pudo actualizar la persona",
		})
	}

	var p models.Person
	config.DB.QueryRow(personaSelect+" WHERE id = ?", id).Scan(
		&p.ID,
		&p.Nombre,
		&p.Apellido,
		&p.Documento,
		&p.Rol,
		&p.Estado,
		&p.CodigoQR,
		&p.QRExpiracion,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Persona actualizada correctamente",
		"data":    models.ToPersonResponse(p),
	})
}

// DeletePerson - Elimina una persona y su historial de accesos
func DeletePerson(c *fiber.Ctx) error {
	id := c.Params("id")

	var exists int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM personas WHERE id = ?", id).Scan(&exists)
	if err != nil || exists == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Persona no encontrada",
		})
	}

	// Primero la bitácora por la FK
	_, err = config.DB.Exec("DELETE FROM registro_accesos WHERE persona_id = ?", id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo eliminar el historial de accesos",
		})
	}

	_, err = config.DB.Exec("DELETE FROM personas WHERE id = ?", id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo eliminar la persona",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Persona eliminada correctamente",
	})
}
