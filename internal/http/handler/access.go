package handler

import (
	"database/sql"
	"errors"
	"log"
	"strings"

	"backend-huella/internal/access"
	"backend-huella/internal/config"
	"backend-huella/internal/helper"
	"backend-huella/internal/models"

	"github.com/gofiber/fiber/v2"
)

// OcupacionKey guarda en Redis cuántas personas están dentro del campus
// ahora mismo (ENTRADA incrementa, SALIDA decrementa).
const OcupacionKey = "huella:ocupacion"

// RegistrarAccesoRequest - Request para registrar entrada/salida
type RegistrarAccesoRequest struct {
	PersonaID int64  `json:"persona_id"`
	CodigoQR  string `json:"codigo_qr"`
	Ubicacion string `json:"ubicacion"`
}

// RegistrarAcceso - Agrega un registro a la bitácora. La dirección no
// la manda el guardia: se infiere del último registro de la persona.
func RegistrarAcceso(c *fiber.Ctx) error {
	var req RegistrarAccesoRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if req.PersonaID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "persona_id es obligatorio",
		})
	}

	result, err := accessSvc.RecordAccess(c.Context(), req.PersonaID, req.CodigoQR, req.Ubicacion)
	if errors.Is(err, access.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Visitante no encontrado",
		})
	}
	if errors.Is(err, access.ErrSinEntradaAbierta) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "La persona no tiene una entrada abierta",
		})
	}
	if err != nil {
		log.Printf("[accesos] error registrando acceso: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "No se pudo registrar el acceso",
		})
	}

	if result.Tipo == models.TipoEntrada {
		config.Redis.Incr(config.Ctx, OcupacionKey)
	} else {
		decrementarOcupacion()
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":          true,
		"message":          "Acceso registrado: " + result.Tipo,
		"data":             result,
		"fuera_de_horario": fueraDeHorario(),
	})
}

// decrementarOcupacion baja el contador sin dejarlo negativo (una
// salida automática puede llegar cuando el contador ya está en cero).
func decrementarOcupacion() {
	val, err := config.Redis.Decr(config.Ctx, OcupacionKey).Result()
	if err == nil && val < 0 {
		config.Redis.Set(config.Ctx, OcupacionKey, 0, 0)
	}
}

// fueraDeHorario es solo informativo; sin configuración devuelve false.
func fueraDeHorario() bool {
	var cfg models.Config
	err := config.DB.QueryRow("SELECT id, hora_apertura, hora_cierre FROM configs LIMIT 1").
		Scan(&cfg.ID, &cfg.HoraApertura, &cfg.HoraCierre)
	if err != nil {
		return false
	}
	return !helper.IsCampusOpen(cfg.HoraApertura, cfg.HoraCierre)
}

// GetOcupacion - Cuántas personas hay dentro ahora mismo
func GetOcupacion(c *fiber.Ctx) error {
	val, err := config.Redis.Get(config.Ctx, OcupacionKey).Int64()
	if err != nil {
		val = 0
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"ocupacion": val,
		},
	})
}

const accessListQuery = `
	SELECT r.id, r.persona_id, r.tipo, r.fecha_entrada, r.fecha_salida,
	       r.ubicacion, r.codigo_qr, r.created_at,
	       CONCAT(p.nombre, ' ', p.apellido) AS nombre_persona,
	       p.documento, p.rol
	FROM registro_accesos r
	JOIN personas p ON r.persona_id = p.id
	WHERE 1=1
`

func buildAccessFilters(c *fiber.Ctx, query string) (string, []interface{}) {
	args := []interface{}{}

	if personaID := c.Query("persona_id"); personaID != "" {
		query += " AND r.persona_id = ?"
		args = append(args, personaID)
	}

	if tipo := strings.ToUpper(c.Query("tipo")); tipo == models.TipoEntrada || tipo == models.TipoSalida {
		query += " AND r.tipo = ?"
		args = append(args, tipo)
	}

	if fechaInicio := c.Query("fecha_inicio"); fechaInicio != "" {
		query += " AND DATE(COALESCE(r.fecha_entrada, r.fecha_salida)) >= ?"
		args = append(args, fechaInicio)
	}

	if fechaFin := c.Query("fecha_fin"); fechaFin != "" {
		query += " AND DATE(COALESCE(r.fecha_entrada, r.fecha_salida)) <= ?"
		args = append(args, fechaFin)
	}

	return query, args
}

func scanAccessRows(rows *sql.Rows) []models.AccessRecordDetail {
	registros := []models.AccessRecordDetail{}
	for rows.Next() {
		var r models.AccessRecord
		var nombre, documento, rol string
		err := rows.Scan(
			&r.ID,
			&r.PersonaID,
			&r.Tipo,
			&r.FechaEntrada,
			&r.FechaSalida,
			&r.Ubicacion,
			&r.CodigoQR,
			&r.CreatedAt,
			&nombre,
			&documento,
			&rol,
		)
		if err != nil {
			continue
		}
		registros = append(registros, models.AccessRecordDetail{
			AccessRecordResponse: models.ToAccessRecordResponse(r),
			NombrePersona:        nombre,
			DocumentoPersona:     documento,
			RolPersona:           rol,
		})
	}
	return registros
}

// GetAccessRecords - Lista la bitácora con filtros opcionales
func GetAccessRecords(c *fiber.Ctx) error {
	query, args := buildAccessFilters(c, accessListQuery)
	query += " ORDER BY COALESCE(r.fecha_entrada, r.fecha_salida) DESC, r.id DESC"

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "No se pudo consultar la bitácora",
		})
	}
	defer rows.Close()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    scanAccessRows(rows),
	})
}

// GetAccessRecordsPagination - Bitácora con paginación
func GetAccessRecordsPagination(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	offset := (page - 1) * limit

	countQuery := `
		SELECT COUNT(*)
		FROM registro_accesos r
		JOIN personas p ON r.persona_id = p.id
		WHERE 1=1
	`
	countQuery, countArgs := buildAccessFilters(c, countQuery)

	var totalData int
	err := config.DB.QueryRow(countQuery, countArgs...).Scan(&totalData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "No se pudo contar los registros",
		})
	}

	query, args := buildAccessFilters(c, accessListQuery)
	query += " ORDER BY COALESCE(r.fecha_entrada, r.fecha_salida) DESC, r.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "No se pudo consultar la bitácora",
		})
	}
	defer rows.Close()

	totalPages := (totalData + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    scanAccessRows(rows),
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_data":  totalData,
			"total_pages": totalPages,
		},
	})
}
