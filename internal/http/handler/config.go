package handler

import (
	"database/sql"
	"regexp"

	"backend-huella/internal/config"
	"backend-huella/internal/helper"
	"backend-huella/internal/models"

	"github.com/gofiber/fiber/v2"
)

var horaRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9]$`)

func GetConfig(c *fiber.Ctx) error {
	var cfg models.Config
	query := "SELECT id, hora_apertura, hora_cierre FROM configs LIMIT 1"

	err := config.DB.QueryRow(query).Scan(
		&cfg.ID,
		&cfg.HoraApertura,
		&cfg.HoraCierre,
	)

	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "El horario de visitas no está configurado",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar la configuración",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    cfg,
	})
}

// GetConfigEstado - Indica si el campus está dentro del horario de
// visitas en este momento
func GetConfigEstado(c *fiber.Ctx) error {
	var cfg models.Config
	err := config.DB.QueryRow("SELECT id, hora_apertura, hora_cierre FROM configs LIMIT 1").Scan(
		&cfg.ID,
		&cfg.HoraApertura,
		&cfg.HoraCierre,
	)

	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "El horario de visitas no está configurado",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar la configuración",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"abierto":       helper.IsCampusOpen(cfg.HoraApertura, cfg.HoraCierre),
			"hora_apertura": cfg.HoraApertura,
			"hora_cierre":   cfg.HoraCierre,
		},
	})
}

// CreateConfig - Crea el horario de visitas (solo si no existe)
func CreateConfig(c *fiber.Ctx) error {
	var req models.CreateConfigRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.HoraApertura == "" || req.HoraCierre == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Hora de apertura y de cierre son obligatorias",
		})
	}

	if !horaRegex.MatchString(req.HoraApertura) || !horaRegex.MatchString(req.HoraCierre) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "El formato de hora debe ser HH:MM:SS (ejemplo: 08:00:00)",
		})
	}

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM configs").Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo validar la configuración",
		})
	}

	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "La configuración ya existe, use update para modificarla",
		})
	}

	query := "INSERT INTO configs (hora_apertura, hora_cierre) VALUES (?, ?)"
	result, err := config.DB.Exec(query, req.HoraApertura, req.HoraCierre)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo crear la configuración",
		})
	}

	id, _ := result.LastInsertId()

	var cfg models.Config
	config.DB.QueryRow(
		"SELECT id, hora_apertura, hora_cierre FROM configs WHERE id = ?",
		id,
	).Scan(&cfg.ID, &cfg.HoraApertura, &cfg.HoraCierre)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Configuración creada correctamente",
		"data":    cfg,
	})
}

// UpdateConfig - Actualiza el horario de visitas existente
func UpdateConfig(c *fiber.Ctx) error {
	var req models.UpdateConfigRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.HoraApertura == "" || req.HoraCierre == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Hora de apertura y de cierre son obligatorias",
		})
	}

	if !horaRegex.MatchString(req.HoraApertura) || !horaRegex.MatchString(req.HoraCierre) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "El formato de hora debe ser HH:MM:SS (ejemplo: 08:00:00)",
		})
	}

	var configID int64
	err := config.DB.QueryRow("SELECT id FROM configs LIMIT 1").Scan(&configID)
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "La configuración no existe, créela primero",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar la configuración",
		})
	}

	query := "UPDATE configs SET hora_apertura = ?, hora_cierre = ? WHERE id = ?"
	_, err = config.DB.Exec(query, req.HoraApertura, req.HoraCierre, configID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo actualizar la configuración",
		})
	}

	var cfg models.Config
	config.DB.QueryRow(
		"SELECT id, hora_apertura, hora_cierre FROM configs WHERE id = ?",
		configID,
	).Scan(&cfg.ID, &cfg.HoraApertura, &cfg.HoraCierre)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Configuración actualizada correctamente",
		"data":    cfg,
	})
}
