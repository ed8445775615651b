package handler

import (
	"errors"
	"log"
	"strconv"

	"backend-huella/internal/access"
	"backend-huella/internal/config"

	"github.com/gofiber/fiber/v2"
)

var accessSvc *access.Service

// InitAccessService se llama desde main después de InitDB.
func InitAccessService() {
	svc := access.NewService(access.NewMySQLStore(config.DB))
	svc.StrictSalida = config.GetEnv("ACCESS_STRICT_SALIDA", "n") == "y"
	accessSvc = svc
}

// GenerarQR - Emite una credencial QR nueva para un visitante.
// La vigencia por defecto es 24 horas; horas/minutos solo se toman del
// body cuando vienen presentes.
func GenerarQR(c *fiber.Ctx) error {
	personaID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || personaID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "ID de persona inválido",
		})
	}

	var req struct {
		Horas   *int `json:"horas"`
		Minutos *int `json:"minutos"`
	}
	// Body vacío es válido: aplica el default de 24 horas
	_ = c.BodyParser(&req)

	horas := 24
	minutos := 0
	if req.Horas != nil {
		horas = *req.Horas
	}
	if req.Minutos != nil {
		minutos = *req.Minutos
	}

	result, err := accessSvc.IssueCredential(c.Context(), personaID, horas, minutos)
	if errors.Is(err, access.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Visitante no encontrado o inactivo",
		})
	}
	if err != nil {
		log.Printf("[qr] error generando credencial: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "No se pudo generar el código QR",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Código QR generado con vigencia de " + result.Vigencia,
		"data":    result,
	})
}

// ValidarQR - Resuelve un código escaneado y decide su validez. Si la
// credencial venció con una ENTRADA abierta, el motor registra la
// salida automática.
func ValidarQR(c *fiber.Ctx) error {
	var req struct {
		Codigo string `json:"codigo"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	result, err := accessSvc.ValidateCredential(c.Context(), req.Codigo)
	if errors.Is(err, access.ErrCodigoRequerido) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "El código es obligatorio",
		})
	}
	if err != nil {
		log.Printf("[qr] error validando codigo: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "No se pudo validar el código QR",
		})
	}

	if result.SalidaAutomatica {
		log.Printf("[qr] salida automática registrada para código %s", req.Codigo)
		decrementarOcupacion()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}
