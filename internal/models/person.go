package models

import (
	"database/sql"
	"time"
)

// Roles de persona
const (
	RolVisitante      = "VISITANTE"
	RolEstudiante     = "ESTUDIANTE"
	RolProfesor       = "PROFESOR"
	RolAdministrativo = "ADMINISTRATIVO"
)

// Estados de persona
const (
	EstadoActivo   = "ACTIVO"
	EstadoInactivo = "INACTIVO"
)

/*
|--------------------------------------------------------------------------
| DATABASE MODEL (INTERNAL)
|--------------------------------------------------------------------------
| Usado para consultas a la tabla personas
*/
type Person struct {
	ID           int64
	Nombre       string
	Apellido     string
	Documento    string
	Rol          string
	Estado       string
	CodigoQR     sql.NullString
	QRExpiracion sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
*/
type CreatePersonRequest struct {
	Nombre    string `json:"nombre" validate:"required,max=100"`
	Apellido  string `json:"apellido" validate:"required,max=100"`
	Documento string `json:"documento" validate:"required,max=20"`
	Rol       string `json:"rol" validate:"required,oneof=VISITANTE ESTUDIANTE PROFESOR ADMINISTRATIVO"`
	Estado    string `json:"estado" validate:"omitempty,oneof=ACTIVO INACTIVO"`
}

type UpdatePersonRequest struct {
	Nombre    string `json:"nombre" validate:"omitempty,max=100"`
	Apellido  string `json:"apellido" validate:"omitempty,max=100"`
	Documento string `json:"documento" validate:"omitempty,max=20"`
	Rol       string `json:"rol" validate:"omitempty,oneof=VISITANTE ESTUDIANTE PROFESOR ADMINISTRATIVO"`
	Estado    string `json:"estado" validate:"omitempty,oneof=ACTIVO INACTIVO"`
}

/*
|--------------------------------------------------------------------------
| RESPONSE DTO
|--------------------------------------------------------------------------
| Usado para la respuesta del API (codigo_qr y expiración pueden ser null)
*/
type PersonResponse struct {
	ID           int64      `json:"id"`
	Nombre       string     `json:"nombre"`
	Apellido     string     `json:"apellido"`
	Documento    string     `json:"documento"`
	Rol          string     `json:"rol"`
	Estado       string     `json:"estado"`
	CodigoQR     *string    `json:"codigo_qr"`
	QRExpiracion *time.Time `json:"qr_expiracion"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

/*
|--------------------------------------------------------------------------
| MAPPER
|--------------------------------------------------------------------------
| Convierte Person (DB) -> PersonResponse (API)
*/
func ToPersonResponse(p Person) PersonResponse {
	var codigo *string
	var expiracion *time.Time

	if p.CodigoQR.Valid {
		codigo = &p.CodigoQR.String
	}
	if p.QRExpiracion.Valid {
		expiracion = &p.QRExpiracion.Time
	}

	return PersonResponse{
		ID:           p.ID,
		Nombre:       p.Nombre,
		Apellido:     p.Apellido,
		Documento:    p.Documento,
		Rol:          p.Rol,
		Estado:       p.Estado,
		CodigoQR:     codigo,
		QRExpiracion: expiracion,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
