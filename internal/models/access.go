package models

import (
	"database/sql"
	"time"
)

// Tipos de registro en la bitácora de accesos
const (
	TipoEntrada = "ENTRADA"
	TipoSalida  = "SALIDA"
)

type AccessRecord struct {
	ID           int64
	PersonaID    int64
	Tipo         string // ENTRADA | SALIDA
	FechaEntrada sql.NullTime
	FechaSalida  sql.NullTime
	Ubicacion    string
	CodigoQR     sql.NullString
	CreatedAt    time.Time
}

type AccessRecordResponse struct {
	ID           int64      `json:"id"`
	PersonaID    int64      `json:"persona_id"`
	Tipo         string     `json:"tipo"`
	FechaEntrada *time.Time `json:"fecha_entrada"`
	FechaSalida  *time.Time `json:"fecha_salida"`
	Ubicacion    string     `json:"ubicacion"`
	CodigoQR     *string    `json:"codigo_qr"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AccessRecordDetail agrega los datos de la persona para los listados.
type AccessRecordDetail struct {
	AccessRecordResponse
	NombrePersona    string `json:"nombre_persona"`
	DocumentoPersona string `json:"documento_persona"`
	RolPersona       string `json:"rol_persona"`
}

func ToAccessRecordResponse(r AccessRecord) AccessRecordResponse {
	var entrada, salida *time.Time
	var codigo *string

	if r.FechaEntrada.Valid {
		entrada = &r.FechaEntrada.Time
	}
	if r.FechaSalida.Valid {
		salida = &r.FechaSalida.Time
	}
	if r.CodigoQR.Valid {
		codigo = &r.CodigoQR.String
	}

	return AccessRecordResponse{
		ID:           r.ID,
		PersonaID:    r.PersonaID,
		Tipo:         r.Tipo,
		FechaEntrada: entrada,
		FechaSalida:  salida,
		Ubicacion:    r.Ubicacion,
		CodigoQR:     codigo,
		CreatedAt:    r.CreatedAt,
	}
}
