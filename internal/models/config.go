package models

type Config struct {
	ID           int64  `json:"id"`
	HoraApertura string `json:"hora_apertura"` // formato: "HH:MM:SS"
	HoraCierre   string `json:"hora_cierre"`   // formato: "HH:MM:SS"
}

type CreateConfigRequest struct {
	HoraApertura string `json:"hora_apertura" validate:"required"`
	HoraCierre   string `json:"hora_cierre" validate:"required"`
}

type UpdateConfigRequest struct {
	HoraApertura string `json:"hora_apertura" validate:"required"`
	HoraCierre   string `json:"hora_cierre" validate:"required"`
}
