package models

import "time"

type ChatMessage struct {
	ID            int64     `json:"id"`
	UsuarioID     int64     `json:"usuario_id"`
	NombreUsuario string    `json:"nombre_usuario"`
	Mensaje       string    `json:"mensaje"`
	CreatedAt     time.Time `json:"created_at"`
}
