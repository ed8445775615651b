package helper

import (
	"database/sql"
	"errors"

	"backend-huella/internal/config"
)

var (
	ErrUserNotFound = errors.New("usuario no encontrado")
	ErrUserBlocked  = errors.New("usuario bloqueado")
	ErrInvalidRole  = errors.New("rol no permitido")
)

// CheckUserRoleByID revalida al usuario contra la base: un token JWT
// vigente puede pertenecer a un usuario ya bloqueado o eliminado.
func CheckUserRoleByID(userID int64, allowedRoles ...string) error {
	var rol, bloqueado string

	query := "SELECT rol, bloqueado FROM usuarios WHERE id = ?"
	err := config.DB.QueryRow(query, userID).Scan(&rol, &bloqueado)

	if err == sql.ErrNoRows {
		return ErrUserNotFound
	}

	if err != nil {
		return err
	}

	if bloqueado == "y" {
		return ErrUserBlocked
	}

	for _, allowedRole := range allowedRoles {
		if rol == allowedRole {
			return nil
		}
	}

	return ErrInvalidRole
}
