package access

import (
	"context"
	"errors"
	"time"

	"backend-huella/internal/models"
)

var (
	// ErrNotFound cubre visitante inexistente, con otro rol, inactivo
	// (emisión) o código QR desconocido.
	ErrNotFound = errors.New("no encontrado")

	// ErrCodigoRequerido se devuelve antes de tocar el store.
	ErrCodigoRequerido = errors.New("codigo requerido")

	// ErrSinEntradaAbierta solo aplica en modo estricto: se infirió una
	// SALIDA pero la persona no tiene una ENTRADA abierta.
	ErrSinEntradaAbierta = errors.New("no hay una entrada abierta para la persona")
)

// Store es el contrato de persistencia del motor de credenciales y
// bitácora. La implementación real va contra MySQL; los tests usan una
// implementación en memoria.
type Store interface {
	// FindActiveVisitor busca una persona con rol VISITANTE y estado
	// ACTIVO. ErrNotFound si no cumple las tres condiciones.
	FindActiveVisitor(ctx context.Context, id int64) (*models.Person, error)

	// FindVisitor busca una persona con rol VISITANTE, sin filtrar por
	// estado. ErrNotFound si no existe o no es visitante.
	FindVisitor(ctx context.Context, id int64) (*models.Person, error)

	// UpdateCredential sobreescribe codigo_qr y qr_expiracion de la
	// persona, invalidando cualquier credencial anterior.
	UpdateCredential(ctx context.Context, personaID int64, codigo string, expiracion time.Time) error

	// FindVisitorByCode resuelve un código QR al visitante que lo porta.
	FindVisitorByCode(ctx context.Context, codigo string) (*models.Person, error)

	// FindOpenEntrance devuelve la ENTRADA abierta de la persona: su
	// fila más reciente cuando es una ENTRADA sin fecha_salida.
	// ErrNotFound en cualquier otro caso.
	FindOpenEntrance(ctx context.Context, personaID int64) (*models.AccessRecord, error)

	// InsertRecord agrega exactamente una fila a la bitácora y devuelve
	// su id. Nunca modifica filas existentes.
	InsertRecord(ctx context.Context, rec *models.AccessRecord) (int64, error)

	// FindLatestRecord devuelve la fila más reciente de la persona según
	// COALESCE(fecha_entrada, fecha_salida) DESC con desempate por id
	// DESC, o ErrNotFound si no hay filas.
	FindLatestRecord(ctx context.Context, personaID int64) (*models.AccessRecord, error)
}
