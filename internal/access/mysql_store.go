package access

import (
	"context"
	"database/sql"
	"time"

	"backend-huella/internal/models"
)

// MySQLStore implementa Store sobre las tablas personas y
// registro_accesos. Cada método es una sentencia independiente.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

const personaColumns = `id, nombre, apellido, documento, rol, estado, codigo_qr, qr_expiracion, created_at, updated_at`

func scanPersona(row *sql.Row) (*models.Person, error) {
	var p models.Person
	err := row.Scan(
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
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MySQLStore) FindActiveVisitor(ctx context.Context, id int64) (*models.Person, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+personaColumns+`
		FROM personas
		WHERE id = ? AND rol = ? AND estado = ?
	`, id, models.RolVisitante, models.EstadoActivo)
	return scanPersona(row)
}

func (s *MySQLStore) FindVisitor(ctx context.Context, id int64) (*models.Person, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+personaColumns+`
		FROM personas
		WHERE id = ? AND rol = ?
	`, id, models.RolVisitante)
	return scanPersona(row)
}

func (s *MySQLStore) UpdateCredential(ctx context.Context, personaID int64, codigo string, expiracion time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE personas
		SET codigo_qr = ?, qr_expiracion = ?, updated_at = NOW()
		WHERE id = ?
	`, codigo, expiracion, personaID)
	return err
}

func (s *MySQLStore) FindVisitorByCode(ctx context.Context, codigo string) (*models.Person, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+personaColumns+`
		FROM personas
		WHERE codigo_qr = ? AND rol = ?
	`, codigo, models.RolVisitante)
	return scanPersona(row)
}

const registroColumns = `id, persona_id, tipo, fecha_entrada, fecha_salida, ubicacion, codigo_qr, created_at`

func scanRegistro(row *sql.Row) (*models.AccessRecord, error) {
	var r models.AccessRecord
	err := row.Scan(
		&r.ID,
		&r.PersonaID,
		&r.Tipo,
		&r.FechaEntrada,
		&r.FechaSalida,
		&r.Ubicacion,
		&r.CodigoQR,
		&r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindOpenEntrance devuelve la fila más reciente solo si es una
// ENTRADA sin cerrar. Una SALIDA de cierre lleva la misma
// fecha_entrada que su ENTRADA y desempata por id, así que al
// insertarla la entrada deja de estar abierta.
func (s *MySQLStore) FindOpenEntrance(ctx context.Context, personaID int64) (*models.AccessRecord, error) {
	rec, err := s.FindLatestRecord(ctx, personaID)
	if err != nil {
		return nil, err
	}
	if rec.Tipo != models.TipoEntrada || rec.FechaSalida.Valid {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *MySQLStore) InsertRecord(ctx context.Context, rec *models.AccessRecord) (int64, error) {
	rec.CreatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO registro_accesos
		(persona_id, tipo, fecha_entrada, fecha_salida, ubicacion, codigo_qr, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.PersonaID, rec.Tipo, rec.FechaEntrada, rec.FechaSalida, rec.Ubicacion, rec.CodigoQR, rec.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *MySQLStore) FindLatestRecord(ctx context.Context, personaID int64) (*models.AccessRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registroColumns+`
		FROM registro_accesos
		WHERE persona_id = ?
		ORDER BY COALESCE(fecha_entrada, fecha_salida) DESC, id DESC
		LIMIT 1
	`, personaID)
	return scanRegistro(row)
}
