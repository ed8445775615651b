package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"backend-huella/internal/models"
)

// memStore implementa Store en memoria para probar el motor sin MySQL.
type memStore struct {
	personas  map[int64]*models.Person
	registros []*models.AccessRecord
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{personas: map[int64]*models.Person{}}
}

func (m *memStore) addPersona(p models.Person) {
	cp := p
	m.personas[p.ID] = &cp
}

func (m *memStore) FindActiveVisitor(ctx context.Context, id int64) (*models.Person, error) {
	p, ok := m.personas[id]
	if !ok || p.Rol != models.RolVisitante || p.Estado != models.EstadoActivo {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) FindVisitor(ctx context.Context, id int64) (*models.Person, error) {
	p, ok := m.personas[id]
	if !ok || p.Rol != models.RolVisitante {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateCredential(ctx context.Context, personaID int64, codigo string, expiracion time.Time) error {
	p, ok := m.personas[personaID]
	if !ok {
		return fmt.Errorf("persona %d no existe", personaID)
	}
	p.CodigoQR = sql.NullString{String: codigo, Valid: true}
	p.QRExpiracion = sql.NullTime{Time: expiracion, Valid: true}
	return nil
}

func (m *memStore) FindVisitorByCode(ctx context.Context, codigo string) (*models.Person, error) {
	for _, p := range m.personas {
		if p.Rol == models.RolVisitante && p.CodigoQR.Valid && p.CodigoQR.String == codigo {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func recKey(r *models.AccessRecord) time.Time {
	if r.FechaEntrada.Valid {
		return r.FechaEntrada.Time
	}
	return r.FechaSalida.Time
}

func (m *memStore) FindLatestRecord(ctx context.Context, personaID int64) (*models.AccessRecord, error) {
	var latest *models.AccessRecord
	for _, r := range m.registros {
		if r.PersonaID != personaID {
			continue
		}
		if latest == nil ||
			recKey(r).After(recKey(latest)) ||
			(recKey(r).Equal(recKey(latest)) && r.ID > latest.ID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) FindOpenEntrance(ctx context.Context, personaID int64) (*models.AccessRecord, error) {
	rec, err := m.FindLatestRecord(ctx, personaID)
	if err != nil {
		return nil, err
	}
	if rec.Tipo != models.TipoEntrada || rec.FechaSalida.Valid {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (m *memStore) InsertRecord(ctx context.Context, rec *models.AccessRecord) (int64, error) {
	m.nextID++
	cp := *rec
	cp.ID = m.nextID
	cp.CreatedAt = time.Now()
	m.registros = append(m.registros, &cp)
	return cp.ID, nil
}

func (m *memStore) registrosDe(personaID int64) []*models.AccessRecord {
	var out []*models.AccessRecord
	for _, r := range m.registros {
		if r.PersonaID == personaID {
			out = append(out, r)
		}
	}
	return out
}

// ── Armado de pruebas ────────────────────────────────────────────────────────

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var t0 = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memStore, *fakeClock) {
	store := newMemStore()
	clk := &fakeClock{t: t0}
	svc := NewService(store)
	svc.now = clk.Now
	return svc, store, clk
}

func addVisitante(store *memStore, id int64, documento string) {
	store.addPersona(models.Person{
		ID:        id,
		Nombre:    "Valeria",
		Apellido:  "Rojas",
		Documento: documento,
		Rol:       models.RolVisitante,
		Estado:    models.EstadoActivo,
	})
}

// ── Registro de accesos ──────────────────────────────────────────────────────

func TestRecordAccess_PrimerRegistroEsEntrada(t *testing.T) {
	svc, store, _ := newTestService()
	addVisitante(store, 1, "123")

	res, err := svc.RecordAccess(context.Background(), 1, "", "")
	if err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}

	if res.Tipo != models.TipoEntrada {
		t.Errorf("esperaba ENTRADA, obtuvo %s", res.Tipo)
	}
	if res.Registro.FechaEntrada == nil || !res.Registro.FechaEntrada.Equal(t0) {
		t.Errorf("esperaba fecha_entrada=%v, obtuvo %v", t0, res.Registro.FechaEntrada)
	}
	if res.Registro.FechaSalida != nil {
		t.Error("una ENTRADA no debe llevar fecha_salida")
	}
	if res.Registro.Ubicacion != UbicacionDefault {
		t.Errorf("esperaba ubicación %q, obtuvo %q", UbicacionDefault, res.Registro.Ubicacion)
	}
}

func TestRecordAccess_AlternanciaEstricta(t *testing.T) {
	svc, store, clk := newTestService()
	addVisitante(store, 1, "123")

	esperados := []string{
		models.TipoEntrada,
		models.TipoSalida,
		models.TipoEntrada,
		models.TipoSalida,
		models.TipoEntrada,
	}

	for i, esperado := range esperados {
		res, err := svc.RecordAccess(context.Background(), 1, "", "Norte")
		if err != nil {
			t.Fatalf("registro %d: %v", i, err)
		}
		if res.Tipo != esperado {
			t.Fatalf("registro %d: esperaba %s, obtuvo %s", i, esperado, res.Tipo)
		}
		clk.Advance(10 * time.Minute)
	}

	if n := len(store.registrosDe(1)); n != len(esperados) {
		t.Errorf("esperaba %d filas, hay %d", len(esperados), n)
	}
}

func TestRecordAccess_SalidaRecuperaEntradaAbierta(t *testing.T) {
	svc, store, clk := newTestService()
	addVisitante(store, 1, "123")

	if _, err := svc.RecordAccess(context.Background(), 1, "", ""); err != nil {
		t.Fatalf("entrada: %v", err)
	}

	clk.Advance(2 * time.Hour)
	res, err := svc.RecordAccess(context.Background(), 1, "", "")
	if err != nil {
		t.Fatalf("salida: %v", err)
	}

	if res.Tipo != models.TipoSalida {
		t.Fatalf("esperaba SALIDA, obtuvo %s", res.Tipo)
	}
	if res.Registro.FechaEntrada == nil || !res.Registro.FechaEntrada.Equal(t0) {
		t.Errorf("la SALIDA debe llevar la entrada original %v, obtuvo %v", t0, res.Registro.FechaEntrada)
	}
	if res.Registro.FechaSalida == nil || !res.Registro.FechaSalida.Equal(t0.Add(2*time.Hour)) {
		t.Errorf("fecha_salida incorrecta: %v", res.Registro.FechaSalida)
	}
}

func TestRecordAccess_SalidaSinEntradaAbierta_Permisivo(t *testing.T) {
	svc, store, clk := newTestService()
	addVisitante(store, 1, "123")

	// Deja la bitácora con una SALIDA cerrada seguida de una ENTRADA
	// fabricada ya cerrada, para forzar la inferencia de SALIDA sin
	// entrada abierta.
	store.InsertRecord(context.Background(), &models.AccessRecord{
		PersonaID:    1,
		Tipo:         models.TipoEntrada,
		FechaEntrada: sql.NullTime{Time: t0.Add(-time.Hour), Valid: true},
		FechaSalida:  sql.NullTime{Time: t0.Add(-30 * time.Minute), Valid: true},
		Ubicacion:    UbicacionDefault,
	})

	clk.Advance(time.Hour)
	res, err := svc.RecordAccess(context.Background(), 1, "", "")
	if err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}

	if res.Tipo != models.TipoSalida {
		t.Fatalf("esperaba SALIDA, obtuvo %s", res.Tipo)
	}
	// Modo permisivo: entrada = ahora, visita de duración cero
	ahora := t0.Add(time.Hour)
	if res.Registro.FechaEntrada == nil || !res.Registro.FechaEntrada.Equal(ahora) {
		t.Errorf("esperaba fecha_entrada=%v (fallback), obtuvo %v", ahora, res.Registro.FechaEntrada)
	}
	if res.Registro.FechaSalida == nil || !res.Registro.FechaSalida.Equal(ahora) {
		t.Errorf("esperaba fecha_salida=%v, obtuvo %v", ahora, res.Registro.FechaSalida)
	}
}

func TestRecordAccess_SalidaSinEntradaAbierta_Estricto(t *testing.T) {
	svc, store, _ := newTestService()
	svc.StrictSalida = true
	addVisitante(store, 1, "123")

	store.InsertRecord(context.Background(), &models.AccessRecord{
		PersonaID:    1,
		Tipo:         models.TipoEntrada,
		FechaEntrada: sql.NullTime{Time: t0.Add(-time.Hour), Valid: true},
		FechaSalida:  sql.NullTime{Time: t0.Add(-30 * time.Minute), Valid: true},
		Ubicacion:    UbicacionDefault,
	})

	antes := len(store.registrosDe(1))
	_, err := svc.RecordAccess(context.Background(), 1, "", "")
	if !errors.Is(err, ErrSinEntradaAbierta) {
		t.Fatalf("esperaba ErrSinEntradaAbierta, obtuvo %v", err)
	}
	if len(store.registrosDe(1)) != antes {
		t.Error("el modo estricto no debe insertar filas")
	}
}

func TestRecordAccess_TipoDesconocidoInfiereEntrada(t *testing.T) {
	svc, store, _ := newTestService()
	addVisitante(store, 1, "123")

	// Una fila con tipo corrupto no debe romper la inferencia
	store.InsertRecord(context.Background(), &models.AccessRecord{
		PersonaID:    1,
		Tipo:         "DESCONOCIDO",
		FechaEntrada: sql.NullTime{Time: t0.Add(-time.Hour), Valid: true},
		Ubicacion:    UbicacionDefault,
	})

	res, err := svc.RecordAccess(context.Background(), 1, "", "")
	if err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}
	if res.Tipo != models.TipoEntrada {
		t.Errorf("tipo no reconocido debe inferir ENTRADA, obtuvo %s", res.Tipo)
	}
}

func TestRecordAccess_VisitanteInexistente(t *testing.T) {
	svc, store, _ := newTestService()

	// Persona con otro rol tampoco cuenta
	store.addPersona(models.Person{ID: 2, Rol: models.RolEstudiante, Estado: models.EstadoActivo})

	if _, err := svc.RecordAccess(context.Background(), 1, "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("persona inexistente: esperaba ErrNotFound, obtuvo %v", err)
	}
	if _, err := svc.RecordAccess(context.Background(), 2, "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("rol no visitante: esperaba ErrNotFound, obtuvo %v", err)
	}
}

// ── Emisión de credenciales ──────────────────────────────────────────────────

func TestIssueCredential_CodigoYExpiracion(t *testing.T) {
	svc, store, _ := newTestService()
	addVisitante(store, 1, "123")

	res, err := svc.IssueCredential(context.Background(), 1, 1, 30)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}

	esperado := fmt.Sprintf("QR-123-%d", t0.UnixMilli())
	if res.Codigo != esperado {
		t.Errorf("esperaba código %q, obtuvo %q", esperado, res.Codigo)
	}
	if !res.Expiracion.Equal(t0.Add(90 * time.Minute)) {
		t.Errorf("esperaba expiración %v, obtuvo %v", t0.Add(90*time.Minute), res.Expiracion)
	}
	if res.Vigencia != "1 hora y 30 minutos" {
		t.Errorf("vigencia inesperada: %q", res.Vigencia)
	}

	// La credencial queda guardada en la persona
	p := store.personas[1]
	if !p.CodigoQR.Valid || p.CodigoQR.String != esperado {
		t.Errorf("el store no guardó el código: %+v", p.CodigoQR)
	}
}

func TestIssueCredential_ValoresNegativosSeAnulan(t *testing.T) {
	svc, store, _ := newTestService()
	addVisitante(store, 1, "123")

	res, err := svc.IssueCredential(context.Background(), 1, -5, -10)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	if !res.Expiracion.Equal(t0) {
		t.Errorf("horas/minutos negativos deben coercer a 0, expiración %v", res.Expiracion)
	}
}

func TestIssueCredential_RechazaNoVisitanteActivo(t *testing.T) {
	svc, store, _ := newTestService()

	store.addPersona(models.Person{ID: 1, Documento: "1", Rol: models.RolProfesor, Estado: models.EstadoActivo})
	store.addPersona(models.Person{ID: 2, Documento: "2", Rol: models.RolVisitante, Estado: models.EstadoInactivo})

	casos := []int64{1, 2, 99}
	for _, id := range casos {
		if _, err := svc.IssueCredential(context.Background(), id, 24, 0); !errors.Is(err, ErrNotFound) {
			t.Errorf("persona %d: esperaba ErrNotFound, obtuvo %v", id, err)
		}
	}
}

func TestIssueCredential_SobrescribeCredencialAnterior(t *testing.T) {
	svc, store, clk := newTestService()
	addVisitante(store, 1, "123")

	primera, err := svc.IssueCredential(context.Background(), 1, 24, 0)
	if err != nil {
		t.Fatalf("primera emisión: %v", err)
	}

	clk.Advance(time.Minute)
	segunda, err := svc.IssueCredential(context.Background(), 1, 24, 0)
	if err != nil {
		t.Fatalf("segunda emisión: %v", err)
	}

	if primera.Codigo == segunda.Codigo {
		t.Fatal("la segunda emisión debe generar un código distinto")
	}

	// El código viejo deja de resolver
	res, err := svc.ValidateCredential(context.Background(), primera.Codigo)
	if err != nil {
		t.Fatalf("ValidateCredential: %v", err)
	}
	if res.Valido || res.Razon != RazonNoEncontrado {
		t.Errorf("el código anterior debería ser inválido/no encontrado, obtuvo %+v", res)
	}
}

// ── Validación de credenciales ───────────────────────────────────────────────

func TestValidateCredential_CodigoVacio(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.ValidateCredential(context.Background(), "  "); !errors.Is(err, ErrCodigoRequerido) {
		t.Errorf("esperaba ErrCodigoRequerido, obtuvo %v", err)
	}
}

func TestValidateCredential_NoEncontrado(t *testing.T) {
	svc, _, _ := newTestService()

	res, err := svc.ValidateCredential(context.Background(), "QR-999-1")
	if err != nil {
		t.Fatalf("ValidateCredential: %v", err)
	}
	if res.Valido || res.Razon != RazonNoEncontrado {
		t.Errorf("esperaba inválido/no encontrado, obtuvo %+v", res)
	}
}

func TestValidateCredential_VigenteConHorasRestantes(t *testing.T) {
	svc, store, clk := newTestService()
	addVisitante(store, 1, "123")

	issued, err := svc.IssueCredential(context.Background(), 1, 1, 30)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}

	// A los 10 minutos quedan 80: redondea a 1 hora
	clk.Advance(10 * time.Minute)
	res, err := svc.ValidateCredential(context.Background(), issued.Codigo)
	if err != nil {
		t.Fatalf("ValidateCredential: %v", err)
	}

	if !res.Valido {
		t.Fatalf("esperaba válido, obtuvo %+v", res)
	}
	if res.HorasRestantes == nil || *res.HorasRestantes != 1 {
		t.Errorf("esperaba 1 hora restante, obtuvo %v", res.HorasRestantes)
	}
	if res.Persona == nil || res.Persona.Documento != "123" {
		t.Errorf("la respuesta debe incluir la persona, obtuvo %+v", res.Persona)
	}
}

func TestValidateCredential_PersonaInactivaSinMutacion(t *testing.T) {
	svc, store, _ := newTestService()
	addVisitante(store, 1, "123")

	issued, err := svc.IssueCredential(context.Background(), 1, 24, 0)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}

	store.personas[1].Estado = models.EstadoInactivo

	res, err := svc.ValidateCredential(context.Background(), issued.Codigo)
	if err != nil {
		t.Fatalf("ValidateCredential: %v", err)
	}

	if res.Valido {
		t.Fatal("una persona inactiva no debe validar")
	}
	if res.Razon != "persona INACTIVO" {
		t.Errorf("la razón debe llevar el estado, obtuvo %q", res.Razon)
	}
	if len(store.registrosDe(1)) != 0 {
		t.Error("este camino no debe tocar la bitácora")
	}
	if !store.personas[1].QRExpiracion.Time.Equal(t0.Add(24 * time.Hour)) {
		t.Error("este camino no debe tocar la expiración")
	}
}

func TestValidateCredential_ExpiradaConSalidaAutomatica(t *testing.T) {
	svc, store, clk := newTestService()
	addVisitante(store, 1, "123")

	issued, err := svc.IssueCredential(context.Background(), 1, 1, 30)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}

	// Entrada abierta a los 5 minutos
	clk.Advance(5 * time.Minute)
	if _, err := svc.RecordAccess(context.Background(), 1, issued.Codigo, ""); err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}
	entrada := t0.Add(5 * time.Minute)

	// A las 2 horas la credencial ya venció
	clk.Advance(115 * time.Minute)
	deteccion := t0.Add(2 * time.Hour)

	res, err := svc.ValidateCredential(context.Background(), issued.Codigo)
	if err != nil {
		t.Fatalf("ValidateCredential: %v", err)
	}

	if res.Valido || res.Razon != RazonExpirado {
		t.Fatalf("esperaba inválido/expirado, obtuvo %+v", res)
	}
	if !res.SalidaAutomatica {
		t.Fatal("esperaba salida automática")
	}
	if res.FechaEntrada == nil || !res.FechaEntrada.Equal(entrada) {
		t.Errorf("esperaba entrada %v, obtuvo %v", entrada, res.FechaEntrada)
	}
	if res.FechaSalida == nil || !res.FechaSalida.Equal(deteccion) {
		t.Errorf("esperaba salida %v, obtuvo %v", deteccion, res.FechaSalida)
	}
	if res.ExpiracionPrevia == nil || !res.ExpiracionPrevia.Equal(t0.Add(90*time.Minute)) {
		t.Errorf("expiración prevista incorrecta: %v", res.ExpiracionPrevia)
	}

	// La SALIDA sintetizada cierra la visita en la bitácora
	registros := store.registrosDe(1)
	if len(registros) != 2 {
		t.Fatalf("esperaba 2 filas (ENTRADA + SALIDA), hay %d", len(registros))
	}
	salida := registros[1]
	if salida.Tipo != models.TipoSalida {
		t.Fatalf("esperaba SALIDA, obtuvo %s", salida.Tipo)
	}
	if !salida.FechaEntrada.Time.Equal(entrada) || !salida.FechaSalida.Time.Equal(deteccion) {
		t.Errorf("la SALIDA debe llevar entrada=%v salida=%v, obtuvo %+v", entrada, deteccion, salida)
	}

	// Lápida: la expiración queda en la hora de detección
	if !store.personas[1].QRExpiracion.Time.Equal(deteccion) {
		t.Errorf("esperaba lápida en %v, obtuvo %v", deteccion, store.personas[1].QRExpiracion.Time)
	}
}

func TestValidateCredential_ExpiradaEsIdempotente(t *testing.T) {
	svc, store, clk := newTestService()
	addVisitante(store, 1, "123")

	issued, err := svc.IssueCredential(context.Background(), 1, 0, 30)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	if _, err := svc.RecordAccess(context.Background(), 1, issued.Codigo, ""); err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}

	clk.Advance(time.Hour)

	primera, err := svc.ValidateCredential(context.Background(), issued.Codigo)
	if err != nil {
		t.Fatalf("primera validación: %v", err)
	}
	if !primera.SalidaAutomatica {
		t.Fatal("la primera validación debe cerrar la visita")
	}

	clk.Advance(time.Minute)
	segunda, err := svc.ValidateCredential(context.Background(), issued.Codigo)
	if err != nil {
		t.Fatalf("segunda validación: %v", err)
	}
	if segunda.Valido || segunda.Razon != RazonExpirado {
		t.Fatalf("la segunda validación sigue siendo expirada, obtuvo %+v", segunda)
	}
	if segunda.SalidaAutomatica {
		t.Error("la segunda validación no debe crear otra SALIDA")
	}

	salidas := 0
	for _, r := range store.registrosDe(1) {
		if r.Tipo == models.TipoSalida {
			salidas++
		}
	}
	if salidas != 1 {
		t.Errorf("esperaba exactamente 1 SALIDA, hay %d", salidas)
	}
}

func TestValidateCredential_ExpiradaSinEntradaAbierta(t *testing.T) {
	svc, store, clk := newTestService()
	addVisitante(store, 1, "123")

	issued, err := svc.IssueCredential(context.Background(), 1, 0, 0)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}

	clk.Advance(time.Second)
	res, err := svc.ValidateCredential(context.Background(), issued.Codigo)
	if err != nil {
		t.Fatalf("ValidateCredential: %v", err)
	}

	if res.Valido || res.Razon != RazonExpirado {
		t.Fatalf("esperaba inválido/expirado, obtuvo %+v", res)
	}
	if res.SalidaAutomatica {
		t.Error("sin entrada abierta no debe haber salida automática")
	}
	if len(store.registrosDe(1)) != 0 {
		t.Error("la bitácora debe quedar intacta")
	}
	// La lápida igual se aplica
	if !store.personas[1].QRExpiracion.Time.Equal(t0.Add(time.Second)) {
		t.Errorf("lápida incorrecta: %v", store.personas[1].QRExpiracion.Time)
	}
}
