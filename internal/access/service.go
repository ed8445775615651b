package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"backend-huella/internal/helper"
	"backend-huella/internal/models"
)

// Razones de invalidez devueltas por ValidateCredential.
const (
	RazonNoEncontrado = "codigo no encontrado"
	RazonExpirado     = "expirado"
)

// UbicacionDefault se usa cuando el registro no indica ubicación.
const UbicacionDefault = "Principal"

// Service implementa la emisión de credenciales QR, su validación y el
// registro de entradas/salidas. Cada operación es una unidad secuencial
// contra el store, sin transacciones entre sentencias.
type Service struct {
	store Store

	// StrictSalida hace fallar el registro de una SALIDA sin ENTRADA
	// abierta en lugar de usar la hora actual como entrada.
	StrictSalida bool

	now func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

type IssueResult struct {
	Persona    models.PersonResponse `json:"persona"`
	Codigo     string                `json:"codigo"`
	Expiracion time.Time             `json:"expiracion"`
	Vigencia   string                `json:"vigencia"`
}

// IssueCredential genera una credencial nueva para el visitante y la
// guarda sobre la anterior (una sola credencial activa por visitante).
// Horas y minutos negativos se tratan como 0.
func (s *Service) IssueCredential(ctx context.Context, personaID int64, horas, minutos int) (*IssueResult, error) {
	if horas < 0 {
		horas = 0
	}
	if minutos < 0 {
		minutos = 0
	}

	persona, err := s.store.FindActiveVisitor(ctx, personaID)
	if err != nil {
		return nil, err
	}

	ahora := s.now()
	codigo := fmt.Sprintf("QR-%s-%d", persona.Documento, ahora.UnixMilli())
	expiracion := ahora.Add(time.Duration(horas)*time.Hour + time.Duration(minutos)*time.Minute)

	if err := s.store.UpdateCredential(ctx, persona.ID, codigo, expiracion); err != nil {
		return nil, err
	}

	persona.CodigoQR = sql.NullString{String: codigo, Valid: true}
	persona.QRExpiracion = sql.NullTime{Time: expiracion, Valid: true}

	return &IssueResult{
		Persona:    models.ToPersonResponse(*persona),
		Codigo:     codigo,
		Expiracion: expiracion,
		Vigencia:   helper.FormatVigencia(horas, minutos),
	}, nil
}

type ValidationResult struct {
	Valido bool   `json:"valido"`
	Razon  string `json:"razon,omitempty"`

	Persona        *models.PersonResponse `json:"persona,omitempty"`
	HorasRestantes *int                   `json:"horas_restantes,omitempty"`

	// Detalle del camino expirado
	DetectadoEn      *time.Time `json:"detectado_en,omitempty"`
	ExpiracionPrevia *time.Time `json:"expiracion_prevista,omitempty"`
	SalidaAutomatica bool       `json:"salida_automatica"`
	FechaSalida      *time.Time `json:"fecha_salida,omitempty"`
	FechaEntrada     *time.Time `json:"fecha_entrada,omitempty"`
}

// ValidateCredential resuelve un código contra el store y decide su
// validez. Si descubre una credencial vencida con una ENTRADA todavía
// abierta, sintetiza la SALIDA de cierre y marca la expiración con la
// hora de detección para que una segunda validación no duplique el
// cierre.
func (s *Service) ValidateCredential(ctx context.Context, codigo string) (*ValidationResult, error) {
	codigo = strings.TrimSpace(codigo)
	if codigo == "" {
		return nil, ErrCodigoRequerido
	}

	persona, err := s.store.FindVisitorByCode(ctx, codigo)
	if errors.Is(err, ErrNotFound) {
		return &ValidationResult{Valido: false, Razon: RazonNoEncontrado}, nil
	}
	if err != nil {
		return nil, err
	}

	ahora := s.now()

	var expiracion time.Time
	if persona.QRExpiracion.Valid {
		expiracion = persona.QRExpiracion.Time
	}

	if !expiracion.After(ahora) {
		return s.handleExpired(ctx, persona, codigo, expiracion, ahora)
	}

	if persona.Estado != models.EstadoActivo {
		return &ValidationResult{
			Valido: false,
			Razon:  fmt.Sprintf("persona %s", persona.Estado),
		}, nil
	}

	restantes := int(math.Round(expiracion.Sub(ahora).Seconds() / 3600))
	resp := models.ToPersonResponse(*persona)

	return &ValidationResult{
		Valido:         true,
		Persona:        &resp,
		HorasRestantes: &restantes,
	}, nil
}

// handleExpired cierra la visita abierta (si la hay) y deja la
// expiración en la hora de detección. Las tres sentencias van por
// separado, igual que en el flujo original; una validación concurrente
// del mismo código puede observar una carrera.
func (s *Service) handleExpired(ctx context.Context, persona *models.Person, codigo string, expiracion, ahora time.Time) (*ValidationResult, error) {
	res := &ValidationResult{
		Valido:      false,
		Razon:       RazonExpirado,
		DetectadoEn: &ahora,
	}
	if !expiracion.IsZero() {
		res.ExpiracionPrevia = &expiracion
	}

	abierta, err := s.store.FindOpenEntrance(ctx, persona.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if abierta != nil {
		salida := &models.AccessRecord{
			PersonaID:    persona.ID,
			Tipo:         models.TipoSalida,
			FechaEntrada: abierta.FechaEntrada,
			FechaSalida:  sql.NullTime{Time: ahora, Valid: true},
			Ubicacion:    abierta.Ubicacion,
			CodigoQR:     sql.NullString{String: codigo, Valid: true},
		}
		if _, err := s.store.InsertRecord(ctx, salida); err != nil {
			return nil, err
		}

		res.SalidaAutomatica = true
		res.FechaSalida = &ahora
		if abierta.FechaEntrada.Valid {
			res.FechaEntrada = &abierta.FechaEntrada.Time
		}
	}

	// Lápida: la expiración queda en la hora de detección, así una
	// segunda validación no encuentra entrada abierta ni duplica la
	// salida.
	if err := s.store.UpdateCredential(ctx, persona.ID, codigo, ahora); err != nil {
		return nil, err
	}

	return res, nil
}

type RecordResult struct {
	Tipo     string                      `json:"tipo"`
	Registro models.AccessRecordResponse `json:"registro"`
}

// RecordAccess agrega exactamente una fila a la bitácora infiriendo la
// dirección a partir de la fila más reciente de la persona: sin filas
// previas ENTRADA, tras una ENTRADA SALIDA, tras una SALIDA ENTRADA.
func (s *Service) RecordAccess(ctx context.Context, personaID int64, codigo, ubicacion string) (*RecordResult, error) {
	ubicacion = strings.TrimSpace(ubicacion)
	if ubicacion == "" {
		ubicacion = UbicacionDefault
	}

	persona, err := s.store.FindVisitor(ctx, personaID)
	if err != nil {
		return nil, err
	}

	ultimo, err := s.store.FindLatestRecord(ctx, persona.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	tipo := models.TipoEntrada
	if ultimo != nil && ultimo.Tipo == models.TipoEntrada {
		tipo = models.TipoSalida
	}

	ahora := s.now()
	rec := &models.AccessRecord{
		PersonaID: persona.ID,
		Tipo:      tipo,
		Ubicacion: ubicacion,
	}
	if codigo != "" {
		rec.CodigoQR = sql.NullString{String: codigo, Valid: true}
	}

	if tipo == models.TipoEntrada {
		rec.FechaEntrada = sql.NullTime{Time: ahora, Valid: true}
	} else {
		entrada := ahora
		abierta, err := s.store.FindOpenEntrance(ctx, persona.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if abierta != nil && abierta.FechaEntrada.Valid {
			entrada = abierta.FechaEntrada.Time
		} else if s.StrictSalida {
			return nil, ErrSinEntradaAbierta
		}
		rec.FechaEntrada = sql.NullTime{Time: entrada, Valid: true}
		rec.FechaSalida = sql.NullTime{Time: ahora, Valid: true}
	}

	id, err := s.store.InsertRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.ID = id

	return &RecordResult{
		Tipo:     tipo,
		Registro: models.ToAccessRecordResponse(*rec),
	}, nil
}
