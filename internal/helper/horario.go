package helper

import (
	"strings"
	"time"
)

// IsCampusOpen indica si la hora actual cae dentro del horario de
// visitas configurado. Solo es informativo: no bloquea registros.
func IsCampusOpen(horaApertura, horaCierre string) bool {
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		return false
	}

	return isOpenAt(time.Now().In(loc), horaApertura, horaCierre, loc)
}

func isOpenAt(now time.Time, horaApertura, horaCierre string, loc *time.Location) bool {
	// El TIME de la base puede venir HH:MM:SS o HH:MM
	layout := "15:04:05"

	if strings.Count(horaApertura, ":") == 1 {
		horaApertura += ":00"
	}
	if strings.Count(horaCierre, ":") == 1 {
		horaCierre += ":00"
	}

	apertura, err := time.ParseInLocation(layout, horaApertura, loc)
	if err != nil {
		return false
	}

	cierre, err := time.ParseInLocation(layout, horaCierre, loc)
	if err != nil {
		return false
	}

	apertura = time.Date(
		now.Year(), now.Month(), now.Day(),
		apertura.Hour(), apertura.Minute(), apertura.Second(),
		0, loc,
	)

	cierre = time.Date(
		now.Year(), now.Month(), now.Day(),
		cierre.Hour(), cierre.Minute(), cierre.Second(),
		0, loc,
	)

	// Horario que cruza la medianoche, ej: abre 22:00, cierra 02:00
	if cierre.Before(apertura) {
		if now.Before(cierre) {
			apertura = apertura.Add(-24 * time.Hour)
		} else {
			cierre = cierre.Add(24 * time.Hour)
		}
	}

	return now.After(apertura) && now.Before(cierre)
}
