package helper

import (
	"testing"
	"time"
)

func TestIsOpenAt(t *testing.T) {
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	hora := func(h, m int) time.Time {
		return time.Date(2024, 6, 10, h, m, 0, 0, loc)
	}

	casos := []struct {
		nombre   string
		now      time.Time
		apertura string
		cierre   string
		abierto  bool
	}{
		{"dentro del horario", hora(10, 0), "08:00:00", "18:00:00", true},
		{"antes de abrir", hora(7, 59), "08:00:00", "18:00:00", false},
		{"después de cerrar", hora(18, 1), "08:00:00", "18:00:00", false},
		{"justo al abrir queda cerrado", hora(8, 0), "08:00:00", "18:00:00", false},
		{"formato HH:MM", hora(10, 0), "08:00", "18:00", true},
		{"cruza medianoche, noche", hora(23, 0), "22:00:00", "02:00:00", true},
		{"cruza medianoche, madrugada", hora(1, 0), "22:00:00", "02:00:00", true},
		{"cruza medianoche, fuera por la mañana", hora(3, 0), "22:00:00", "02:00:00", false},
		{"cruza medianoche, fuera por la tarde", hora(21, 0), "22:00:00", "02:00:00", false},
		{"hora inválida", hora(10, 0), "no-es-hora", "18:00:00", false},
	}

	for _, c := range casos {
		if got := isOpenAt(c.now, c.apertura, c.cierre, loc); got != c.abierto {
			t.Errorf("%s: isOpenAt(%v, %q, %q) = %v, esperaba %v",
				c.nombre, c.now.Format("15:04"), c.apertura, c.cierre, got, c.abierto)
		}
	}
}
