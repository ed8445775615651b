package helper

import "testing"

func TestFormatVigencia(t *testing.T) {
	casos := []struct {
		horas    int
		minutos  int
		esperado string
	}{
		{24, 0, "24 horas"},
		{1, 0, "1 hora"},
		{0, 30, "30 minutos"},
		{0, 1, "1 minuto"},
		{2, 30, "2 horas y 30 minutos"},
		{1, 1, "1 hora y 1 minuto"},
		{0, 0, "0 minutos"},
		{-3, -15, "0 minutos"},
	}

	for _, c := range casos {
		if got := FormatVigencia(c.horas, c.minutos); got != c.esperado {
			t.Errorf("FormatVigencia(%d, %d) = %q, esperaba %q", c.horas, c.minutos, got, c.esperado)
		}
	}
}
