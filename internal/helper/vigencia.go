package helper

import "fmt"

// FormatVigencia arma la frase de vigencia para mostrar junto al QR:
// "24 horas", "2 horas y 30 minutos", "30 minutos". Se deriva solo de
// las horas y minutos solicitados, no de la expiración guardada.
func FormatVigencia(horas, minutos int) string {
	if horas < 0 {
		horas = 0
	}
	if minutos < 0 {
		minutos = 0
	}

	switch {
	case horas > 0 && minutos > 0:
		return fmt.Sprintf("%s y %s", plural(horas, "hora"), plural(minutos, "minuto"))
	case horas > 0:
		return plural(horas, "hora")
	default:
		return plural(minutos, "minuto")
	}
}

func plural(n int, unidad string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unidad)
	}
	return fmt.Sprintf("%d %ss", n, unidad)
}
