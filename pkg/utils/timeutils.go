package utils

import (
	"fmt"
	"time"
)

// TimestampLayout é o formato de data/hora dos registros de telemetria
const TimestampLayout = "2006-01-02 15:04:05.000"

// FormatDuration formata uma duração para exibição amigável
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour

	m := d / time.Minute
	d -= m * time.Minute

	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatDateTimeMs formata data e hora com milissegundos
func FormatDateTimeMs(t time.Time) string {
	return t.Format(TimestampLayout)
}

// MissionElapsed formata o tempo desde a ignição como T+SS.s (T- antes dela)
func MissionElapsed(launch, now time.Time) string {
	if launch.IsZero() {
		return "T-"
	}
	d := now.Sub(launch)
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	return fmt.Sprintf("T%s%.1fs", sign, d.Seconds())
}
