package handler

import (
	"fmt"
	"strings"
	"time"

	"timebank/internal/models"
	"timebank/internal/service"
)

var stateLabels = map[models.ClockState]string{
	models.StateAbsent:      "⚪ Not started",
	models.StateOpenWorking: "🟢 Working",
	models.StateOpenBreak:   "☕ On break",
	models.StateClosed:      "🔴 Finished",
}

func (h *Handler) clockTime(t *time.Time) string {
	if t == nil {
		return "--:--"
	}
	return t.In(h.loc).Format("15:04")
}

func (h *Handler) formatRecord(r *models.ClockRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📅 %s  %s\n", r.Date, stateLabels[r.State()])
	fmt.Fprintf(&b, "⏰ %s - %s\n", h.clockTime(r.Entrada), h.clockTime(r.Saida))
	for i, p := range r.Pausas {
		fmt.Fprintf(&b, "☕ Break %d: %s - %s\n", i+1, h.clockTime(p.Inicio), h.clockTime(p.Fim))
	}
	fmt.Fprintf(&b, "⏳ Worked: %s\n", r.TotalHoras)
	fmt.Fprintf(&b, "🍽 Breaks: %s", r.TotalPausas)

	if r.Manual {
		b.WriteString("\n✍️ Manual entry")
	}
	if r.HasJustification() {
		j := r.Justification
		fmt.Fprintf(&b, "\n📝 Justification (%s): %s", j.Status, j.Reason)
		if j.AdminNote != "" {
			fmt.Fprintf(&b, "\n💬 %s", j.AdminNote)
		}
	}

	return b.String()
}

func formatSummary(s *service.MonthlySummary) string {
	goal := s.Meta
	if s.GoalOverridden {
		goal += " (custom)"
	}

	text := fmt.Sprintf(`📊 Summary %04d-%02d

📅 Workdays: %d
✅ Days worked: %d
⏳ Worked: %s
🎯 Goal: %s
⚖️ Balance: %s

🗓 Weekdays: %s
🗓 Saturdays: %s
🎉 Sundays and holidays: %s`,
		s.Year, s.Month,
		s.Workdays, s.DaysWorked,
		s.Total, goal, s.Saldo,
		s.Weekday, s.Saturday, s.SundayHoliday,
	)

	if s.CreditedMinutes != 0 {
		text += fmt.Sprintf("\n💳 Credited: %s", s.Credited)
	}
	if s.PendingJustifications > 0 || s.ApprovedJustifications > 0 {
		text += fmt.Sprintf("\n📝 Justifications: %d pending, %d approved",
			s.PendingJustifications, s.ApprovedJustifications)
	}
	return text
}
